// Package push implements delivery collaborators for the rotator. The
// rotator only sees the island.Deliverer interface; everything about the
// wire lives here.
package push

import (
	"context"
	"log"

	"glanced/internal/registry"
)

// Logger is a development deliverer: it logs the update and reports
// success.
type Logger struct{}

// Deliver logs the update.
func (Logger) Deliver(ctx context.Context, deviceToken, activityID string, contentState map[string]any) error {
	log.Printf("push(log): device %s activity %s type %v",
		registry.Redact(deviceToken), activityID, contentState["intelligentIslandType"])
	return nil
}
