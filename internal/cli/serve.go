package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"glanced/internal/config"
	"glanced/internal/feed"
	"glanced/internal/island"
	"glanced/internal/push"
	"glanced/internal/registry"
	"glanced/internal/scheduler"
	"glanced/internal/server"
	"glanced/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and the rotation scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Resolve database path
	dbPath := cfg.Database
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve db path: %w", err)
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reg := registry.New()
	if devices, err := db.LoadDevices(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: restore devices failed (%v), starting empty\n", err)
	} else {
		reg.Load(devices)
		fmt.Fprintf(os.Stderr, "  restored %d devices\n", len(devices))
	}

	// Shared fallback feeds, consulted when a device has no synced data.
	var fallback island.Fallback
	var cache *feed.Cache
	var calSrc feed.CalendarSource
	var mailSrc feed.MailSource
	if cfg.Feeds.ICSURL != "" {
		calSrc = feed.NewICSSource(cfg.Feeds.ICSURL)
		fmt.Fprintf(os.Stderr, "  calendar feed: %s\n", cfg.Feeds.ICSURL)
	}
	if cfg.Feeds.MailURL != "" {
		mailSrc = feed.NewMailFeed(cfg.Feeds.MailURL)
		fmt.Fprintf(os.Stderr, "  mail feed: %s\n", cfg.Feeds.MailURL)
	}
	if calSrc != nil || mailSrc != nil {
		cache = feed.NewCache(calSrc, mailSrc)
		fallback = cache
	}

	var deliverer island.Deliverer
	switch cfg.Push.Mode {
	case "webhook":
		deliverer = push.NewWebhook(cfg.Push.URL, cfg.Push.RatePerMinute)
		fmt.Fprintf(os.Stderr, "  push: webhook %s (%d/min)\n", cfg.Push.URL, cfg.Push.RatePerMinute)
	default:
		deliverer = push.Logger{}
		fmt.Fprintln(os.Stderr, "  push: log only")
	}

	rotator := island.NewRotator(reg, island.NewScorer(nil), fallback, deliverer)

	snapshot := func() {
		if err := db.SaveDevices(reg.Snapshot()); err != nil {
			log.Printf("snapshot: save devices: %v", err)
		}
	}

	sched := scheduler.New()
	if err := sched.Every(cfg.RotateInterval(), "rotate", rotator.RotateAll); err != nil {
		return err
	}
	if cache != nil {
		if err := sched.Every(cfg.RefreshInterval(), "refresh", cache.Refresh); err != nil {
			return err
		}
		// Warm the cache before the first rotation tick.
		func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			cache.Refresh(ctx)
		}()
	}
	if err := sched.Every(cfg.SnapshotInterval(), "snapshot", func(context.Context) { snapshot() }); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(reg, rotator, deliverer, db, VersionString())

	httpServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "glanced serving on %s\n", cfg.Listen)
		fmt.Fprintf(os.Stderr, "  db: %s\n", dbPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = httpServer.Shutdown(ctx)
	snapshot()
	return err
}

// loadConfig resolves the --config flag (or the default location) and
// loads the file, writing defaults on first run.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return config.Load(path)
}
