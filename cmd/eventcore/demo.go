package main

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventcore/pkg/eventcore/event"
	"github.com/randalmurphal/eventcore/pkg/eventcore/failurelog"
	"github.com/randalmurphal/eventcore/pkg/eventcore/logsink"
	"github.com/randalmurphal/eventcore/pkg/eventcore/registry"
)

// demoReport is what the demo prints once it has run.
type demoReport struct {
	Memory       event.MemoryStats `json:"memory_stats"`
	Errors       event.ErrorStats  `json:"error_stats"`
	JournalCount int               `json:"journal_count"`
	JournalPath  string            `json:"journal_path"`
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Register components, emit events and report bus statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := failurelog.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening failure journal: %w", err)
		}
		defer store.Close()

		busCfg := event.BusConfigFrom(cfg)
		busCfg.Logger = logger
		busCfg.ErrorOutput = cmd.ErrOrStderr()
		busCfg.OnHandlerError = failurelog.HookTo(store, cmd.ErrOrStderr())
		if !event.InitDefault(busCfg) {
			return errors.New("default bus already initialized")
		}
		bus := event.Default()

		sink := logsink.Attach(bus, logger)
		defer runtime.KeepAlive(sink)

		commands := registry.New[string, string]("command")
		commands.Register("deploy", "ship the current build")
		commands.Register("worker_pool", "scale workers")
		commands.Delete("worker_pool")

		migrated := event.NewHandler("migration-audit", func(ctx context.Context, evt event.Event) error {
			rows, _ := evt.Value("rows")
			logger.Info("migration applied", "rows", rows)
			return nil
		})
		locked := event.NewHandler("migration-lock", func(ctx context.Context, evt event.Event) error {
			return errors.New("migration lock held by another process")
		})
		defer runtime.KeepAlive([]*event.Handler{migrated, locked})

		bus.Subscribe("db.migrate", migrated)
		bus.Subscribe("db.migrate", locked)
		bus.Emit(cmd.Context(), event.New("db.migrate", map[string]any{"rows": 3}, event.WithSource("demo")))

		bus.ForceCleanup()

		count, err := store.Count()
		if err != nil {
			return fmt.Errorf("counting failures: %w", err)
		}
		report := demoReport{
			Memory:       bus.MemoryStats(),
			Errors:       bus.ErrorStats(),
			JournalCount: count,
			JournalPath:  dbPath,
		}

		if jsonOutput {
			return printJSON(report)
		}
		fmt.Printf("Event types:      %d\n", report.Memory.EventTypes)
		fmt.Printf("Live handlers:    %d\n", report.Memory.LiveHandlers)
		fmt.Printf("Failed handlers:  %d\n", report.Errors.FailedHandlerCount)
		for _, rec := range report.Errors.RecentErrors {
			fmt.Printf("  %s  %s: %s\n", rec.EventName, rec.Handler, rec.Message)
		}
		fmt.Printf("Journal entries:  %d (%s)\n", report.JournalCount, report.JournalPath)
		return nil
	},
}
