/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/worldclock/apiserver/config"
	"github.com/worldclock/apiserver/internal/events"
	"github.com/worldclock/apiserver/internal/server"
)

// eventsCmd groups commands working on timezone change events.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Work with timezone change events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log every timezone change event until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := server.NewEventsBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		log.Info("watching events", "backend", cfg.Events.Backend, "channel", cfg.Events.Channel)
		err = events.Watch(ctx, backend, cfg.Events.Channel, log, func(ev events.Event) {
			log.Info("timezone event",
				"id", ev.ID,
				"type", ev.Type,
				"owner_id", ev.OwnerID,
				"timezone_id", ev.TimezoneID,
				"name", ev.Name,
				"timezone", ev.Timezone,
				"offset", ev.Offset,
				"occurred_at", ev.OccurredAt,
			)
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}
