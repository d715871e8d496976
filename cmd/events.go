/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schooldesk/console/config"
	"github.com/schooldesk/console/internal/logging"
	"github.com/schooldesk/console/internal/mq"
	"github.com/schooldesk/console/internal/session"
	"github.com/spf13/cobra"
)

// eventsCmd streams session events published by running consoles.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print session events (login, logout, invalidated) as JSON lines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		log, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("MQ_BACKEND is not configured")
		}
		defer broker.Close()

		out := json.NewEncoder(cmd.OutOrStdout())
		events := mq.NewEvents(broker, cfg.Session.EventChannel, log)
		err = events.Tail(ctx, func(ev session.Event) {
			_ = out.Encode(ev)
		})
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("tail %s: %w", cfg.Session.EventChannel, err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
