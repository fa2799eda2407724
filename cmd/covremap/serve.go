package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/covremap/pkg/remap"
	"github.com/praetorian-inc/covremap/pkg/serve"
	"github.com/praetorian-inc/covremap/pkg/store"
	"github.com/spf13/cobra"
)

var (
	serveDatastore string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming remap server",
	Long: `Run covremap as a long-lived server that accepts remap requests
via stdin and writes results to stdout using NDJSON format.

The process handles requests until stdin closes, a close request
arrives, or SIGTERM is received.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDatastore, "datastore", "", "Save requested runs to a SQLite path or postgres:// URL")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()

	datastore := cfg.Datastore
	if cmd.Flags().Changed("datastore") {
		datastore = serveDatastore
	}

	var st store.Store
	if datastore != "" {
		s, err := store.New(store.Config{Path: datastore})
		if err != nil {
			return fmt.Errorf("opening datastore: %w", err)
		}
		defer s.Close()
		st = s
	}

	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	srv := serve.NewServer(serve.Config{
		Defaults: remap.Config{Exclude: cfg.Exclude},
		Store:    st,
		Logger:   slog.Default(),
	}, cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
