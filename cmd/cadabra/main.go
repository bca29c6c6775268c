// Command cadabra runs the Cadabra cache sidecar's HTTP façade (§6).
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cadabra-cache/cadabra/pkg/config"
	"github.com/cadabra-cache/cadabra/pkg/store"
	"github.com/cadabra-cache/cadabra/server/httpapi"
	"github.com/cadabra-cache/cadabra/server/metrics"
)

func main() {
	var port int
	var dbPath string

	rootCmd := &cobra.Command{
		Use:   "cadabra",
		Short: "Cadabra - automatic SQL query-result cache invalidation sidecar",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port, dbPath)
		},
	}
	rootCmd.Flags().IntVar(&port, "port", 0, "HTTP listen port (overrides config/PORT)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", `Badger data directory, or ":memory:" (overrides config)`)

	// Accept the single-dash long forms -port and -db as well as --port/--db.
	args := os.Args[1:]
	for i, a := range args {
		if a == "-port" || a == "-db" || strings.HasPrefix(a, "-port=") || strings.HasPrefix(a, "-db=") {
			args[i] = "-" + a
		}
	}
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runServe(cmd *cobra.Command, port int, dbPath string) error {
	cfg := config.LoadConfigOrDefault()
	if port != 0 {
		cfg.Server.Port = port
	}
	if dbPath != "" {
		if dbPath == ":memory:" {
			cfg.Database.InMemory = true
		} else {
			cfg.Database.DataDir = dbPath
			cfg.Database.InMemory = false
		}
	}

	cache, err := store.Open(store.Options{
		DataDir:     cfg.Database.DataDir,
		InMemory:    cfg.Database.InMemory,
		LRUCapacity: cfg.Cache.LRUCapacity,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer cache.Close()

	reg := metrics.NewRegistry()
	stop := make(chan struct{})
	reg.StartCollector(cache, 15*time.Second, stop)
	defer close(stop)

	srv := httpapi.NewServer(cfg.ListenAddress(), cfg.CORS.Enabled, cache, reg)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("cadabra: listening on %s (data_dir=%q in_memory=%v)", cfg.ListenAddress(), cfg.Database.DataDir, cfg.Database.InMemory)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-sigCh:
		log.Println("cadabra: shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
