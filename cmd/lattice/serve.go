package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/lattice"
	"github.com/aretw0/lattice/internal/metrics"
	"github.com/aretw0/lattice/pkg/adapters/file"
	"github.com/aretw0/lattice/pkg/adapters/httpapi"
	"github.com/aretw0/lattice/pkg/adapters/process"
	"github.com/aretw0/lattice/pkg/adapters/remote"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the stateless HTTP server",
	Long:  `Serves the validation API over HTTP. Schemas are loaded from the schemas directory and hot reloaded on change.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("schemas")
		port, _ := cmd.Flags().GetString("port")
		checkerURL, _ := cmd.Flags().GetString("checker")
		checksFile, _ := cmd.Flags().GetString("checks")

		logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

		loader, err := file.New(dir, file.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error loading schemas: %v\n", err)
			os.Exit(1)
		}

		collectors := metrics.NewCollectors(prometheus.DefaultRegisterer)
		engineOpts := []lattice.Option{
			lattice.WithLogger(logger),
			lattice.WithLifecycleHooks(collectors.Hooks()),
		}
		switch {
		case checkerURL != "":
			engineOpts = append(engineOpts, lattice.WithRemoteChecker(remote.New(checkerURL)))
		case checksFile != "":
			checks, err := process.LoadChecks(checksFile)
			if err != nil {
				fmt.Printf("Error loading checks config: %v\n", err)
				os.Exit(1)
			}
			engineOpts = append(engineOpts, lattice.WithRemoteChecker(process.New(process.WithRegistry(checks))))
		}

		api := httpapi.NewServer(loader,
			httpapi.WithLogger(logger),
			httpapi.WithEngineOptions(engineOpts...),
		)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/", api.Handler())

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: mux,
		}

		watchCtx, stopWatch := context.WithCancel(context.Background())
		defer stopWatch()
		if changes, err := loader.Watch(watchCtx); err == nil {
			go func() {
				for id := range changes {
					logger.Info("schema changed, reloading", "schema", id)
					api.ReloadSchema(id)
				}
			}()
		} else {
			logger.Warn("schema watching unavailable", "error", err)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Lattice Server on %s\n", srv.Addr)
			fmt.Printf("Serving schemas from: %s\n", dir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Lattice Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("checker", "", "Base URL of the remote rule checker service")
	serveCmd.Flags().String("checks", "", "Path to a checks.yaml of local check commands")
}
