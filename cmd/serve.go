package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newRouter exposes health, status and the sync trigger. Triggered runs
// outlive the request, so they use the server's base context.
func newRouter(runner *syncRunner, base context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "running": runner.Running()})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		last := runner.Last()
		if last == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no runs yet"})
			return
		}
		writeJSON(w, http.StatusOK, last)
	})

	r.Post("/sync", func(w http.ResponseWriter, _ *http.Request) {
		runID, err := runner.Start(base)
		if errors.Is(err, errRunInProgress) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "run_id": runID})
	})

	return r
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that triggers sync runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, closeFn, err := newSyncPipeline(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		runner := newSyncRunner(p.run)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(runner, ctx),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		err = srv.ListenAndServe()

		if runner.Running() {
			zap.L().Info("waiting for running sync to finish")
		}
		runner.Wait()

		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
