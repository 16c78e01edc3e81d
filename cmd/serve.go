package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/reconcile"
	"github.com/summit-goods/commission-cli/internal/store"
	"github.com/summit-goods/commission-cli/internal/validate"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for sync and validation requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		mux := buildMux(st, reconcile.NewTracker(), cfg.Sync.BatchSize)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func buildMux(st store.Store, tracker *reconcile.Tracker, batchSize int) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /sync/customers", func(w http.ResponseWriter, r *http.Request) {
		live := r.URL.Query().Get("live") == "true"

		rec := reconcile.NewReconciler(st, tracker, batchSize)
		stats, err := rec.Run(r.Context(), live)
		if err != nil {
			zap.L().Error("customer sync failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, stats)
	})

	mux.HandleFunc("GET /sync/customers/progress", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tracker.Latest())
	})

	mux.HandleFunc("POST /validate/commission-data", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CommissionMonth string `json:"commissionMonth"`
			SalesPerson     string `json:"salesPerson"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		report, err := validate.NewValidator(st).Validate(r.Context(), req.CommissionMonth, req.SalesPerson)
		if err != nil {
			if errors.Is(err, validate.ErrMonthRequired) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "commissionMonth is required"})
				return
			}
			zap.L().Error("commission validation failed",
				zap.String("month", req.CommissionMonth),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, report)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
