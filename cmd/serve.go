package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/invoiceguard/invoiceguard/internal/docquery"
	"github.com/invoiceguard/invoiceguard/internal/presentation"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initEnrichment(ctx)
		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst)
		mux := buildMux(env, limiter)

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

func buildMux(env *appEnv, limiter *rate.Limiter) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /v1/validate", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		mode, err := presentation.ParseMode(modeParam(r))
		if err != nil {
			http.Error(w, `{"error":"mode must be short, balanced, or detailed"}`, http.StatusBadRequest)
			return
		}

		docBytes, err := io.ReadAll(io.LimitReader(r.Body, docquery.MaxDocumentBytes+1))
		if err != nil {
			http.Error(w, `{"error":"read request body"}`, http.StatusBadRequest)
			return
		}
		if len(docBytes) == 0 {
			http.Error(w, `{"error":"request body is empty"}`, http.StatusBadRequest)
			return
		}

		session := uuid.NewString()
		log := zap.L().With(zap.String("session", session))

		docPath, cleanup, err := spoolDocument(docBytes)
		if err != nil {
			log.Error("spool document", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		defer cleanup()

		raw, err := env.Runner.Validate(r.Context(), docPath)
		if err != nil {
			log.Error("engine run failed", zap.Error(err))
			http.Error(w, `{"error":"validation engine unavailable"}`, http.StatusBadGateway)
			return
		}

		envelope, err := env.diagnose(r.Context(), session, raw, docBytes, mode)
		if err != nil {
			log.Error("diagnosis failed", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(envelope); err != nil {
			log.Warn("write response", zap.Error(err))
		}
	})

	return mux
}

func modeParam(r *http.Request) string {
	if mode := r.URL.Query().Get("mode"); mode != "" {
		return mode
	}
	return "balanced"
}

// spoolDocument writes the uploaded document to a temp file for the engine,
// which only accepts paths.
func spoolDocument(docBytes []byte) (string, func(), error) {
	dir, err := os.MkdirTemp("", "invoiceguard-doc-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "create document dir")
	}
	path := filepath.Join(dir, "invoice.xml")
	if err := os.WriteFile(path, docBytes, 0o600); err != nil {
		os.RemoveAll(dir)
		return "", nil, eris.Wrap(err, "write document")
	}
	return path, func() { os.RemoveAll(dir) }, nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
