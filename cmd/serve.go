package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veerayerva/warehouse-returns/internal/model"
	"github.com/veerayerva/warehouse-returns/internal/pieceinfo"
	"github.com/veerayerva/warehouse-returns/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the document analysis HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newRouter(env *appEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Correlation-ID"},
		MaxAge:         300,
	}))
	r.Use(correlationID)

	r.Get("/health", handleHealth(env))
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents/analyze", handleAnalyzeURL(env))
		r.Post("/documents/analyze-file", handleAnalyzeFile(env))
		r.Get("/review/pending", handlePendingReview(env))
		r.Get("/pieceinfo/{pieceNumber}", handlePieceInfo(env))
	})
	return r
}

type ctxKey int

const correlationKey ctxKey = 0

// correlationID propagates the caller's X-Correlation-ID or mints one, and
// echoes it on the response so log lines can be matched to the request.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = "corr-" + uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), correlationKey, id)))
	})
}

func requestCorrelationID(r *http.Request) string {
	if id, ok := r.Context().Value(correlationKey).(string); ok {
		return id
	}
	return ""
}

func handleHealth(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{
			"status":  "ok",
			"breaker": env.Processor.BreakerState().String(),
		}
		code := http.StatusOK
		if err := env.Store.Ping(r.Context()); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}

func handleAnalyzeURL(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DocumentURL string `json:"document_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}

		resp, err := env.Processor.ProcessURL(r.Context(), req.DocumentURL, requestCorrelationID(r))
		writeAnalyzeResult(w, resp, err)
	}
}

func handleAnalyzeFile(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		maxBytes := int64(cfg.Server.MaxUploadMB) << 20
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid multipart form")
			return
		}

		file, header, err := r.FormFile("document")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "document file is required")
			return
		}
		defer file.Close() //nolint:errcheck

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "failed to read document file")
			return
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		doc := model.Document{
			Name:        header.Filename,
			ContentType: contentType,
			Data:        data,
		}
		resp, err := env.Processor.ProcessBytes(r.Context(), doc, requestCorrelationID(r))
		writeAnalyzeResult(w, resp, err)
	}
}

func writeAnalyzeResult(w http.ResponseWriter, resp *model.AnalyzeResponse, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, pipeline.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, pipeline.ErrAnalysisService):
		// The failed response still carries ids and timing for the caller.
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "document analysis failed")
	}
}

func handlePendingReview(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if raw := r.URL.Query().Get("days"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				writeError(w, http.StatusBadRequest, "invalid_request", "days must be a positive integer")
				return
			}
			days = parsed
		}

		pending, err := env.Reviewer.ListPending(r.Context(), cfg.Archive.Scope, days)
		if err != nil {
			zap.L().Error("pending review listing failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to list pending reviews")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"days":    days,
			"count":   len(pending),
			"results": pending,
		})
	}
}

func handlePieceInfo(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if env.PieceInfo == nil {
			writeError(w, http.StatusNotImplemented, "not_configured", "piece info lookup is not configured")
			return
		}

		piece, err := env.PieceInfo.Lookup(r.Context(), chi.URLParam(r, "pieceNumber"))
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, piece)
		case errors.Is(err, pieceinfo.ErrInvalidPieceNumber):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, pieceinfo.ErrPieceNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		default:
			zap.L().Error("piece lookup failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "upstream_error", "piece lookup failed")
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, map[string]any{
		"error": model.ErrorDetail{Code: errCode, Message: message},
	})
}
