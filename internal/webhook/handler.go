// Package webhook exposes the Miniflux webhook endpoint over HTTP.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"MinifluxAI/internal/signature"
	"MinifluxAI/internal/usecase"
)

const (
	allowedMethods = "POST, OPTIONS"
	allowedHeaders = "Content-Type, " + signature.Header

	processedMessage = "Webhook request processed"
)

// Acceptor authenticates and stages a raw webhook body.
type Acceptor interface {
	Accept(ctx context.Context, sig string, body []byte) (usecase.StageReport, error)
}

// Handler serves the webhook endpoint.
type Handler struct {
	intake       Acceptor
	maxBodyBytes int64
	logger       *slog.Logger
}

var _ http.Handler = (*Handler)(nil)

// NewHandler wraps intake. maxBodyBytes <= 0 disables the body limit.
func NewHandler(intake Acceptor, maxBodyBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{intake: intake, maxBodyBytes: maxBodyBytes, logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With("request_id", uuid.NewString(), "method", r.Method)

	switch r.Method {
	case http.MethodOptions:
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", allowedMethods)
		header.Set("Access-Control-Allow-Headers", allowedHeaders)
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", allowedMethods)
		writeText(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	reader := io.Reader(r.Body)
	if h.maxBodyBytes > 0 {
		reader = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logger.Warn("webhook body too large", "limit", tooLarge.Limit)
			writeText(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		logger.Warn("read webhook body failed", "error", err)
		writeText(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	report, err := h.intake.Accept(r.Context(), r.Header.Get(signature.Header), body)
	if err != nil {
		status, message := describe(err)
		if status >= http.StatusInternalServerError {
			logger.Error("webhook request failed", "status", status, "error", err)
		} else {
			logger.Warn("webhook request rejected", "status", status, "error", err)
		}
		writeText(w, status, message)
		return
	}

	logger.Info("webhook request processed", "received", report.Received, "staged", report.Staged, "failed", report.Failed)
	writeText(w, http.StatusOK, processedMessage)
}

func describe(err error) (int, string) {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Code >= http.StatusBadRequest {
		message := rich.Message
		if message == "" {
			message = http.StatusText(rich.Code)
		}
		return rich.Code, message
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, message)
}
