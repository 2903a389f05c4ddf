package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"behaviorgate/internal/config"
	"behaviorgate/internal/database"
	"behaviorgate/internal/forward"
	"behaviorgate/internal/metrics"
	"behaviorgate/internal/models"
	"behaviorgate/internal/signals"
	"behaviorgate/internal/verifier"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

type LogStore interface {
	ListVerificationLogs(ctx context.Context, filter database.LogFilter, page, limit int) ([]models.VerificationLog, int, error)
	Ping(ctx context.Context) error
}

type Forwarder interface {
	Enabled() bool
	Forward(ctx context.Context, body []byte) (*forward.Response, error)
}

type Handler struct {
	cfg       *config.Config
	verifier  *verifier.Service
	logs      LogStore
	forwarder Forwarder
	extractor signals.Extractor
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func NewHandler(cfg *config.Config, svc *verifier.Service, logs LogStore, fwd Forwarder, m *metrics.Metrics, logger zerolog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		verifier:  svc,
		logs:      logs,
		forwarder: fwd,
		extractor: signals.Extractor{TrustProxy: cfg.TrustProxy},
		metrics:   m,
		logger:    logger,
	}
}

type MessageResponse struct {
	Message string   `json:"message"`
	Reasons []string `json:"reasons,omitempty"`
}

type LogsResponse struct {
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalLogs  int                      `json:"total_logs"`
	TotalPages int                      `json:"total_pages"`
	Logs       []models.VerificationLog `json:"logs"`
}

func (h *Handler) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	sig := h.extractor.Extract(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, MessageResponse{Message: "Request body too large"})
			return
		}
		h.reject(w, r, sig, verifier.ReasonInvalidBody)
		return
	}

	if len(bytes.TrimSpace(body)) == 0 {
		h.reject(w, r, sig, verifier.ReasonMissingBody)
		return
	}

	var req models.VerifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Debug().Err(err).Str("ip", sig.IPAddress).Msg("undecodable verification body")
		h.reject(w, r, sig, verifier.ReasonInvalidBody)
		return
	}

	result, err := h.verifier.Verify(r.Context(), sig, req.UserBehaviorData)
	if err != nil {
		h.internalError(w, err)
		return
	}

	if !result.Accepted {
		writeFailure(w, result.Failures)
		return
	}

	if h.forwarder != nil && h.forwarder.Enabled() {
		resp, err := h.forwarder.Forward(r.Context(), body)
		if err == nil {
			w.Header().Set("Content-Type", resp.ContentType)
			w.WriteHeader(resp.StatusCode)
			w.Write(resp.Body)
			return
		}
		h.metrics.ObserveForwardError()
		h.logger.Warn().Err(err).Str("log_id", result.Log.ID).Msg("downstream forward failed")
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Success"})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, sig signals.Signals, reason string) {
	result, err := h.verifier.Reject(r.Context(), sig, reason)
	if err != nil {
		h.internalError(w, err)
		return
	}
	writeFailure(w, result.Failures)
}

func (h *Handler) internalError(w http.ResponseWriter, err error) {
	h.logger.Error().Err(err).Msg("verification failed with internal error")
	writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
}

func writeFailure(w http.ResponseWriter, failures []string) {
	writeJSON(w, http.StatusBadRequest, MessageResponse{
		Message: "Verification failed: " + strings.Join(failures, ", "),
		Reasons: failures,
	})
}

func (h *Handler) AdminLogsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page, err := positiveParam(query.Get("page"), defaultPage)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid page parameter"})
		return
	}
	limit, err := positiveParam(query.Get("limit"), defaultLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid limit parameter"})
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := database.LogFilter{
		IPAddress:          strings.TrimSpace(query.Get("ip")),
		BrowserFingerprint: strings.TrimSpace(query.Get("fingerprint")),
	}
	if raw := query.Get("is_bot"); raw != "" {
		isBot, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, MessageResponse{Message: "Invalid is_bot parameter"})
			return
		}
		filter.IsBot = &isBot
	}

	logs, total, err := h.logs.ListVerificationLogs(r.Context(), filter, page, limit)
	if err != nil {
		h.metrics.ObserveStoreError("list_verification_logs")
		h.logger.Error().Err(err).Msg("failed to list verification logs")
		writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "Internal server error"})
		return
	}
	if logs == nil {
		logs = []models.VerificationLog{}
	}

	writeJSON(w, http.StatusOK, LogsResponse{
		Page:       page,
		Limit:      limit,
		TotalLogs:  total,
		TotalPages: (total + limit - 1) / limit,
		Logs:       logs,
	})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := map[string]interface{}{
		"status":   "healthy",
		"service":  "behaviorgate",
		"database": "ok",
	}
	status := http.StatusOK

	if err := h.logs.Ping(ctx); err != nil {
		h.logger.Warn().Err(err).Msg("health check: database unreachable")
		response["status"] = "unhealthy"
		response["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func positiveParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 0, errors.New("must be at least 1")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
