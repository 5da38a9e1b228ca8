package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/mattertraffic/syncgw/cache"
)

// Config is the persisted per-environment webhook configuration (part of
// the single-row upstream_configs table, C11).
type Config struct {
	Mode             Mode
	Secret           string
	CaptureStartedAt time.Time
	DatabaseIDToKind map[string]string // upstream database/data-source id -> entity kind
}

// ConfigStore is the narrow slice of C11's persistence the handler needs.
type ConfigStore interface {
	GetWebhookConfig(ctx context.Context) (Config, error)
	SaveCaptureResult(ctx context.Context, result CaptureResult) error
}

// SyncLogger is the narrow slice of C11 sync-log persistence the handler
// needs (SPEC_FULL.md §3's sync log record, method=webhook).
type SyncLogger interface {
	AppendSyncLog(ctx context.Context, entityKind, sourceID, status string, startedAt, endedAt time.Time, webhookEventID string, errMsg string) error
}

type Handler struct {
	cache   *cache.Store
	config  ConfigStore
	logger  SyncLogger
	dedup   *Deduper
	log     zerolog.Logger
}

func New(store *cache.Store, config ConfigStore, logger SyncLogger, dedup *Deduper, log zerolog.Logger) *Handler {
	return &Handler{cache: store, config: config, logger: logger, dedup: dedup, log: log}
}

// ServeHTTP is deliberately self-contained (no chi dependency) so it can be
// mounted directly by httpapi's router. It always replies within the 3
// second upstream budget: verification and routing are local, and the only
// work that follows acceptance (cache invalidation, sync log append) runs
// against already-local state, never against the upstream (Invariant I5).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	cfg, err := h.config.GetWebhookConfig(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("webhook: failed to load config")
		http.Error(w, "configuration unavailable", http.StatusInternalServerError)
		return
	}

	if cfg.Mode == ModeCapture && time.Since(cfg.CaptureStartedAt) < CaptureWindow {
		h.handleCapture(ctx, w, r, body)
		return
	}

	h.handleNormal(ctx, w, r, body, cfg)
}

func (h *Handler) handleCapture(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte) {
	headers := map[string]string{
		"x-hook-secret":     r.Header.Get("x-hook-secret"),
		"x-webhook-secret":  r.Header.Get("x-webhook-secret"),
		"webhook-secret":    r.Header.Get("webhook-secret"),
	}

	var fields map[string]any
	_ = json.Unmarshal(body, &fields)

	secret, found := ExtractCaptureSecret(headers, fields)
	if found {
		if err := h.config.SaveCaptureResult(ctx, CaptureResult{
			Secret:     secret,
			CapturedAt: time.Now(),
			SourceIP:   r.RemoteAddr,
		}); err != nil {
			h.log.Error().Err(err).Msg("webhook: failed to persist captured secret")
		} else {
			h.log.Info().Msg("webhook: captured verification secret, disabling capture mode")
		}
	}

	writeReceived(w)
}

func (h *Handler) handleNormal(ctx context.Context, w http.ResponseWriter, r *http.Request, body []byte, cfg Config) {
	if cfg.Secret == "" {
		http.Error(w, "webhook secret not configured", http.StatusInternalServerError)
		return
	}
	if !VerifySignature(r.Header.Get("x-notion-signature"), body, cfg.Secret) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	// Respond immediately; everything below touches only local state.
	writeReceived(w)

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.log.Warn().Err(err).Msg("webhook: malformed envelope, ignoring")
		return
	}

	eventID := r.Header.Get("x-notion-event-id")
	if eventID == "" {
		eventID = env.Data.ID + ":" + env.Type
	}
	if h.dedup.SeenOrMark(ctx, eventID) {
		h.log.Debug().Str("event_id", eventID).Msg("webhook: duplicate delivery, acknowledged without reprocessing")
		return
	}

	h.process(ctx, env, eventID, cfg)
}

func (h *Handler) process(ctx context.Context, env Envelope, eventID string, cfg Config) {
	started := time.Now()
	sourceID := env.sourceID()
	kind, known := cfg.DatabaseIDToKind[sourceID]
	if !known {
		h.log.Info().Str("source_id", sourceID).Msg("webhook: unknown database id, skipping")
		return
	}

	invalidated := h.cache.InvalidatePattern(kind + ":*")
	if kind == "task" {
		invalidated += h.cache.InvalidatePattern("tasks:calendar:*")
	}

	status := "success"
	if err := h.logger.AppendSyncLog(ctx, kind, sourceID, status, started, time.Now(), eventID, ""); err != nil {
		h.log.Error().Err(err).Msg("webhook: failed to append sync log")
	}

	h.log.Info().Str("kind", kind).Int("invalidated", invalidated).Str("event_id", eventID).
		Msg("webhook: processed delivery")
}

func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"received":true}`))
}
