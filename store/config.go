package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mattertraffic/syncgw/syncerr"
	"github.com/mattertraffic/syncgw/webhook"
)

// ConfigRepo persists the single-row per-environment upstream_configs table:
// encrypted upstream integration token, encrypted webhook secret,
// database-id-to-kind map, capture-mode block, audit trail.
type ConfigRepo struct {
	pool          *Pool
	encryptionKey []byte
}

func NewConfigRepo(p *Pool, encryptionKey []byte) *ConfigRepo {
	return &ConfigRepo{pool: p, encryptionKey: encryptionKey}
}

// GetWebhookConfig implements webhook.ConfigStore.
func (r *ConfigRepo) GetWebhookConfig(ctx context.Context) (webhook.Config, error) {
	const q = `
		SELECT mode, webhook_secret_enc, capture_started_at, database_id_map
		FROM upstream_configs WHERE env = 'default'`
	var (
		mode             string
		secretEnc        *string
		captureStartedAt *time.Time
		mapJSON          []byte
	)
	err := r.pool.pool.QueryRow(ctx, q).Scan(&mode, &secretEnc, &captureStartedAt, &mapJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return webhook.Config{}, syncerr.New(syncerr.KindNotFound, "upstream config not provisioned")
	}
	if err != nil {
		return webhook.Config{}, syncerr.Wrap(syncerr.KindInternal, "failed to load upstream config", err)
	}

	cfg := webhook.Config{Mode: webhook.Mode(mode)}
	if captureStartedAt != nil {
		cfg.CaptureStartedAt = *captureStartedAt
	}
	if secretEnc != nil && *secretEnc != "" {
		secret, err := decrypt(*secretEnc, r.encryptionKey)
		if err != nil {
			return webhook.Config{}, err
		}
		cfg.Secret = secret
	}
	cfg.DatabaseIDToKind = make(map[string]string)
	if len(mapJSON) > 0 {
		_ = json.Unmarshal(mapJSON, &cfg.DatabaseIDToKind)
	}
	return cfg, nil
}

// SaveCaptureResult implements webhook.ConfigStore: persists the captured
// secret encrypted, and flips mode back to normal since capture is one-shot.
func (r *ConfigRepo) SaveCaptureResult(ctx context.Context, result webhook.CaptureResult) error {
	enc, err := encrypt(result.Secret, r.encryptionKey)
	if err != nil {
		return err
	}
	const q = `
		UPDATE upstream_configs SET
			mode = 'normal',
			webhook_secret_enc = $1,
			updated_at = NOW()
		WHERE env = 'default'`
	_, err = r.pool.pool.Exec(ctx, q, enc)
	if err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to persist captured webhook secret", err)
	}
	return nil
}

// GetUpstreamToken decrypts and returns the persisted integration token. It
// returns a KindNotFound error when no token is persisted; it does not look
// at the environment token itself.
func (r *ConfigRepo) GetUpstreamToken(ctx context.Context) (string, error) {
	const q = `SELECT upstream_token_enc FROM upstream_configs WHERE env = 'default'`
	var tokenEnc *string
	err := r.pool.pool.QueryRow(ctx, q).Scan(&tokenEnc)
	if errors.Is(err, pgx.ErrNoRows) || tokenEnc == nil || *tokenEnc == "" {
		return "", syncerr.New(syncerr.KindNotFound, "no persisted upstream token")
	}
	if err != nil {
		return "", syncerr.Wrap(syncerr.KindInternal, "failed to load upstream token", err)
	}
	return decrypt(*tokenEnc, r.encryptionKey)
}

// SetUpstreamToken encrypts and upserts the integration token.
func (r *ConfigRepo) SetUpstreamToken(ctx context.Context, token string) error {
	enc, err := encrypt(token, r.encryptionKey)
	if err != nil {
		return err
	}
	const q = `
		INSERT INTO upstream_configs (env, upstream_token_enc, mode, created_at, updated_at)
		VALUES ('default', $1, 'normal', NOW(), NOW())
		ON CONFLICT (env) DO UPDATE SET upstream_token_enc = EXCLUDED.upstream_token_enc, updated_at = NOW()`
	_, err = r.pool.pool.Exec(ctx, q, enc)
	if err != nil {
		return syncerr.Wrap(syncerr.KindInternal, "failed to persist upstream token", err)
	}
	return nil
}
