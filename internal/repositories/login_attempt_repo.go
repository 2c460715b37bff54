package repositories

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/BradenHooton/riskgate/internal/database"
	"github.com/BradenHooton/riskgate/internal/models"
	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository is the postgres history store
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Record inserts a login attempt
func (r *LoginAttemptRepository) Record(ctx context.Context, attempt *models.LoginAttempt) error {
	if attempt == nil || attempt.Identity == "" {
		return fmt.Errorf("%w: attempt without identity", models.ErrBadRequest)
	}

	query := `
		INSERT INTO login_attempts (id, identity, attempt_time, ip_address, device_fingerprint, risk_score, decision)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.ID,
		attempt.Identity,
		attempt.AttemptTime,
		attempt.IPAddress,
		attempt.DeviceFingerprint,
		attempt.RiskScore,
		string(attempt.Decision),
	)

	return database.MapPostgresError(err)
}

// RecentSince returns attempts for an identity recorded strictly after since, newest first
func (r *LoginAttemptRepository) RecentSince(ctx context.Context, identity string, since time.Time) (iter.Seq[models.LoginAttempt], error) {
	query := `
		SELECT id, identity, attempt_time, ip_address, device_fingerprint, risk_score, decision
		FROM login_attempts
		WHERE identity = $1 AND attempt_time > $2
		ORDER BY attempt_time DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, identity, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent attempts: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.LoginAttempt])
	if err != nil {
		return nil, fmt.Errorf("failed to scan recent attempts: %w", err)
	}

	return slices.Values(attempts), nil
}

// KnownDevices returns the distinct non-empty device fingerprints recorded for an identity
func (r *LoginAttemptRepository) KnownDevices(ctx context.Context, identity string) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT device_fingerprint FROM login_attempts
		WHERE identity = $1 AND device_fingerprint IS NOT NULL AND device_fingerprint <> ''
	`

	rows, err := r.db.Pool.Query(ctx, query, identity)
	if err != nil {
		return nil, fmt.Errorf("failed to query known devices: %w", err)
	}

	fingerprints, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan known devices: %w", err)
	}

	devices := make(map[string]struct{}, len(fingerprints))
	for _, fp := range fingerprints {
		devices[fp] = struct{}{}
	}
	return devices, nil
}

// Count returns the number of attempts recorded for an identity
func (r *LoginAttemptRepository) Count(ctx context.Context, identity string) (int, error) {
	query := `SELECT COUNT(*) FROM login_attempts WHERE identity = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, identity).Scan(&count)
	return count, err
}

// Prune removes attempts older than the cutoff
func (r *LoginAttemptRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempt_time < $1`
	tag, err := r.db.Pool.Exec(ctx, query, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Ping checks the database connection
func (r *LoginAttemptRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
