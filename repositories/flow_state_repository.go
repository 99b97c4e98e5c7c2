package repositories

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/blogem/oauth-login/models"
)

var (
	// ErrStateNotFound is returned when a state token is unknown or was already consumed
	ErrStateNotFound = errors.New("flow state not found")
	// ErrInvalidTransition is returned when a phase change is not allowed
	ErrInvalidTransition = errors.New("invalid flow state transition")
)

// ConsumedGracePeriod keeps consumed states past their TTL so an exchange
// still in flight can record its outcome.
const ConsumedGracePeriod = time.Hour

// FlowStateRepository stores login attempts keyed by their state token.
// Consume must check and mark in a single critical section.
type FlowStateRepository interface {
	Create(ctx context.Context, state *models.FlowState) error
	Consume(ctx context.Context, stateToken string, now time.Time) (*models.FlowState, error)
	Finish(ctx context.Context, id string, phase models.FlowPhase, now time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// fingerprint returns the storage key for a state token so raw tokens never hit disk
func fingerprint(stateToken string) string {
	sum := sha256.Sum256([]byte(stateToken))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// flowStateRepository implements FlowStateRepository on SQLite
type flowStateRepository struct {
	db *sql.DB
}

// NewFlowStateRepository creates a new SQLite backed flow state repository
func NewFlowStateRepository(db *sql.DB) FlowStateRepository {
	return &flowStateRepository{db: db}
}

// Create inserts a new flow state awaiting its callback
func (r *flowStateRepository) Create(ctx context.Context, state *models.FlowState) error {
	if state.StateToken == "" {
		return errors.New("state token is required")
	}

	query := `
		INSERT INTO flow_states (id, state_hash, phase, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		state.ID,
		fingerprint(state.StateToken),
		string(state.Phase),
		state.CreatedAt.UTC(),
		state.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create flow state: %w", err)
	}

	return nil
}

// Consume atomically marks an awaiting state as consumed and returns it.
// The conditional UPDATE is the check-and-mark; only one caller can win it.
func (r *flowStateRepository) Consume(ctx context.Context, stateToken string, now time.Time) (*models.FlowState, error) {
	hash := fingerprint(stateToken)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE flow_states
		SET phase = ?, consumed_at = ?
		WHERE state_hash = ? AND phase = ?
	`, string(models.PhaseConsumed), now.UTC(), hash, string(models.PhaseAwaitingCallback))
	if err != nil {
		return nil, fmt.Errorf("failed to consume flow state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check consumed rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrStateNotFound
	}

	var state models.FlowState
	var phase string
	var consumedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT id, phase, created_at, expires_at, consumed_at
		FROM flow_states
		WHERE state_hash = ?
	`, hash).Scan(&state.ID, &phase, &state.CreatedAt, &state.ExpiresAt, &consumedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load consumed flow state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit flow state consumption: %w", err)
	}

	state.Phase = models.FlowPhase(phase)
	state.StateToken = stateToken
	if consumedAt.Valid {
		state.ConsumedAt = &consumedAt.Time
	}

	return &state, nil
}

// Finish records the terminal outcome of a consumed state
func (r *flowStateRepository) Finish(ctx context.Context, id string, phase models.FlowPhase, now time.Time) error {
	if !models.PhaseConsumed.CanTransition(phase) {
		return fmt.Errorf("%w: consumed -> %s", ErrInvalidTransition, phase)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE flow_states
		SET phase = ?, finished_at = ?
		WHERE id = ? AND phase = ?
	`, string(phase), now.UTC(), id, string(models.PhaseConsumed))
	if err != nil {
		return fmt.Errorf("failed to finish flow state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finished rows: %w", err)
	}
	if affected == 0 {
		return ErrStateNotFound
	}

	return nil
}

// DeleteExpired removes states whose TTL has elapsed. Consumed states get
// ConsumedGracePeriod on top.
func (r *flowStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM flow_states
		WHERE (phase != ? AND expires_at <= ?)
		   OR (phase = ? AND expires_at <= ?)
	`,
		string(models.PhaseConsumed), now.UTC(),
		string(models.PhaseConsumed), now.Add(-ConsumedGracePeriod).UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired flow states: %w", err)
	}

	return result.RowsAffected()
}
