package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blogem/oauth-login/models"
)

// memoryFlowStateRepository keeps flow states in process memory.
// State is lost on restart, which only abandons in-flight logins.
type memoryFlowStateRepository struct {
	mu     sync.Mutex
	states map[string]*models.FlowState // keyed by fingerprint
	byID   map[string]string            // id -> fingerprint
}

// NewMemoryFlowStateRepository creates an in-memory flow state repository
func NewMemoryFlowStateRepository() FlowStateRepository {
	return &memoryFlowStateRepository{
		states: make(map[string]*models.FlowState),
		byID:   make(map[string]string),
	}
}

// Create stores a new state and lazily evicts expired ones
func (r *memoryFlowStateRepository) Create(ctx context.Context, state *models.FlowState) error {
	if state.StateToken == "" {
		return errors.New("state token is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictLocked(state.CreatedAt)

	key := fingerprint(state.StateToken)
	if _, exists := r.states[key]; exists {
		return fmt.Errorf("failed to create flow state: duplicate state token")
	}

	stored := *state
	stored.StateToken = ""
	r.states[key] = &stored
	r.byID[state.ID] = key

	return nil
}

// Consume marks an awaiting state as consumed under the lock
func (r *memoryFlowStateRepository) Consume(ctx context.Context, stateToken string, now time.Time) (*models.FlowState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.states[fingerprint(stateToken)]
	if !ok || stored.Phase != models.PhaseAwaitingCallback {
		return nil, ErrStateNotFound
	}

	consumedAt := now
	stored.Phase = models.PhaseConsumed
	stored.ConsumedAt = &consumedAt

	result := *stored
	result.StateToken = stateToken
	return &result, nil
}

// Finish records the terminal outcome of a consumed state
func (r *memoryFlowStateRepository) Finish(ctx context.Context, id string, phase models.FlowPhase, now time.Time) error {
	if !models.PhaseConsumed.CanTransition(phase) {
		return fmt.Errorf("%w: consumed -> %s", ErrInvalidTransition, phase)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byID[id]
	if !ok {
		return ErrStateNotFound
	}
	stored := r.states[key]
	if stored.Phase != models.PhaseConsumed {
		return ErrStateNotFound
	}
	stored.Phase = phase

	return nil
}

// DeleteExpired removes states whose TTL has elapsed. Consumed states get
// ConsumedGracePeriod on top.
func (r *memoryFlowStateRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.evictLocked(now), nil
}

func (r *memoryFlowStateRepository) evictLocked(now time.Time) int64 {
	var removed int64
	for key, state := range r.states {
		cutoff := now
		if state.Phase == models.PhaseConsumed {
			cutoff = now.Add(-ConsumedGracePeriod)
		}
		if state.IsExpired(cutoff) {
			delete(r.states, key)
			delete(r.byID, state.ID)
			removed++
		}
	}
	return removed
}
