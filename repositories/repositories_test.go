package repositories

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blogem/oauth-login/database"
	"github.com/blogem/oauth-login/models"
)

func setupTestDB(t *testing.T) *sql.DB {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Initialize test database using the actual migration system
	db, err := database.InitializeDatabase(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newFlowState(id, token string, created time.Time) *models.FlowState {
	return &models.FlowState{
		ID:         id,
		StateToken: token,
		Phase:      models.PhaseAwaitingCallback,
		CreatedAt:  created,
		ExpiresAt:  created.Add(10 * time.Minute),
	}
}

// flowStateRepositories returns every implementation so they share one contract
func flowStateRepositories(t *testing.T) map[string]FlowStateRepository {
	return map[string]FlowStateRepository{
		"sqlite": NewFlowStateRepository(setupTestDB(t)),
		"memory": NewMemoryFlowStateRepository(),
	}
}

func TestFlowStateRepository_ConsumeOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, repo := range flowStateRepositories(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Create(ctx, newFlowState("01J0000000000000000000000A", "state-a", now)); err != nil {
				t.Fatalf("Failed to create flow state: %v", err)
			}

			consumed, err := repo.Consume(ctx, "state-a", now.Add(time.Minute))
			if err != nil {
				t.Fatalf("Failed to consume flow state: %v", err)
			}
			if consumed.ID != "01J0000000000000000000000A" {
				t.Errorf("Expected consumed ID to match, got %s", consumed.ID)
			}
			if consumed.Phase != models.PhaseConsumed {
				t.Errorf("Expected phase consumed, got %s", consumed.Phase)
			}
			if consumed.ConsumedAt == nil {
				t.Error("Expected consumed_at to be set")
			}
			if !consumed.ExpiresAt.Equal(now.Add(10 * time.Minute)) {
				t.Errorf("Expected expires_at %v, got %v", now.Add(10*time.Minute), consumed.ExpiresAt)
			}

			// Second consumption must fail
			if _, err := repo.Consume(ctx, "state-a", now.Add(2*time.Minute)); !errors.Is(err, ErrStateNotFound) {
				t.Errorf("Expected ErrStateNotFound on reuse, got %v", err)
			}
		})
	}
}

func TestFlowStateRepository_UnknownState(t *testing.T) {
	ctx := context.Background()

	for name, repo := range flowStateRepositories(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.Consume(ctx, "does-not-exist", time.Now()); !errors.Is(err, ErrStateNotFound) {
				t.Errorf("Expected ErrStateNotFound, got %v", err)
			}
		})
	}
}

func TestFlowStateRepository_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, repo := range flowStateRepositories(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Create(ctx, newFlowState("01J0000000000000000000000B", "state-b", now)); err != nil {
				t.Fatalf("Failed to create flow state: %v", err)
			}

			const workers = 16
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0

			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := repo.Consume(ctx, "state-b", now); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			if wins != 1 {
				t.Errorf("Expected exactly one successful consume, got %d", wins)
			}
		})
	}
}

func TestFlowStateRepository_Finish(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	for name, repo := range flowStateRepositories(t) {
		t.Run(name, func(t *testing.T) {
			state := newFlowState("01J0000000000000000000000C", "state-c", now)
			if err := repo.Create(ctx, state); err != nil {
				t.Fatalf("Failed to create flow state: %v", err)
			}

			// Cannot finish before consumption
			if err := repo.Finish(ctx, state.ID, models.PhaseCompleted, now); !errors.Is(err, ErrStateNotFound) {
				t.Errorf("Expected ErrStateNotFound before consume, got %v", err)
			}

			if _, err := repo.Consume(ctx, "state-c", now); err != nil {
				t.Fatalf("Failed to consume flow state: %v", err)
			}

			if err := repo.Finish(ctx, state.ID, models.PhaseAwaitingCallback, now); !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Expected ErrInvalidTransition, got %v", err)
			}

			if err := repo.Finish(ctx, state.ID, models.PhaseFailed, now); err != nil {
				t.Fatalf("Failed to finish flow state: %v", err)
			}

			// Terminal phases are final
			if err := repo.Finish(ctx, state.ID, models.PhaseCompleted, now); !errors.Is(err, ErrStateNotFound) {
				t.Errorf("Expected ErrStateNotFound after terminal phase, got %v", err)
			}
		})
	}
}

func TestFlowStateRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, repo := range flowStateRepositories(t) {
		t.Run(name, func(t *testing.T) {
			if err := repo.Create(ctx, newFlowState("01J0000000000000000000000D", "old", now)); err != nil {
				t.Fatalf("Failed to create old flow state: %v", err)
			}
			if err := repo.Create(ctx, newFlowState("01J0000000000000000000000E", "fresh", now.Add(8*time.Minute))); err != nil {
				t.Fatalf("Failed to create fresh flow state: %v", err)
			}

			removed, err := repo.DeleteExpired(ctx, now.Add(11*time.Minute))
			if err != nil {
				t.Fatalf("Failed to delete expired flow states: %v", err)
			}
			if removed != 1 {
				t.Errorf("Expected 1 expired state removed, got %d", removed)
			}

			if _, err := repo.Consume(ctx, "old", now.Add(11*time.Minute)); !errors.Is(err, ErrStateNotFound) {
				t.Errorf("Expected evicted state to be gone, got %v", err)
			}
			if _, err := repo.Consume(ctx, "fresh", now.Add(11*time.Minute)); err != nil {
				t.Errorf("Expected fresh state to survive, got %v", err)
			}
		})
	}
}

func TestFlowStateRepository_DeleteExpiredKeepsConsumedInGracePeriod(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for name, repo := range flowStateRepositories(t) {
		t.Run(name, func(t *testing.T) {
			state := newFlowState("01J0000000000000000000000F", "in-flight", now)
			if err := repo.Create(ctx, state); err != nil {
				t.Fatalf("Failed to create flow state: %v", err)
			}
			if _, err := repo.Consume(ctx, "in-flight", now.Add(9*time.Minute)); err != nil {
				t.Fatalf("Failed to consume flow state: %v", err)
			}

			afterTTL := now.Add(11 * time.Minute)
			removed, err := repo.DeleteExpired(ctx, afterTTL)
			if err != nil {
				t.Fatalf("Failed to delete expired flow states: %v", err)
			}
			if removed != 0 {
				t.Errorf("Expected consumed state to survive its TTL, %d removed", removed)
			}
			if err := repo.Finish(ctx, state.ID, models.PhaseCompleted, afterTTL); err != nil {
				t.Errorf("Expected Finish to succeed after TTL, got %v", err)
			}

			// Consumed but never finished, e.g. the process stopped mid exchange
			stuck := newFlowState("01J0000000000000000000000G", "stuck", now)
			if err := repo.Create(ctx, stuck); err != nil {
				t.Fatalf("Failed to create flow state: %v", err)
			}
			if _, err := repo.Consume(ctx, "stuck", now.Add(time.Minute)); err != nil {
				t.Fatalf("Failed to consume flow state: %v", err)
			}

			removed, err = repo.DeleteExpired(ctx, stuck.ExpiresAt.Add(ConsumedGracePeriod))
			if err != nil {
				t.Fatalf("Failed to delete expired flow states: %v", err)
			}
			if removed != 2 {
				t.Errorf("Expected finished and stuck states removed, got %d", removed)
			}
		})
	}
}

func TestFlowStateRepository_DoesNotStoreRawToken(t *testing.T) {
	db := setupTestDB(t)
	repo := NewFlowStateRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, newFlowState("01J0000000000000000000000F", "raw-secret-state", time.Now())); err != nil {
		t.Fatalf("Failed to create flow state: %v", err)
	}

	var stored string
	if err := db.QueryRow("SELECT state_hash FROM flow_states WHERE id = ?", "01J0000000000000000000000F").Scan(&stored); err != nil {
		t.Fatalf("Failed to read state hash: %v", err)
	}
	if stored == "raw-secret-state" {
		t.Error("Expected state token to be stored as a fingerprint")
	}
	if stored != fingerprint("raw-secret-state") {
		t.Errorf("Expected fingerprint %s, got %s", fingerprint("raw-secret-state"), stored)
	}
}

func TestAuditRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []*models.AuditLogEntry{
		{Timestamp: base, Event: models.AuditLoginStarted, AttemptID: "a1", IPAddress: "10.0.0.1"},
		{Timestamp: base.Add(time.Minute), Event: models.AuditLoginCompleted, AttemptID: "a1", UserEmail: "jane@example.com", Outcome: "ok"},
		{Timestamp: base.Add(2 * time.Minute), Event: models.AuditLogout, UserEmail: "jane@example.com"},
		{Timestamp: base.Add(3 * time.Minute), Event: models.AuditLoginCompleted, UserEmail: "bob@example.com"},
	}
	for _, entry := range entries {
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Failed to create audit entry: %v", err)
		}
		if entry.ID == 0 {
			t.Error("Expected audit entry ID to be set after creation")
		}
	}

	janes, err := repo.ListByUser(ctx, "jane@example.com", 10)
	if err != nil {
		t.Fatalf("Failed to list audit entries: %v", err)
	}
	if len(janes) != 2 {
		t.Fatalf("Expected 2 entries for jane, got %d", len(janes))
	}
	if janes[0].Event != models.AuditLogout {
		t.Errorf("Expected newest entry first, got %s", janes[0].Event)
	}

	removed, err := repo.DeleteOlderThan(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Failed to prune audit log: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 pruned entries, got %d", removed)
	}
}
