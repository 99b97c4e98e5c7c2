package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/blogem/oauth-login/models"
	"github.com/blogem/oauth-login/repositories/mocks"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

// AuditServiceTestSuite is a test suite for the audit service
type AuditServiceTestSuite struct {
	suite.Suite
	service       *auditService
	mockAuditRepo *mocks.MockAuditRepository
	meta          RequestMeta
}

// SetupTest sets up the test suite before each test
func (suite *AuditServiceTestSuite) SetupTest() {
	suite.mockAuditRepo = mocks.NewMockAuditRepository(suite.T())
	suite.service = &auditService{
		auditRepo: suite.mockAuditRepo,
		now:       func() time.Time { return fixedNow },
	}
	suite.meta = RequestMeta{IPAddress: "203.0.113.7", UserAgent: "test-agent"}
}

func (suite *AuditServiceTestSuite) expectEntry(want models.AuditLogEntry) {
	suite.mockAuditRepo.EXPECT().Create(mock.Anything, mock.MatchedBy(func(got *models.AuditLogEntry) bool {
		return *got == want
	})).Return(nil)
}

// TestLoginStarted records a pending attempt
func (suite *AuditServiceTestSuite) TestLoginStarted() {
	suite.expectEntry(models.AuditLogEntry{
		Timestamp: fixedNow,
		Event:     models.AuditLoginStarted,
		AttemptID: "01HZX",
		Outcome:   "pending",
		UserAgent: "test-agent",
		IPAddress: "203.0.113.7",
	})

	suite.service.LoginStarted(context.Background(), "01HZX", suite.meta)
}

// TestLoginCompleted records the signed in user
func (suite *AuditServiceTestSuite) TestLoginCompleted() {
	suite.expectEntry(models.AuditLogEntry{
		Timestamp: fixedNow,
		Event:     models.AuditLoginCompleted,
		AttemptID: "01HZX",
		UserEmail: "ada@example.com",
		Outcome:   "success",
		UserAgent: "test-agent",
		IPAddress: "203.0.113.7",
	})

	suite.service.LoginCompleted(context.Background(), "01HZX", "ada@example.com", suite.meta)
}

// TestLoginFailed records the failure kind as outcome
func (suite *AuditServiceTestSuite) TestLoginFailed() {
	suite.expectEntry(models.AuditLogEntry{
		Timestamp: fixedNow,
		Event:     models.AuditLoginFailed,
		AttemptID: "01HZX",
		Outcome:   "invalid_state",
		UserAgent: "test-agent",
		IPAddress: "203.0.113.7",
	})

	suite.service.LoginFailed(context.Background(), "01HZX", "invalid_state", suite.meta)
}

// TestLogout records the user signing out
func (suite *AuditServiceTestSuite) TestLogout() {
	suite.expectEntry(models.AuditLogEntry{
		Timestamp: fixedNow,
		Event:     models.AuditLogout,
		UserEmail: "ada@example.com",
		Outcome:   "success",
		UserAgent: "test-agent",
		IPAddress: "203.0.113.7",
	})

	suite.service.Logout(context.Background(), "ada@example.com", suite.meta)
}

// TestRecord_RepositoryError does not propagate audit failures
func (suite *AuditServiceTestSuite) TestRecord_RepositoryError() {
	suite.mockAuditRepo.EXPECT().Create(mock.Anything, mock.Anything).Return(errors.New("database is locked"))

	assert.NotPanics(suite.T(), func() {
		suite.service.LoginStarted(context.Background(), "01HZX", suite.meta)
	})
}

// TestRecentActivity delegates to the repository
func (suite *AuditServiceTestSuite) TestRecentActivity() {
	entries := []models.AuditLogEntry{{ID: 2, Event: models.AuditLoginCompleted}, {ID: 1, Event: models.AuditLoginStarted}}
	suite.mockAuditRepo.EXPECT().ListByUser(mock.Anything, "ada@example.com", 5).Return(entries, nil)

	got, err := suite.service.RecentActivity(context.Background(), "ada@example.com", 5)

	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), entries, got)
}

// TestRecentActivity_NoEmail skips the lookup for users without an email
func (suite *AuditServiceTestSuite) TestRecentActivity_NoEmail() {
	got, err := suite.service.RecentActivity(context.Background(), "", 5)

	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), got)
}

func TestAuditServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceTestSuite))
}

// HousekeepingServiceTestSuite is a test suite for the housekeeping service
type HousekeepingServiceTestSuite struct {
	suite.Suite
	service        *HousekeepingService
	mockFlowStates *mocks.MockFlowStateRepository
	mockAuditRepo  *mocks.MockAuditRepository
}

// SetupTest sets up the test suite before each test
func (suite *HousekeepingServiceTestSuite) SetupTest() {
	suite.mockFlowStates = mocks.NewMockFlowStateRepository(suite.T())
	suite.mockAuditRepo = mocks.NewMockAuditRepository(suite.T())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.service = NewHousekeepingService(suite.mockFlowStates, suite.mockAuditRepo, logger, time.Hour, 24*time.Hour)
	suite.service.now = func() time.Time { return fixedNow }
}

// TestCleanup deletes expired states and old audit rows
func (suite *HousekeepingServiceTestSuite) TestCleanup() {
	suite.mockFlowStates.EXPECT().DeleteExpired(mock.Anything, fixedNow).Return(int64(3), nil)
	suite.mockAuditRepo.EXPECT().DeleteOlderThan(mock.Anything, fixedNow.Add(-24*time.Hour)).Return(int64(10), nil)

	suite.service.Cleanup(context.Background())
}

// TestCleanup_FlowStateErrorDoesNotSkipAudit keeps going after a failure
func (suite *HousekeepingServiceTestSuite) TestCleanup_FlowStateErrorDoesNotSkipAudit() {
	suite.mockFlowStates.EXPECT().DeleteExpired(mock.Anything, fixedNow).Return(int64(0), errors.New("database connection failed"))
	suite.mockAuditRepo.EXPECT().DeleteOlderThan(mock.Anything, mock.Anything).Return(int64(0), nil)

	suite.service.Cleanup(context.Background())
}

// TestStartStop runs an initial cleanup and shuts down cleanly
func (suite *HousekeepingServiceTestSuite) TestStartStop() {
	ran := make(chan struct{})
	suite.mockFlowStates.EXPECT().DeleteExpired(mock.Anything, fixedNow).Return(int64(0), nil).Once()
	suite.mockAuditRepo.EXPECT().DeleteOlderThan(mock.Anything, mock.Anything).
		Run(func(ctx context.Context, cutoff time.Time) { close(ran) }).
		Return(int64(0), nil).Once()

	suite.service.Start()
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		suite.T().Fatal("initial cleanup did not run")
	}
	suite.service.Stop()
}

func TestHousekeepingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(HousekeepingServiceTestSuite))
}

func TestNewHousekeepingService_Defaults(t *testing.T) {
	s := NewHousekeepingService(nil, nil, nil, 0, 0)

	assert.Equal(t, DefaultHousekeepingInterval, s.Interval)
	assert.Equal(t, DefaultAuditRetention, s.AuditRetention)
	assert.NotNil(t, s.Logger)
}
