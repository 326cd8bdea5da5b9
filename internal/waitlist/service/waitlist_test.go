package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"gymflow/internal/waitlist/repository"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/kafka"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	mongotx "gymflow/pkg/db/mongo"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mock repository for testing
type mockWaitingListRepository struct {
	createFunc              func(ctx context.Context, entry *model.WaitingListEntry) error
	findByIDFunc            func(ctx context.Context, id string) (*model.WaitingListEntry, error)
	findWaitingFunc         func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error)
	findAssignedFunc        func(ctx context.Context, sessionID string) (*model.WaitingListEntry, error)
	findExpiredFunc         func(ctx context.Context, sessionID string, now time.Time) ([]*model.WaitingListEntry, error)
	findByMemberFunc        func(ctx context.Context, memberID string) ([]*model.WaitingListEntry, error)
	findActiveFunc          func(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error)
	updateFunc              func(ctx context.Context, id string, fields bson.M) error
	shiftPositionsFunc      func(ctx context.Context, sessionID string, fromPosition int, delta int) error
	countWaitingFunc        func(ctx context.Context, sessionID string) (int64, error)
	aggregateDemandFunc     func(ctx context.Context) ([]*repository.SessionDemand, error)
	executeTransactionFunc  func(ctx context.Context, fn mongotx.TransactionFunc) error
}

func (m *mockWaitingListRepository) Create(ctx context.Context, entry *model.WaitingListEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	return nil
}

func (m *mockWaitingListRepository) FindByID(ctx context.Context, id string) (*model.WaitingListEntry, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, errors.New("not configured")
}

func (m *mockWaitingListRepository) FindWaitingBySession(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
	if m.findWaitingFunc != nil {
		return m.findWaitingFunc(ctx, sessionID)
	}
	return []*model.WaitingListEntry{}, nil
}

func (m *mockWaitingListRepository) FindAssignedBySession(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
	if m.findAssignedFunc != nil {
		return m.findAssignedFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockWaitingListRepository) FindExpiredAssigned(ctx context.Context, sessionID string, now time.Time) ([]*model.WaitingListEntry, error) {
	if m.findExpiredFunc != nil {
		return m.findExpiredFunc(ctx, sessionID, now)
	}
	return []*model.WaitingListEntry{}, nil
}

func (m *mockWaitingListRepository) FindByMember(ctx context.Context, memberID string) ([]*model.WaitingListEntry, error) {
	if m.findByMemberFunc != nil {
		return m.findByMemberFunc(ctx, memberID)
	}
	return []*model.WaitingListEntry{}, nil
}

func (m *mockWaitingListRepository) FindActiveBySessionAndMember(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
	if m.findActiveFunc != nil {
		return m.findActiveFunc(ctx, sessionID, memberID)
	}
	return nil, nil
}

func (m *mockWaitingListRepository) Update(ctx context.Context, id string, fields bson.M) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, fields)
	}
	return nil
}

func (m *mockWaitingListRepository) ShiftPositions(ctx context.Context, sessionID string, fromPosition int, delta int) error {
	if m.shiftPositionsFunc != nil {
		return m.shiftPositionsFunc(ctx, sessionID, fromPosition, delta)
	}
	return nil
}

func (m *mockWaitingListRepository) CountWaiting(ctx context.Context, sessionID string) (int64, error) {
	if m.countWaitingFunc != nil {
		return m.countWaitingFunc(ctx, sessionID)
	}
	return 0, nil
}

func (m *mockWaitingListRepository) AggregateDemand(ctx context.Context) ([]*repository.SessionDemand, error) {
	if m.aggregateDemandFunc != nil {
		return m.aggregateDemandFunc(ctx)
	}
	return []*repository.SessionDemand{}, nil
}

func (m *mockWaitingListRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	if m.executeTransactionFunc != nil {
		return m.executeTransactionFunc(ctx, fn)
	}
	return fn(nil)
}

type mockQueueLockRepository struct {
	createFunc func(ctx context.Context, lock *model.QueueLock) (*model.QueueLock, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockQueueLockRepository) Create(ctx context.Context, lock *model.QueueLock) (*model.QueueLock, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, lock)
	}
	return lock, nil
}

func (m *mockQueueLockRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockEnrollmentGateway struct {
	sessionCapacityFunc     func(ctx context.Context, sessionID string) (int, error)
	acceptsEnrollmentsFunc  func(ctx context.Context, sessionID string) (bool, error)
	registeredCountFunc     func(ctx context.Context, sessionID string) (int64, error)
	hasActiveEnrollmentFunc func(ctx context.Context, sessionID, memberID string) (bool, error)
	createEnrollmentFunc    func(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error)
}

func (m *mockEnrollmentGateway) SessionCapacity(ctx context.Context, sessionID string) (int, error) {
	if m.sessionCapacityFunc != nil {
		return m.sessionCapacityFunc(ctx, sessionID)
	}
	return 10, nil
}

func (m *mockEnrollmentGateway) AcceptsEnrollments(ctx context.Context, sessionID string) (bool, error) {
	if m.acceptsEnrollmentsFunc != nil {
		return m.acceptsEnrollmentsFunc(ctx, sessionID)
	}
	return true, nil
}

func (m *mockEnrollmentGateway) RegisteredCount(ctx context.Context, sessionID string) (int64, error) {
	if m.registeredCountFunc != nil {
		return m.registeredCountFunc(ctx, sessionID)
	}
	return 10, nil
}

func (m *mockEnrollmentGateway) HasActiveEnrollment(ctx context.Context, sessionID, memberID string) (bool, error) {
	if m.hasActiveEnrollmentFunc != nil {
		return m.hasActiveEnrollmentFunc(ctx, sessionID, memberID)
	}
	return false, nil
}

func (m *mockEnrollmentGateway) CreateEnrollment(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error) {
	if m.createEnrollmentFunc != nil {
		return m.createEnrollmentFunc(ctx, sessionID, memberID, source)
	}
	return &model.Enrollment{ID: "enrollment-1", SessionID: sessionID, MemberID: memberID, Source: source}, nil
}

type mockMemberDirectory struct {
	memberExistsFunc func(ctx context.Context, memberID string) (bool, error)
}

func (m *mockMemberDirectory) MemberExists(ctx context.Context, memberID string) (bool, error) {
	if m.memberExistsFunc != nil {
		return m.memberExistsFunc(ctx, memberID)
	}
	return true, nil
}

type mockSubscriptionSource struct {
	activeSubscriptionFunc func(ctx context.Context, memberID string) (*model.Subscription, error)
}

func (m *mockSubscriptionSource) ActiveSubscription(ctx context.Context, memberID string) (*model.Subscription, error) {
	if m.activeSubscriptionFunc != nil {
		return m.activeSubscriptionFunc(ctx, memberID)
	}
	return nil, nil
}

type mockPublisher struct {
	published []kafka.Message
}

func (m *mockPublisher) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	return nil
}

const (
	testSessionID = "3f2c1a0e-9b8d-4c7a-a1b2-c3d4e5f60718"
	testMemberID  = "7a6b5c4d-3e2f-4a1b-8c9d-0e1f2a3b4c5d"
	testEntryID   = "11111111-2222-4333-8444-555555555555"
)

func newTestConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   logger.LevelError,
			Format:  logger.FormatJSON,
			Service: "test",
		}),
		ReadTimeout:               5 * time.Second,
		WriteTimeout:              5 * time.Second,
		ApprovalWindow:            24 * time.Hour,
		QueueLockTTL:              10 * time.Second,
		PriorityVIPScore:          1000,
		PriorityActiveScore:       100,
		HighDemandMinWaiting:      3,
		HighDemandMinWaitingHours: 24,
	}
}

func newTestService(
	repo *mockWaitingListRepository,
	locks *mockQueueLockRepository,
	enrollments *mockEnrollmentGateway,
	members *mockMemberDirectory,
	subs *mockSubscriptionSource,
	publisher EventPublisher,
	now time.Time,
) *waitlistService {
	cfg := newTestConfig()
	return &waitlistService{
		repo:        repo,
		lockRepo:    locks,
		enrollments: enrollments,
		members:     members,
		subs:        subs,
		priority:    NewPriorityCalculator(cfg),
		publisher:   publisher,
		cfg:         cfg,
		now:         func() time.Time { return now },
	}
}

func activeSub(planType string, now time.Time) *model.Subscription {
	return &model.Subscription{
		ID:        "sub-1",
		PlanType:  planType,
		Status:    model.SubscriptionStatusActive,
		StartDate: now.Add(-30 * 24 * time.Hour),
		EndDate:   now.Add(30 * 24 * time.Hour),
	}
}

func waitingEntry(id string, position int, createdAt time.Time) *model.WaitingListEntry {
	return &model.WaitingListEntry{
		ID:        id,
		SessionID: testSessionID,
		MemberID:  "member-" + id,
		Status:    model.WaitingStatusWaiting,
		Position:  position,
		CreatedAt: createdAt,
	}
}

func TestAdd_SessionHasFreeCapacity(t *testing.T) {
	now := time.Now().UTC()
	enrollments := &mockEnrollmentGateway{
		sessionCapacityFunc: func(ctx context.Context, sessionID string) (int, error) { return 10, nil },
		registeredCountFunc: func(ctx context.Context, sessionID string) (int64, error) { return 4, nil },
	}

	service := newTestService(
		&mockWaitingListRepository{}, &mockQueueLockRepository{},
		enrollments, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err == nil {
		t.Fatal("expected error for session with free capacity")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", appErr.Code)
	}
}

func TestAdd_ClosedSessionRejected(t *testing.T) {
	now := time.Now().UTC()
	enrollments := &mockEnrollmentGateway{
		acceptsEnrollmentsFunc: func(ctx context.Context, sessionID string) (bool, error) {
			return false, nil
		},
	}

	created := false
	repo := &mockWaitingListRepository{
		createFunc: func(ctx context.Context, entry *model.WaitingListEntry) error {
			created = true
			return nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		enrollments, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err == nil {
		t.Fatal("expected error for a session that no longer accepts enrollments")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", appErr.Code)
	}
	if created {
		t.Error("no entry should be created on a closed session")
	}
}

func TestAdd_DuplicateEntryConflicts(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockWaitingListRepository{
		findActiveFunc: func(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
			return waitingEntry("existing", 1, now), nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err == nil {
		t.Fatal("expected conflict for duplicate entry")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %s", appErr.Code)
	}
}

func TestAdd_VIPInsertsAheadOfLowerScores(t *testing.T) {
	now := time.Now().UTC()

	// Two waiting standard members, stored scores from insertion time.
	existing := []*model.WaitingListEntry{
		waitingEntry("e1", 1, now.Add(-time.Hour)),
		waitingEntry("e2", 2, now.Add(-30*time.Minute)),
	}
	existing[0].PriorityScore = 101
	existing[1].PriorityScore = 100

	var shiftedFrom, shiftedDelta int
	var created *model.WaitingListEntry
	repo := &mockWaitingListRepository{
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			return existing, nil
		},
		shiftPositionsFunc: func(ctx context.Context, sessionID string, fromPosition int, delta int) error {
			shiftedFrom, shiftedDelta = fromPosition, delta
			return nil
		},
		createFunc: func(ctx context.Context, entry *model.WaitingListEntry) error {
			created = entry
			return nil
		},
	}

	subs := &mockSubscriptionSource{
		activeSubscriptionFunc: func(ctx context.Context, memberID string) (*model.Subscription, error) {
			return activeSub(model.PlanTypeVIP, now), nil
		},
	}

	publisher := &mockPublisher{}
	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, subs, publisher, now,
	)

	entry, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Position != 1 {
		t.Errorf("expected VIP at position 1, got %d", entry.Position)
	}
	if shiftedFrom != 1 || shiftedDelta != 1 {
		t.Errorf("expected shift from 1 by +1, got from %d by %d", shiftedFrom, shiftedDelta)
	}
	if created == nil || created.Status != model.WaitingStatusWaiting {
		t.Errorf("expected WAITING entry to be created, got %+v", created)
	}
	if len(publisher.published) != 1 {
		t.Errorf("expected 1 published event, got %d", len(publisher.published))
	}
}

func TestAdd_RanksAgainstStoredScores(t *testing.T) {
	now := time.Now().UTC()

	// Head entry enqueued with no subscription. Its long wait accrues no
	// retroactive rank: the stored score 0 is what later insertions see.
	head := waitingEntry("e1", 1, now.Add(-150*time.Hour))
	head.PriorityScore = 0

	var shiftedFrom int
	var created *model.WaitingListEntry
	repo := &mockWaitingListRepository{
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			return []*model.WaitingListEntry{head}, nil
		},
		shiftPositionsFunc: func(ctx context.Context, sessionID string, fromPosition int, delta int) error {
			shiftedFrom = fromPosition
			return nil
		},
		createFunc: func(ctx context.Context, entry *model.WaitingListEntry) error {
			created = entry
			return nil
		},
	}

	subLookups := 0
	subs := &mockSubscriptionSource{
		activeSubscriptionFunc: func(ctx context.Context, memberID string) (*model.Subscription, error) {
			subLookups++
			return activeSub(model.PlanTypeMonthly, now), nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, subs, nil, now,
	)

	entry, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Position != 1 {
		t.Errorf("expected newcomer ahead of stored score 0, got position %d", entry.Position)
	}
	if shiftedFrom != 1 {
		t.Errorf("expected shift from position 1, got %d", shiftedFrom)
	}
	if created == nil || created.PriorityScore != 100 {
		t.Errorf("expected stored score 100 on the new entry, got %+v", created)
	}
	if subLookups != 1 {
		t.Errorf("only the newcomer's subscription should be loaded, got %d lookups", subLookups)
	}
}

func TestAdd_EqualScoreGoesToTail(t *testing.T) {
	now := time.Now().UTC()

	existing := []*model.WaitingListEntry{
		waitingEntry("e1", 1, now),
		waitingEntry("e2", 2, now),
	}
	existing[0].PriorityScore = 100
	existing[1].PriorityScore = 100

	repo := &mockWaitingListRepository{
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			return existing, nil
		},
	}

	// The newcomer holds the same plan tier as everyone already queued.
	subs := &mockSubscriptionSource{
		activeSubscriptionFunc: func(ctx context.Context, memberID string) (*model.Subscription, error) {
			return activeSub(model.PlanTypeMonthly, now), nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, subs, nil, now,
	)

	entry, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Position != 3 {
		t.Errorf("expected equal score at tail position 3, got %d", entry.Position)
	}
}

func TestAdd_QueueLockedConflicts(t *testing.T) {
	now := time.Now().UTC()
	locks := &mockQueueLockRepository{
		createFunc: func(ctx context.Context, lock *model.QueueLock) (*model.QueueLock, error) {
			return nil, mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
		},
	}

	service := newTestService(
		&mockWaitingListRepository{}, locks,
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Add(context.Background(), testSessionID, testMemberID)
	if err == nil {
		t.Fatal("expected conflict while queue is locked")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected CONFLICT, got %s", appErr.Code)
	}
}

func TestConfirm_Success(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(2 * time.Hour)

	assigned := &model.WaitingListEntry{
		ID:               testEntryID,
		SessionID:        testSessionID,
		MemberID:         testMemberID,
		Status:           model.WaitingStatusAssigned,
		ApprovalDeadline: &deadline,
	}

	var updatedFields bson.M
	repo := &mockWaitingListRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.WaitingListEntry, error) {
			copy := *assigned
			return &copy, nil
		},
		updateFunc: func(ctx context.Context, id string, fields bson.M) error {
			updatedFields = fields
			return nil
		},
	}

	var enrollmentSource string
	enrollments := &mockEnrollmentGateway{
		createEnrollmentFunc: func(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error) {
			enrollmentSource = source
			return &model.Enrollment{ID: "enrollment-1"}, nil
		},
	}

	publisher := &mockPublisher{}
	service := newTestService(
		repo, &mockQueueLockRepository{},
		enrollments, &mockMemberDirectory{}, &mockSubscriptionSource{}, publisher, now,
	)

	enrollment, err := service.Confirm(context.Background(), testEntryID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if enrollment.ID != "enrollment-1" {
		t.Errorf("expected enrollment-1, got %s", enrollment.ID)
	}
	if enrollmentSource != model.EnrollmentSourceWaitlist {
		t.Errorf("expected WAITLIST source, got %s", enrollmentSource)
	}
	if updatedFields["status"] != model.WaitingStatusConfirmed {
		t.Errorf("expected CONFIRMED status update, got %v", updatedFields["status"])
	}
	if len(publisher.published) != 1 {
		t.Errorf("expected 1 published event, got %d", len(publisher.published))
	}
}

func TestConfirm_CancelledSessionRejected(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(2 * time.Hour)

	assigned := &model.WaitingListEntry{
		ID:               testEntryID,
		SessionID:        testSessionID,
		MemberID:         testMemberID,
		Status:           model.WaitingStatusAssigned,
		ApprovalDeadline: &deadline,
	}

	repo := &mockWaitingListRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.WaitingListEntry, error) {
			copy := *assigned
			return &copy, nil
		},
	}

	// Session was cancelled after the entry was assigned.
	enrollmentCreated := false
	enrollments := &mockEnrollmentGateway{
		acceptsEnrollmentsFunc: func(ctx context.Context, sessionID string) (bool, error) {
			return false, nil
		},
		createEnrollmentFunc: func(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error) {
			enrollmentCreated = true
			return nil, errors.New("should not be called")
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		enrollments, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Confirm(context.Background(), testEntryID)
	if err == nil {
		t.Fatal("expected error confirming onto a cancelled session")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", appErr.Code)
	}
	if enrollmentCreated {
		t.Error("no enrollment should be created on a cancelled session")
	}
}

func TestConfirm_PastDeadlineExpiresAndPromotes(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(-time.Hour)

	assigned := &model.WaitingListEntry{
		ID:               testEntryID,
		SessionID:        testSessionID,
		MemberID:         testMemberID,
		Status:           model.WaitingStatusAssigned,
		ApprovalDeadline: &deadline,
	}
	next := waitingEntry("next", 1, now.Add(-time.Hour))

	updates := map[string]bson.M{}
	assignedLookups := 0
	repo := &mockWaitingListRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.WaitingListEntry, error) {
			copy := *assigned
			return &copy, nil
		},
		findAssignedFunc: func(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
			// By promotion time the expired entry is already off the slot.
			assignedLookups++
			return nil, nil
		},
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			copy := *next
			return []*model.WaitingListEntry{&copy}, nil
		},
		updateFunc: func(ctx context.Context, id string, fields bson.M) error {
			updates[id] = fields
			return nil
		},
	}

	enrollmentCreated := false
	enrollments := &mockEnrollmentGateway{
		createEnrollmentFunc: func(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error) {
			enrollmentCreated = true
			return nil, errors.New("should not be called")
		},
	}

	publisher := &mockPublisher{}
	service := newTestService(
		repo, &mockQueueLockRepository{},
		enrollments, &mockMemberDirectory{}, &mockSubscriptionSource{}, publisher, now,
	)

	_, err := service.Confirm(context.Background(), testEntryID)
	if err == nil {
		t.Fatal("expected EXPIRED error")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeExpired {
		t.Errorf("expected EXPIRED, got %s", appErr.Code)
	}
	if enrollmentCreated {
		t.Error("no enrollment should be created past the deadline")
	}
	if updates[testEntryID]["status"] != model.WaitingStatusExpired {
		t.Errorf("expected entry expired, got %v", updates[testEntryID])
	}
	if updates["next"]["status"] != model.WaitingStatusAssigned {
		t.Errorf("expected next entry assigned, got %v", updates["next"])
	}
	if len(publisher.published) != 2 {
		t.Errorf("expected expired + promoted events, got %d", len(publisher.published))
	}
	if assignedLookups == 0 {
		t.Error("promotion should re-check the assigned slot")
	}
}

func TestConfirm_TerminalEntryRejected(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockWaitingListRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.WaitingListEntry, error) {
			return &model.WaitingListEntry{
				ID:     testEntryID,
				Status: model.WaitingStatusCancelled,
			}, nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Confirm(context.Background(), testEntryID)
	if err == nil {
		t.Fatal("expected error for terminal entry")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", appErr.Code)
	}
}

func TestCancel_WaitingClosesGap(t *testing.T) {
	now := time.Now().UTC()
	entry := waitingEntry(testEntryID, 2, now.Add(-time.Hour))

	var shiftedFrom, shiftedDelta int
	var updatedFields bson.M
	repo := &mockWaitingListRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.WaitingListEntry, error) {
			copy := *entry
			return &copy, nil
		},
		updateFunc: func(ctx context.Context, id string, fields bson.M) error {
			updatedFields = fields
			return nil
		},
		shiftPositionsFunc: func(ctx context.Context, sessionID string, fromPosition int, delta int) error {
			shiftedFrom, shiftedDelta = fromPosition, delta
			return nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	if err := service.Cancel(context.Background(), testEntryID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if shiftedFrom != 2 || shiftedDelta != -1 {
		t.Errorf("expected shift from 2 by -1, got from %d by %d", shiftedFrom, shiftedDelta)
	}
	if updatedFields["status"] != model.WaitingStatusCancelled {
		t.Errorf("expected CANCELLED status update, got %v", updatedFields["status"])
	}
	if updatedFields["cancelled_at"] != now {
		t.Errorf("expected cancelled_at %v, got %v", now, updatedFields["cancelled_at"])
	}
}

func TestCancel_AssignedPromotesNext(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(time.Hour)
	assigned := &model.WaitingListEntry{
		ID:               testEntryID,
		SessionID:        testSessionID,
		MemberID:         testMemberID,
		Status:           model.WaitingStatusAssigned,
		ApprovalDeadline: &deadline,
	}
	next := waitingEntry("next", 1, now.Add(-time.Hour))

	updates := map[string]bson.M{}
	repo := &mockWaitingListRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.WaitingListEntry, error) {
			copy := *assigned
			return &copy, nil
		},
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			copy := *next
			return []*model.WaitingListEntry{&copy}, nil
		},
		updateFunc: func(ctx context.Context, id string, fields bson.M) error {
			updates[id] = fields
			return nil
		},
	}

	publisher := &mockPublisher{}
	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, publisher, now,
	)

	if err := service.Cancel(context.Background(), testEntryID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updates["next"]["status"] != model.WaitingStatusAssigned {
		t.Errorf("expected next entry assigned, got %v", updates["next"])
	}
	if len(publisher.published) != 2 {
		t.Errorf("expected cancelled + promoted events, got %d", len(publisher.published))
	}
}

func TestPromote_NoOpWhenSlotHeld(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(time.Hour)
	repo := &mockWaitingListRepository{
		findAssignedFunc: func(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
			return &model.WaitingListEntry{
				ID:               "held",
				Status:           model.WaitingStatusAssigned,
				ApprovalDeadline: &deadline,
			}, nil
		},
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			t.Error("waiting entries should not be loaded while the slot is held")
			return nil, nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	promoted, err := service.Promote(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promoted != nil {
		t.Errorf("expected no promotion, got %+v", promoted)
	}
}

func TestPromote_AssignsHeadWithDeadline(t *testing.T) {
	now := time.Now().UTC()
	head := waitingEntry("head", 1, now.Add(-2*time.Hour))

	var headUpdate bson.M
	repo := &mockWaitingListRepository{
		findWaitingFunc: func(ctx context.Context, sessionID string) ([]*model.WaitingListEntry, error) {
			copy := *head
			return []*model.WaitingListEntry{&copy}, nil
		},
		updateFunc: func(ctx context.Context, id string, fields bson.M) error {
			headUpdate = fields
			return nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	promoted, err := service.Promote(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if promoted == nil {
		t.Fatal("expected a promoted entry")
	}

	if promoted.Status != model.WaitingStatusAssigned || promoted.Position != 0 {
		t.Errorf("expected ASSIGNED at position 0, got %s at %d", promoted.Status, promoted.Position)
	}
	wantDeadline := now.Add(24 * time.Hour)
	if promoted.ApprovalDeadline == nil || !promoted.ApprovalDeadline.Equal(wantDeadline) {
		t.Errorf("expected deadline %v, got %v", wantDeadline, promoted.ApprovalDeadline)
	}
	if headUpdate["approval_deadline"] != wantDeadline {
		t.Errorf("expected persisted deadline %v, got %v", wantDeadline, headUpdate["approval_deadline"])
	}
}

func TestSweepExpired_CountsAcrossSessions(t *testing.T) {
	now := time.Now().UTC()
	deadline := now.Add(-time.Hour)

	overdue := []*model.WaitingListEntry{
		{ID: "a", SessionID: "3f2c1a0e-9b8d-4c7a-a1b2-c3d4e5f60001", Status: model.WaitingStatusAssigned, ApprovalDeadline: &deadline},
		{ID: "b", SessionID: "3f2c1a0e-9b8d-4c7a-a1b2-c3d4e5f60002", Status: model.WaitingStatusAssigned, ApprovalDeadline: &deadline},
	}

	repo := &mockWaitingListRepository{
		findExpiredFunc: func(ctx context.Context, sessionID string, at time.Time) ([]*model.WaitingListEntry, error) {
			if sessionID == "" {
				return overdue, nil
			}
			for _, e := range overdue {
				if e.SessionID == sessionID {
					copy := *e
					return []*model.WaitingListEntry{&copy}, nil
				}
			}
			return nil, nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	count, err := service.SweepExpired(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 expired entries, got %d", count)
	}
}

func TestDetectHighDemand_CountOrAgeTriggers(t *testing.T) {
	now := time.Now().UTC()

	repo := &mockWaitingListRepository{
		aggregateDemandFunc: func(ctx context.Context) ([]*repository.SessionDemand, error) {
			return []*repository.SessionDemand{
				{SessionID: "busy", WaitingCount: 5, OldestCreatedAt: now.Add(-time.Hour)},
				{SessionID: "stale", WaitingCount: 1, OldestCreatedAt: now.Add(-48 * time.Hour)},
				{SessionID: "quiet", WaitingCount: 1, OldestCreatedAt: now.Add(-time.Hour)},
			}, nil
		},
	}

	service := newTestService(
		repo, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	sessions, err := service.DetectHighDemand(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sessions) != 2 {
		t.Fatalf("expected 2 high-demand sessions, got %d", len(sessions))
	}
	if sessions[0].SessionID != "busy" || sessions[1].SessionID != "stale" {
		t.Errorf("unexpected sessions: %s, %s", sessions[0].SessionID, sessions[1].SessionID)
	}
}

func TestAdd_InvalidIDRejected(t *testing.T) {
	now := time.Now().UTC()
	service := newTestService(
		&mockWaitingListRepository{}, &mockQueueLockRepository{},
		&mockEnrollmentGateway{}, &mockMemberDirectory{}, &mockSubscriptionSource{}, nil, now,
	)

	_, err := service.Add(context.Background(), "not-a-uuid", testMemberID)
	if err == nil {
		t.Fatal("expected error for malformed session ID")
	}

	appErr := apperrors.AsAppError(err)
	if appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
}
