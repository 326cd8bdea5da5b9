package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	waitlisterrors "gymflow/internal/waitlist/errors"
	"gymflow/internal/waitlist/repository"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// EnrollmentGateway is the session-side collaboration the queue needs.
// Implemented by the sessions service and injected at wiring time to avoid
// a package cycle.
type EnrollmentGateway interface {
	SessionCapacity(ctx context.Context, sessionID string) (int, error)
	AcceptsEnrollments(ctx context.Context, sessionID string) (bool, error)
	RegisteredCount(ctx context.Context, sessionID string) (int64, error)
	HasActiveEnrollment(ctx context.Context, sessionID, memberID string) (bool, error)
	CreateEnrollment(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error)
}

// MemberDirectory answers member existence checks.
type MemberDirectory interface {
	MemberExists(ctx context.Context, memberID string) (bool, error)
}

// SubscriptionSource supplies the active-subscription snapshot used for
// priority scoring. Returns (nil, nil) when the member has none.
type SubscriptionSource interface {
	ActiveSubscription(ctx context.Context, memberID string) (*model.Subscription, error)
}

// EntryView is a waiting-list entry decorated with elapsed waiting time.
type EntryView struct {
	*model.WaitingListEntry
	WaitingHours int `json:"waiting_hours"`
}

// QueueView is the ordered state of one session's queue.
type QueueView struct {
	SessionID string       `json:"session_id"`
	Assigned  *EntryView   `json:"assigned,omitempty"`
	Waiting   []*EntryView `json:"waiting"`
}

// HighDemandSession reports a session whose queue pressure crossed the
// configured thresholds.
type HighDemandSession struct {
	SessionID       string `json:"session_id"`
	WaitingCount    int64  `json:"waiting_count"`
	MaxWaitingHours int    `json:"max_waiting_hours"`
}

type WaitlistService interface {
	Add(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error)
	Confirm(ctx context.Context, entryID string) (*model.Enrollment, error)
	Cancel(ctx context.Context, entryID string) error
	Promote(ctx context.Context, sessionID string) (*model.WaitingListEntry, error)
	GetQueue(ctx context.Context, sessionID string) (*QueueView, error)
	GetMemberEntries(ctx context.Context, memberID string) ([]*EntryView, error)
	SweepExpired(ctx context.Context, sessionID string) (int, error)
	DetectHighDemand(ctx context.Context, minWaiting, minWaitingHours int) ([]*HighDemandSession, error)
}

type waitlistService struct {
	repo        repository.WaitingListRepository
	lockRepo    repository.QueueLockRepository
	enrollments EnrollmentGateway
	members     MemberDirectory
	subs        SubscriptionSource
	priority    *PriorityCalculator
	publisher   EventPublisher
	cfg         *config.Config
	now         func() time.Time
}

func NewWaitlistService(
	repo repository.WaitingListRepository,
	lockRepo repository.QueueLockRepository,
	enrollments EnrollmentGateway,
	members MemberDirectory,
	subs SubscriptionSource,
	publisher EventPublisher,
	cfg *config.Config,
) WaitlistService {
	return &waitlistService{
		repo:        repo,
		lockRepo:    lockRepo,
		enrollments: enrollments,
		members:     members,
		subs:        subs,
		priority:    NewPriorityCalculator(cfg),
		publisher:   publisher,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add enqueues a member on a full session's waiting list. The entry is
// ranked by priority score; among equal scores the earlier entry keeps its
// place.
func (s *waitlistService) Add(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
	if err := validateID(sessionID, "Session"); err != nil {
		return nil, err
	}
	if err := validateID(memberID, "Member"); err != nil {
		return nil, err
	}

	exists, err := s.members.MemberExists(ctx, memberID)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify member", err)
	}
	if !exists {
		return nil, apperrors.NotFoundWithID("Member", memberID)
	}

	accepting, err := s.enrollments.AcceptsEnrollments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !accepting {
		return nil, apperrors.InvalidState(waitlisterrors.ErrSessionClosed.Error())
	}

	capacity, err := s.enrollments.SessionCapacity(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	registered, err := s.enrollments.RegisteredCount(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to count session enrollments", err)
	}
	if registered < int64(capacity) {
		return nil, apperrors.InvalidState("Session has free capacity, enroll directly instead of joining the waiting list")
	}

	lockID, err := s.acquireQueueLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.releaseQueueLock(ctx, lockID)

	var entry *model.WaitingListEntry
	var events []pendingEvent

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		existing, err := s.repo.FindActiveBySessionAndMember(sessCtx, sessionID, memberID)
		if err != nil {
			return apperrors.Internal("Failed to check existing waiting list entry", err)
		}
		if existing != nil {
			return apperrors.Conflict(waitlisterrors.ErrAlreadyQueued.Error())
		}

		enrolled, err := s.enrollments.HasActiveEnrollment(sessCtx, sessionID, memberID)
		if err != nil {
			return apperrors.Internal("Failed to check existing enrollment", err)
		}
		if enrolled {
			return apperrors.Conflict("Member is already enrolled in this session")
		}

		now := s.now()
		sub, err := s.subs.ActiveSubscription(sessCtx, memberID)
		if err != nil {
			return apperrors.Internal("Failed to load member subscription", err)
		}
		score := s.priority.Score(sub, now, now)

		position, err := s.insertionPosition(sessCtx, sessionID, score)
		if err != nil {
			return err
		}

		if err := s.repo.ShiftPositions(sessCtx, sessionID, position, 1); err != nil {
			return apperrors.Internal("Failed to open queue slot", err)
		}

		entry = &model.WaitingListEntry{
			ID:            uuid.New().String(),
			SessionID:     sessionID,
			MemberID:      memberID,
			Status:        model.WaitingStatusWaiting,
			Position:      position,
			PriorityScore: score,
			CreatedAt:     now,
		}
		if err := s.repo.Create(sessCtx, entry); err != nil {
			return apperrors.Internal("Failed to create waiting list entry", err)
		}

		events = append(events, newPendingEvent(EventWaitlistAdded, entry))
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to add waiting list entry",
			"session_id", sessionID,
			"member_id", memberID,
			"error", err,
		)
		return nil, err
	}

	s.publishEvents(ctx, events)
	s.cfg.Log.Info("Waiting list entry created",
		"id", entry.ID,
		"session_id", sessionID,
		"member_id", memberID,
		"position", entry.Position,
		"priority_score", entry.PriorityScore,
	)
	return entry, nil
}

// insertionPosition finds the dense position for a candidate score: directly
// ahead of the first waiting entry whose stored priority score is strictly
// lower, otherwise at the tail. Equal or higher scores are never displaced.
func (s *waitlistService) insertionPosition(ctx context.Context, sessionID string, score int) (int, error) {
	waiting, err := s.repo.FindWaitingBySession(ctx, sessionID)
	if err != nil {
		return 0, apperrors.Internal("Failed to load waiting entries", err)
	}

	for _, e := range waiting {
		if e.PriorityScore < score {
			return e.Position, nil
		}
	}

	return len(waiting) + 1, nil
}

// Confirm turns an assigned entry into a real enrollment. Confirming past
// the deadline expires the entry, promotes the next candidate and reports
// EXPIRED to the caller.
func (s *waitlistService) Confirm(ctx context.Context, entryID string) (*model.Enrollment, error) {
	if err := validateID(entryID, "Waiting list entry"); err != nil {
		return nil, err
	}

	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	lockID, err := s.acquireQueueLock(ctx, entry.SessionID)
	if err != nil {
		return nil, err
	}
	defer s.releaseQueueLock(ctx, lockID)

	var enrollment *model.Enrollment
	var events []pendingEvent
	expired := false

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		fresh, err := s.repo.FindByID(sessCtx, entryID)
		if err != nil {
			return apperrors.Internal("Failed to load waiting list entry", err)
		}

		if fresh.Status != model.WaitingStatusAssigned {
			if fresh.IsTerminal() {
				return apperrors.InvalidState(waitlisterrors.ErrAlreadyFinalized.Error())
			}
			return apperrors.InvalidState(waitlisterrors.ErrNotAssigned.Error())
		}

		now := s.now()
		if fresh.DeadlinePassed(now) {
			// The spot is gone. Commit the expiry and cascade before
			// reporting failure to the caller.
			expireEvents, err := s.expireEntryLocked(sessCtx, fresh, now)
			if err != nil {
				return err
			}
			events = append(events, expireEvents...)
			expired = true
			return nil
		}

		accepting, err := s.enrollments.AcceptsEnrollments(sessCtx, fresh.SessionID)
		if err != nil {
			return err
		}
		if !accepting {
			return apperrors.InvalidState(waitlisterrors.ErrSessionClosed.Error())
		}

		enrollment, err = s.enrollments.CreateEnrollment(sessCtx, fresh.SessionID, fresh.MemberID, model.EnrollmentSourceWaitlist)
		if err != nil {
			return err
		}

		update := bson.M{
			"status":       model.WaitingStatusConfirmed,
			"confirmed_at": now,
		}
		if err := s.repo.Update(sessCtx, fresh.ID, update); err != nil {
			return apperrors.Internal("Failed to confirm waiting list entry", err)
		}

		fresh.Status = model.WaitingStatusConfirmed
		fresh.ConfirmedAt = &now
		events = append(events, newPendingEvent(EventWaitlistConfirmed, fresh))
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to confirm waiting list entry", "id", entryID, "error", err)
		return nil, err
	}

	s.publishEvents(ctx, events)

	if expired {
		s.cfg.Log.Warn("Confirmation attempted past deadline", "id", entryID)
		return nil, apperrors.Expired(waitlisterrors.ErrDeadlinePassed.Error())
	}

	s.cfg.Log.Info("Waiting list entry confirmed",
		"id", entryID,
		"enrollment_id", enrollment.ID,
	)
	return enrollment, nil
}

// Cancel withdraws an entry. A waiting entry closes its gap; an assigned
// entry releases the spot to the next candidate.
func (s *waitlistService) Cancel(ctx context.Context, entryID string) error {
	if err := validateID(entryID, "Waiting list entry"); err != nil {
		return err
	}

	entry, err := s.getEntry(ctx, entryID)
	if err != nil {
		return err
	}

	lockID, err := s.acquireQueueLock(ctx, entry.SessionID)
	if err != nil {
		return err
	}
	defer s.releaseQueueLock(ctx, lockID)

	var events []pendingEvent

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		fresh, err := s.repo.FindByID(sessCtx, entryID)
		if err != nil {
			return apperrors.Internal("Failed to load waiting list entry", err)
		}

		if fresh.IsTerminal() {
			return apperrors.InvalidState(waitlisterrors.ErrAlreadyFinalized.Error())
		}

		wasAssigned := fresh.Status == model.WaitingStatusAssigned
		position := fresh.Position
		now := s.now()

		update := bson.M{
			"status":       model.WaitingStatusCancelled,
			"position":     0,
			"cancelled_at": now,
		}
		if err := s.repo.Update(sessCtx, fresh.ID, update); err != nil {
			return apperrors.Internal("Failed to cancel waiting list entry", err)
		}
		fresh.Status = model.WaitingStatusCancelled
		fresh.Position = 0
		fresh.CancelledAt = &now
		events = append(events, newPendingEvent(EventWaitlistCancelled, fresh))

		if wasAssigned {
			promoted, err := s.promoteLocked(sessCtx, fresh.SessionID)
			if err != nil {
				return err
			}
			if promoted != nil {
				events = append(events, newPendingEvent(EventWaitlistPromoted, promoted))
			}
			return nil
		}

		if err := s.repo.ShiftPositions(sessCtx, fresh.SessionID, position, -1); err != nil {
			return apperrors.Internal("Failed to close queue gap", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel waiting list entry", "id", entryID, "error", err)
		return err
	}

	s.publishEvents(ctx, events)
	s.cfg.Log.Info("Waiting list entry cancelled", "id", entryID)
	return nil
}

// Promote offers the freed spot to the head of the queue. It is a no-op
// when an assigned entry already holds the offer or the queue is empty.
func (s *waitlistService) Promote(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
	if err := validateID(sessionID, "Session"); err != nil {
		return nil, err
	}

	lockID, err := s.acquireQueueLock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.releaseQueueLock(ctx, lockID)

	var promoted *model.WaitingListEntry
	var events []pendingEvent

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		promoted, err = s.promoteLocked(sessCtx, sessionID)
		if err != nil {
			return err
		}
		if promoted != nil {
			events = append(events, newPendingEvent(EventWaitlistPromoted, promoted))
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to promote waiting list entry", "session_id", sessionID, "error", err)
		return nil, err
	}

	s.publishEvents(ctx, events)
	if promoted != nil {
		s.cfg.Log.Info("Waiting list entry promoted",
			"id", promoted.ID,
			"session_id", sessionID,
			"approval_deadline", promoted.ApprovalDeadline,
		)
	}
	return promoted, nil
}

// promoteLocked moves the head waiting entry to ASSIGNED. Caller must hold
// the session queue lock and run inside a transaction. At most one entry is
// ever ASSIGNED per session.
func (s *waitlistService) promoteLocked(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
	assigned, err := s.repo.FindAssignedBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check assigned entry", err)
	}
	if assigned != nil {
		return nil, nil
	}

	waiting, err := s.repo.FindWaitingBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load waiting entries", err)
	}
	if len(waiting) == 0 {
		return nil, nil
	}

	head := waiting[0]
	now := s.now()
	deadline := now.Add(s.cfg.ApprovalWindow)

	update := bson.M{
		"status":            model.WaitingStatusAssigned,
		"position":          0,
		"assigned_at":       now,
		"approval_deadline": deadline,
	}
	if err := s.repo.Update(ctx, head.ID, update); err != nil {
		return nil, apperrors.Internal("Failed to assign waiting list entry", err)
	}

	if err := s.repo.ShiftPositions(ctx, sessionID, head.Position, -1); err != nil {
		return nil, apperrors.Internal("Failed to compact queue positions", err)
	}

	head.Status = model.WaitingStatusAssigned
	head.Position = 0
	head.AssignedAt = &now
	head.ApprovalDeadline = &deadline
	return head, nil
}

// expireEntryLocked marks an overdue assigned entry EXPIRED and promotes
// the next candidate. Caller must hold the lock and transaction.
func (s *waitlistService) expireEntryLocked(ctx context.Context, entry *model.WaitingListEntry, now time.Time) ([]pendingEvent, error) {
	update := bson.M{
		"status":   model.WaitingStatusExpired,
		"position": 0,
	}
	if err := s.repo.Update(ctx, entry.ID, update); err != nil {
		return nil, apperrors.Internal("Failed to expire waiting list entry", err)
	}
	entry.Status = model.WaitingStatusExpired
	entry.Position = 0

	events := []pendingEvent{newPendingEvent(EventWaitlistExpired, entry)}

	promoted, err := s.promoteLocked(ctx, entry.SessionID)
	if err != nil {
		return nil, err
	}
	if promoted != nil {
		events = append(events, newPendingEvent(EventWaitlistPromoted, promoted))
	}

	return events, nil
}

// SweepExpired reaps assigned entries whose approval deadline has passed.
// An empty sessionID sweeps every session. Returns the number of entries
// expired.
func (s *waitlistService) SweepExpired(ctx context.Context, sessionID string) (int, error) {
	if sessionID != "" {
		if err := validateID(sessionID, "Session"); err != nil {
			return 0, err
		}
	}

	overdue, err := s.repo.FindExpiredAssigned(ctx, sessionID, s.now())
	if err != nil {
		return 0, apperrors.Internal("Failed to find expired entries", err)
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	sessions := make([]string, 0, len(overdue))
	seen := make(map[string]struct{})
	for _, e := range overdue {
		if _, ok := seen[e.SessionID]; ok {
			continue
		}
		seen[e.SessionID] = struct{}{}
		sessions = append(sessions, e.SessionID)
	}

	total := 0
	for _, sid := range sessions {
		n, err := s.sweepSession(ctx, sid)
		if err != nil {
			s.cfg.Log.Error("Failed to sweep session queue", "session_id", sid, "error", err)
			return total, err
		}
		total += n
	}

	s.cfg.Log.Info("Expired waiting list entries swept", "count", total, "sessions", len(sessions))
	return total, nil
}

func (s *waitlistService) sweepSession(ctx context.Context, sessionID string) (int, error) {
	lockID, err := s.acquireQueueLock(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	defer s.releaseQueueLock(ctx, lockID)

	count := 0
	var events []pendingEvent

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		now := s.now()
		// Expiring one entry promotes the next, which may itself already be
		// overdue only in pathological clock cases; a single pass suffices
		// because fresh promotions get a full approval window.
		overdue, err := s.repo.FindExpiredAssigned(sessCtx, sessionID, now)
		if err != nil {
			return apperrors.Internal("Failed to find expired entries", err)
		}

		for _, entry := range overdue {
			expireEvents, err := s.expireEntryLocked(sessCtx, entry, now)
			if err != nil {
				return err
			}
			events = append(events, expireEvents...)
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publishEvents(ctx, events)
	return count, nil
}

// GetQueue returns the ordered queue of a session, the assigned entry
// reported separately from the waiting tail.
func (s *waitlistService) GetQueue(ctx context.Context, sessionID string) (*QueueView, error) {
	if err := validateID(sessionID, "Session"); err != nil {
		return nil, err
	}

	// Session existence check doubles as a NotFound guard.
	if _, err := s.enrollments.SessionCapacity(ctx, sessionID); err != nil {
		return nil, err
	}

	now := s.now()

	assigned, err := s.repo.FindAssignedBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load assigned entry", err)
	}

	waiting, err := s.repo.FindWaitingBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load waiting entries", err)
	}

	view := &QueueView{
		SessionID: sessionID,
		Waiting:   make([]*EntryView, 0, len(waiting)),
	}
	if assigned != nil {
		view.Assigned = &EntryView{WaitingListEntry: assigned, WaitingHours: assigned.WaitingHours(now)}
	}
	for _, e := range waiting {
		view.Waiting = append(view.Waiting, &EntryView{WaitingListEntry: e, WaitingHours: e.WaitingHours(now)})
	}

	return view, nil
}

func (s *waitlistService) GetMemberEntries(ctx context.Context, memberID string) ([]*EntryView, error) {
	if err := validateID(memberID, "Member"); err != nil {
		return nil, err
	}

	entries, err := s.repo.FindByMember(ctx, memberID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load member entries", err)
	}

	now := s.now()
	views := make([]*EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, &EntryView{WaitingListEntry: e, WaitingHours: e.WaitingHours(now)})
	}

	return views, nil
}

// DetectHighDemand flags sessions whose waiting count or longest wait
// crosses the thresholds. Zero thresholds fall back to configuration.
func (s *waitlistService) DetectHighDemand(ctx context.Context, minWaiting, minWaitingHours int) ([]*HighDemandSession, error) {
	if minWaiting <= 0 {
		minWaiting = s.cfg.HighDemandMinWaiting
	}
	if minWaitingHours <= 0 {
		minWaitingHours = s.cfg.HighDemandMinWaitingHours
	}

	demands, err := s.repo.AggregateDemand(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to aggregate queue demand", err)
	}

	now := s.now()
	result := make([]*HighDemandSession, 0)
	for _, d := range demands {
		maxHours := 0
		if now.After(d.OldestCreatedAt) {
			// Whole elapsed hours, the same unit WaitingHours reports.
			maxHours = int(now.Sub(d.OldestCreatedAt).Hours())
		}
		if d.WaitingCount >= int64(minWaiting) || maxHours >= minWaitingHours {
			result = append(result, &HighDemandSession{
				SessionID:       d.SessionID,
				WaitingCount:    d.WaitingCount,
				MaxWaitingHours: maxHours,
			})
		}
	}

	return result, nil
}

// --- Helpers ---

func (s *waitlistService) getEntry(ctx context.Context, entryID string) (*model.WaitingListEntry, error) {
	entry, err := s.repo.FindByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, waitlisterrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Waiting list entry", entryID)
		}
		return nil, apperrors.Internal("Failed to retrieve waiting list entry", err)
	}
	return entry, nil
}

// acquireQueueLock serializes queue mutations per session. Returns conflict
// when another request holds the queue.
func (s *waitlistService) acquireQueueLock(ctx context.Context, sessionID string) (string, error) {
	lockID := fmt.Sprintf("queue_lock_%s", sessionID)

	lock := &model.QueueLock{
		ID:        lockID,
		ExpiresAt: s.now().Add(s.cfg.QueueLockTTL),
	}

	_, err := s.lockRepo.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict(waitlisterrors.ErrQueueLocked.Error())
		}
		return "", apperrors.Internal("Failed to acquire queue lock", err)
	}

	return lockID, nil
}

func (s *waitlistService) releaseQueueLock(ctx context.Context, lockID string) {
	if err := s.lockRepo.Delete(ctx, lockID); err != nil {
		s.cfg.Log.Warn("Failed to release queue lock", "lock_id", lockID, "error", err)
	}
}

func validateID(id, resource string) error {
	if id == "" {
		return apperrors.InvalidInput(resource + " ID cannot be empty")
	}
	if err := uuid.Validate(id); err != nil {
		return apperrors.InvalidInput("Invalid " + resource + " ID format")
	}
	return nil
}
