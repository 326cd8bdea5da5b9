package service

import (
	"context"
	"errors"
	"time"

	sessionerrors "gymflow/internal/sessions/errors"
	"gymflow/internal/sessions/repository"
	"gymflow/internal/sessions/validator"
	"gymflow/pkg/config"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/model"
	"gymflow/pkg/sanitizer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MemberDirectory answers member existence checks.
type MemberDirectory interface {
	MemberExists(ctx context.Context, memberID string) (bool, error)
}

// TrainerDirectory answers trainer existence checks.
type TrainerDirectory interface {
	TrainerExists(ctx context.Context, trainerID string) (bool, error)
}

// Waitlist is the queue-side collaboration the sessions service needs.
// Implemented by the waitlist service and injected after construction to
// avoid a package cycle.
type Waitlist interface {
	Add(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error)
	Promote(ctx context.Context, sessionID string) (*model.WaitingListEntry, error)
}

// EnrollResult is the outcome of an enrollment attempt. Exactly one of
// Enrollment and QueuedEntry is set: a full session routes the member onto
// the waiting list instead.
type EnrollResult struct {
	Enrollment  *model.Enrollment       `json:"enrollment,omitempty"`
	QueuedEntry *model.WaitingListEntry `json:"queued_entry,omitempty"`
}

type SessionService interface {
	Create(ctx context.Context, session *model.ClassSession) error
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	GetSchedule(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.ClassSession, int64, error)
	Update(ctx context.Context, id string, updates *model.ClassSessionUpdate) (*model.ClassSession, error)
	Delete(ctx context.Context, id string) error
	CancelSession(ctx context.Context, id string) error
	Enroll(ctx context.Context, sessionID, memberID string) (*EnrollResult, error)
	CancelEnrollment(ctx context.Context, enrollmentID string) error
	Participants(ctx context.Context, sessionID string) ([]*model.Enrollment, error)

	SessionCapacity(ctx context.Context, sessionID string) (int, error)
	AcceptsEnrollments(ctx context.Context, sessionID string) (bool, error)
	RegisteredCount(ctx context.Context, sessionID string) (int64, error)
	HasActiveEnrollment(ctx context.Context, sessionID, memberID string) (bool, error)
	CreateEnrollment(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error)

	SetWaitlist(waitlist Waitlist)
}

type sessionService struct {
	repo       repository.ClassSessionRepository
	enrollRepo repository.EnrollmentRepository
	validator  *validator.ClassSessionValidator
	members    MemberDirectory
	trainers   TrainerDirectory
	waitlist   Waitlist
	cfg        *config.Config
}

func NewSessionService(
	repo repository.ClassSessionRepository,
	enrollRepo repository.EnrollmentRepository,
	validator *validator.ClassSessionValidator,
	members MemberDirectory,
	trainers TrainerDirectory,
	cfg *config.Config,
) SessionService {
	return &sessionService{
		repo:       repo,
		enrollRepo: enrollRepo,
		validator:  validator,
		members:    members,
		trainers:   trainers,
		cfg:        cfg,
	}
}

// SetWaitlist wires the queue collaborator after both services exist.
func (s *sessionService) SetWaitlist(waitlist Waitlist) {
	s.waitlist = waitlist
}

func (s *sessionService) Create(ctx context.Context, session *model.ClassSession) error {
	session.Name = sanitizer.SanitizeName(session.Name)
	if session.Status == "" {
		session.Status = model.SessionStatusOpen
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}

	if err := s.validator.Validate(session); err != nil {
		return validationError(err)
	}

	exists, err := s.trainers.TrainerExists(ctx, session.TrainerID)
	if err != nil {
		return apperrors.Internal("Failed to verify trainer", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("Trainer", session.TrainerID)
	}

	if err := s.repo.Create(ctx, session); err != nil {
		s.cfg.Log.Error("Failed to create class session", "name", session.Name, "error", err)
		return apperrors.Internal("Failed to create class session", err)
	}

	s.cfg.Log.Info("Class session created",
		"id", session.ID,
		"name", session.Name,
		"trainer_id", session.TrainerID,
		"capacity", session.Capacity,
	)
	return nil
}

func (s *sessionService) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	if err := validateID(id, "Session"); err != nil {
		return nil, err
	}
	return s.getSession(ctx, id)
}

// GetSchedule lists sessions starting inside [from, to). A zero range
// defaults to the current week.
func (s *sessionService) GetSchedule(ctx context.Context, from, to time.Time, limit int, offset int64) ([]*model.ClassSession, int64, error) {
	if from.IsZero() {
		now := time.Now().UTC()
		from = now.Truncate(24 * time.Hour)
	}
	if to.IsZero() {
		to = from.Add(7 * 24 * time.Hour)
	}
	if !to.After(from) {
		return nil, 0, apperrors.InvalidInput("Schedule range end must be after start")
	}

	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	sessions, total, err := s.repo.FindBetween(ctx, from, to, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to load schedule", err)
	}

	return sessions, total, nil
}

func (s *sessionService) Update(ctx context.Context, id string, updates *model.ClassSessionUpdate) (*model.ClassSession, error) {
	if err := validateID(id, "Session"); err != nil {
		return nil, err
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validationError(err)
	}

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := bson.M{}
	if updates.Name != "" {
		fields["name"] = sanitizer.SanitizeName(updates.Name)
	}
	if updates.StartTime != nil {
		fields["start_time"] = *updates.StartTime
	}
	if updates.EndTime != nil {
		fields["end_time"] = *updates.EndTime
	}
	if updates.Capacity != nil {
		fields["capacity"] = *updates.Capacity
	}
	if updates.Status != "" {
		fields["status"] = updates.Status
	}

	if len(fields) == 0 {
		return session, nil
	}

	// A capacity change can flip the session between OPEN and FULL.
	if updates.Capacity != nil && updates.Status == "" && session.AcceptsEnrollments() {
		registered, err := s.enrollRepo.CountRegistered(ctx, id)
		if err != nil {
			return nil, apperrors.Internal("Failed to count session enrollments", err)
		}
		if registered >= int64(*updates.Capacity) {
			fields["status"] = model.SessionStatusFull
		} else {
			fields["status"] = model.SessionStatusOpen
		}
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		if errors.Is(err, sessionerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session", id)
		}
		return nil, apperrors.Internal("Failed to update class session", err)
	}

	updated, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Class session updated", "id", id)
	return updated, nil
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if err := validateID(id, "Session"); err != nil {
		return err
	}

	registered, err := s.enrollRepo.CountRegistered(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to count session enrollments", err)
	}
	if registered > 0 {
		return apperrors.Conflict(sessionerrors.ErrHasEnrollments.Error())
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sessionerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Session", id)
		}
		return apperrors.Internal("Failed to delete class session", err)
	}

	s.cfg.Log.Info("Class session deleted", "id", id)
	return nil
}

// CancelSession marks the session CANCELLED and cancels its registered
// enrollments. Waiting list entries for the session stay queryable but no
// further promotions will confirm.
func (s *sessionService) CancelSession(ctx context.Context, id string) error {
	if err := validateID(id, "Session"); err != nil {
		return err
	}

	session, err := s.getSession(ctx, id)
	if err != nil {
		return err
	}
	if session.Status == model.SessionStatusCancelled {
		return apperrors.InvalidState("Session is already cancelled")
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.Update(sessCtx, id, bson.M{"status": model.SessionStatusCancelled}); err != nil {
			return apperrors.Internal("Failed to cancel class session", err)
		}

		enrollments, err := s.enrollRepo.FindRegisteredBySession(sessCtx, id)
		if err != nil {
			return apperrors.Internal("Failed to load session enrollments", err)
		}
		for _, e := range enrollments {
			if err := s.enrollRepo.UpdateStatus(sessCtx, e.ID, model.EnrollmentStatusCanceled); err != nil {
				return apperrors.Internal("Failed to cancel enrollment", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to cancel class session", "id", id, "error", err)
		return err
	}

	s.cfg.Log.Info("Class session cancelled", "id", id)
	return nil
}

// Enroll registers a member directly when the session has capacity. A full
// session routes the member onto the waiting list instead, so the caller
// always gets either an enrollment or a queue position.
func (s *sessionService) Enroll(ctx context.Context, sessionID, memberID string) (*EnrollResult, error) {
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

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.AcceptsEnrollments() {
		return nil, apperrors.InvalidState(sessionerrors.ErrSessionClosed.Error())
	}

	registered, err := s.enrollRepo.CountRegistered(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to count session enrollments", err)
	}

	if registered >= int64(session.Capacity) {
		if s.waitlist == nil {
			return nil, apperrors.Conflict(sessionerrors.ErrSessionFull.Error())
		}
		entry, err := s.waitlist.Add(ctx, sessionID, memberID)
		if err != nil {
			return nil, err
		}
		return &EnrollResult{QueuedEntry: entry}, nil
	}

	existing, err := s.enrollRepo.FindActiveBySessionAndMember(ctx, sessionID, memberID)
	if err != nil {
		return nil, apperrors.Internal("Failed to check existing enrollment", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict(sessionerrors.ErrAlreadyEnrolled.Error())
	}

	enrollment, err := s.CreateEnrollment(ctx, sessionID, memberID, model.EnrollmentSourceDirect)
	if err != nil {
		return nil, err
	}

	// Last free spot taken.
	if registered+1 >= int64(session.Capacity) && session.Status == model.SessionStatusOpen {
		if err := s.repo.Update(ctx, sessionID, bson.M{"status": model.SessionStatusFull}); err != nil {
			s.cfg.Log.Warn("Failed to mark session full", "session_id", sessionID, "error", err)
		}
	}

	s.cfg.Log.Info("Member enrolled",
		"enrollment_id", enrollment.ID,
		"session_id", sessionID,
		"member_id", memberID,
	)
	return &EnrollResult{Enrollment: enrollment}, nil
}

// CancelEnrollment frees the spot and offers it to the head of the waiting
// list. The session only reopens when nobody is queued for the freed spot.
func (s *sessionService) CancelEnrollment(ctx context.Context, enrollmentID string) error {
	if err := validateID(enrollmentID, "Enrollment"); err != nil {
		return err
	}

	enrollment, err := s.enrollRepo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sessionerrors.ErrEnrollmentNotFound) {
			return apperrors.NotFoundWithID("Enrollment", enrollmentID)
		}
		return apperrors.Internal("Failed to retrieve enrollment", err)
	}
	if enrollment.Status != model.EnrollmentStatusRegistered {
		return apperrors.InvalidState("Enrollment is not active")
	}

	if err := s.enrollRepo.UpdateStatus(ctx, enrollmentID, model.EnrollmentStatusCanceled); err != nil {
		return apperrors.Internal("Failed to cancel enrollment", err)
	}

	var promoted *model.WaitingListEntry
	if s.waitlist != nil {
		promoted, err = s.waitlist.Promote(ctx, enrollment.SessionID)
		if err != nil {
			s.cfg.Log.Error("Failed to promote after enrollment cancellation",
				"session_id", enrollment.SessionID,
				"error", err,
			)
		}
	}

	// Nobody queued for the spot, reopen the session.
	if promoted == nil {
		session, err := s.getSession(ctx, enrollment.SessionID)
		if err == nil && session.Status == model.SessionStatusFull {
			if err := s.repo.Update(ctx, session.ID, bson.M{"status": model.SessionStatusOpen}); err != nil {
				s.cfg.Log.Warn("Failed to reopen session", "session_id", session.ID, "error", err)
			}
		}
	}

	s.cfg.Log.Info("Enrollment cancelled", "id", enrollmentID, "session_id", enrollment.SessionID)
	return nil
}

func (s *sessionService) Participants(ctx context.Context, sessionID string) ([]*model.Enrollment, error) {
	if err := validateID(sessionID, "Session"); err != nil {
		return nil, err
	}

	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	enrollments, err := s.enrollRepo.FindRegisteredBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load session participants", err)
	}

	return enrollments, nil
}

// --- Gateway methods used by the waitlist service ---

func (s *sessionService) SessionCapacity(ctx context.Context, sessionID string) (int, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return session.Capacity, nil
}

// AcceptsEnrollments reports whether the session status still admits new
// participants or waiting-list entries. FULL counts as accepting because the
// queue exists exactly for full sessions.
func (s *sessionService) AcceptsEnrollments(ctx context.Context, sessionID string) (bool, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return session.AcceptsEnrollments(), nil
}

func (s *sessionService) RegisteredCount(ctx context.Context, sessionID string) (int64, error) {
	return s.enrollRepo.CountRegistered(ctx, sessionID)
}

func (s *sessionService) HasActiveEnrollment(ctx context.Context, sessionID, memberID string) (bool, error) {
	existing, err := s.enrollRepo.FindActiveBySessionAndMember(ctx, sessionID, memberID)
	if err != nil {
		return false, err
	}
	return existing != nil, nil
}

// CreateEnrollment inserts a registered enrollment. Runs inside the caller's
// transaction when ctx is a mongo session context.
func (s *sessionService) CreateEnrollment(ctx context.Context, sessionID, memberID, source string) (*model.Enrollment, error) {
	enrollment := &model.Enrollment{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		MemberID:  memberID,
		Status:    model.EnrollmentStatusRegistered,
		Source:    source,
	}

	if err := s.enrollRepo.Create(ctx, enrollment); err != nil {
		return nil, apperrors.Internal("Failed to create enrollment", err)
	}

	return enrollment, nil
}

// --- Helpers ---

func (s *sessionService) getSession(ctx context.Context, id string) (*model.ClassSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sessionerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Session", id)
		}
		return nil, apperrors.Internal("Failed to retrieve class session", err)
	}
	return session, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Class session validation failed", map[string]any{
			"errors": verrs,
		})
	}
	return apperrors.Validation(err.Error(), nil)
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
