package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gymflow/internal/waitlist/service"
	apperrors "gymflow/pkg/errors"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// Mock service for testing
type mockWaitlistService struct {
	addFunc     func(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error)
	confirmFunc func(ctx context.Context, entryID string) (*model.Enrollment, error)
	cancelFunc  func(ctx context.Context, entryID string) error
	sweepFunc   func(ctx context.Context, sessionID string) (int, error)
}

func (m *mockWaitlistService) Add(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, sessionID, memberID)
	}
	return nil, nil
}

func (m *mockWaitlistService) Confirm(ctx context.Context, entryID string) (*model.Enrollment, error) {
	if m.confirmFunc != nil {
		return m.confirmFunc(ctx, entryID)
	}
	return nil, nil
}

func (m *mockWaitlistService) Cancel(ctx context.Context, entryID string) error {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, entryID)
	}
	return nil
}

func (m *mockWaitlistService) Promote(ctx context.Context, sessionID string) (*model.WaitingListEntry, error) {
	return nil, nil
}

func (m *mockWaitlistService) GetQueue(ctx context.Context, sessionID string) (*service.QueueView, error) {
	return &service.QueueView{SessionID: sessionID, Waiting: []*service.EntryView{}}, nil
}

func (m *mockWaitlistService) GetMemberEntries(ctx context.Context, memberID string) ([]*service.EntryView, error) {
	return []*service.EntryView{}, nil
}

func (m *mockWaitlistService) SweepExpired(ctx context.Context, sessionID string) (int, error) {
	if m.sweepFunc != nil {
		return m.sweepFunc(ctx, sessionID)
	}
	return 0, nil
}

func (m *mockWaitlistService) DetectHighDemand(ctx context.Context, minWaiting, minWaitingHours int) ([]*service.HighDemandSession, error) {
	return []*service.HighDemandSession{}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:     logger.LevelError,
		Format:    logger.FormatJSON,
		AddSource: false,
		Service:   "test",
	})
}

func TestAdd_ReturnsCreatedEntry(t *testing.T) {
	mockService := &mockWaitlistService{
		addFunc: func(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
			return &model.WaitingListEntry{
				ID:        "entry-1",
				SessionID: sessionID,
				MemberID:  memberID,
				Status:    model.WaitingStatusWaiting,
				Position:  3,
			}, nil
		},
	}

	handler := NewWaitlistHandler(mockService, testLogger())

	body := strings.NewReader(`{"member_id":"member-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/sessions/session-1", body)
	w := httptest.NewRecorder()

	handler.Add(w, req, httprouter.Params{{Key: "sessionId", Value: "session-1"}})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}

	var response struct {
		Data struct {
			WaitingListID string `json:"waiting_list_id"`
			Position      int    `json:"position"`
			Status        string `json:"status"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Data.WaitingListID != "entry-1" {
		t.Errorf("expected waiting_list_id entry-1, got %s", response.Data.WaitingListID)
	}
	if response.Data.Position != 3 {
		t.Errorf("expected position 3, got %d", response.Data.Position)
	}
	if response.Data.Status != model.WaitingStatusWaiting {
		t.Errorf("expected WAITING status, got %s", response.Data.Status)
	}
}

func TestAdd_InvalidBody(t *testing.T) {
	handler := NewWaitlistHandler(&mockWaitlistService{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/sessions/session-1", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handler.Add(w, req, httprouter.Params{{Key: "sessionId", Value: "session-1"}})

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestAdd_ServiceErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"duplicate entry", apperrors.Conflict("already queued"), http.StatusConflict},
		{"free capacity", apperrors.InvalidState("session has free capacity"), http.StatusBadRequest},
		{"unknown member", apperrors.NotFoundWithID("Member", "m1"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &mockWaitlistService{
				addFunc: func(ctx context.Context, sessionID, memberID string) (*model.WaitingListEntry, error) {
					return nil, tt.serviceErr
				},
			}
			handler := NewWaitlistHandler(mockService, testLogger())

			body := strings.NewReader(`{"member_id":"member-1"}`)
			req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/sessions/session-1", body)
			w := httptest.NewRecorder()

			handler.Add(w, req, httprouter.Params{{Key: "sessionId", Value: "session-1"}})

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestConfirm_ReturnsEnrollment(t *testing.T) {
	mockService := &mockWaitlistService{
		confirmFunc: func(ctx context.Context, entryID string) (*model.Enrollment, error) {
			return &model.Enrollment{ID: "enrollment-1"}, nil
		},
	}
	handler := NewWaitlistHandler(mockService, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/entries/entry-1/confirm", nil)
	w := httptest.NewRecorder()

	handler.Confirm(w, req, httprouter.Params{{Key: "waitingListId", Value: "entry-1"}})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var response struct {
		Data struct {
			EnrollmentID string `json:"enrollment_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.EnrollmentID != "enrollment-1" {
		t.Errorf("expected enrollment-1, got %s", response.Data.EnrollmentID)
	}
}

func TestConfirm_PastDeadline(t *testing.T) {
	mockService := &mockWaitlistService{
		confirmFunc: func(ctx context.Context, entryID string) (*model.Enrollment, error) {
			return nil, apperrors.Expired("approval deadline has passed")
		},
	}
	handler := NewWaitlistHandler(mockService, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/entries/entry-1/confirm", nil)
	w := httptest.NewRecorder()

	handler.Confirm(w, req, httprouter.Params{{Key: "waitingListId", Value: "entry-1"}})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var response struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Code != apperrors.CodeExpired {
		t.Errorf("expected EXPIRED code, got %s", response.Code)
	}
}

func TestCancel_Success(t *testing.T) {
	var cancelledID string
	mockService := &mockWaitlistService{
		cancelFunc: func(ctx context.Context, entryID string) error {
			cancelledID = entryID
			return nil
		},
	}
	handler := NewWaitlistHandler(mockService, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/entries/entry-1/cancel", nil)
	w := httptest.NewRecorder()

	handler.Cancel(w, req, httprouter.Params{{Key: "waitingListId", Value: "entry-1"}})

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if cancelledID != "entry-1" {
		t.Errorf("expected entry-1 cancelled, got %s", cancelledID)
	}
}

func TestSweepExpired_ReportsCount(t *testing.T) {
	var sweptSession string
	mockService := &mockWaitlistService{
		sweepFunc: func(ctx context.Context, sessionID string) (int, error) {
			sweptSession = sessionID
			return 2, nil
		},
	}
	handler := NewWaitlistHandler(mockService, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/waiting-list/check-expired?session_id=session-1", nil)
	w := httptest.NewRecorder()

	handler.SweepExpired(w, req, httprouter.Params{})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if sweptSession != "session-1" {
		t.Errorf("expected session-1, got %s", sweptSession)
	}

	var response struct {
		Data struct {
			ExpiredCount int `json:"expired_count"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Data.ExpiredCount != 2 {
		t.Errorf("expected expired_count 2, got %d", response.Data.ExpiredCount)
	}
}
