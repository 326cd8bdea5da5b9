package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gymflow/internal/sessions/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SessionHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewSessionHandler(service service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log,
	}
}

type enrollRequest struct {
	MemberID string `json:"member_id"`
}

type queuedResponse struct {
	WaitingListID string `json:"waiting_list_id"`
	Position      int    `json:"position"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var session model.ClassSession
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	if err := h.service.Create(r.Context(), &session); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, session)
}

func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("sessionId")

	session, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

// GetSchedule lists sessions in a time range; defaults to the week ahead.
func (h *SessionHandler) GetSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	from, err := parseTimeParam(query.Get("from"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid from parameter, expected RFC 3339"))
		return
	}
	to, err := parseTimeParam(query.Get("to"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid to parameter, expected RFC 3339"))
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessions, total, err := h.service.GetSchedule(r.Context(), from, to, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, sessions, total, limit, int(offset))
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("sessionId")

	var updates model.ClassSessionUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	session, err := h.service.Update(r.Context(), id, &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, session)
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("sessionId")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *SessionHandler) Cancel(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("sessionId")

	if err := h.service.CancelSession(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"status": model.SessionStatusCancelled})
}

// Enroll registers the member or, when the session is full, queues them and
// answers 409 with the waiting list position.
func (h *SessionHandler) Enroll(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sessionID := params.ByName("sessionId")

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	result, err := h.service.Enroll(r.Context(), sessionID, req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if result.QueuedEntry != nil {
		httputil.WriteJSON(w, http.StatusConflict, httputil.SuccessResponse{Data: queuedResponse{
			WaitingListID: result.QueuedEntry.ID,
			Position:      result.QueuedEntry.Position,
			Status:        result.QueuedEntry.Status,
			Message:       fmt.Sprintf("Session is full, added to waiting list at position %d", result.QueuedEntry.Position),
		}})
		return
	}

	httputil.WriteCreated(w, result.Enrollment)
}

func (h *SessionHandler) CancelEnrollment(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	enrollmentID := params.ByName("enrollmentId")

	if err := h.service.CancelEnrollment(r.Context(), enrollmentID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"status": model.EnrollmentStatusCanceled})
}

func (h *SessionHandler) Participants(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sessionID := params.ByName("sessionId")

	enrollments, err := h.service.Participants(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, enrollments)
}

func parseTimeParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/class-sessions", h.Create)
	router.GET("/api/class-sessions", h.GetSchedule)
	router.GET("/api/class-sessions/:sessionId", h.GetByID)
	router.PATCH("/api/class-sessions/:sessionId", h.Update)
	router.DELETE("/api/class-sessions/:sessionId", h.Delete)
	router.POST("/api/class-sessions/:sessionId/cancel", h.Cancel)
	router.POST("/api/class-sessions/:sessionId/enroll", h.Enroll)
	router.GET("/api/class-sessions/:sessionId/participants", h.Participants)
	router.POST("/api/enrollments/:enrollmentId/cancel", h.CancelEnrollment)
}
