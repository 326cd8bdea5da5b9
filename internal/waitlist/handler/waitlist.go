package handler

import (
	"encoding/json"
	"net/http"

	"gymflow/internal/waitlist/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type WaitlistHandler struct {
	service service.WaitlistService
	log     *logger.Logger
}

func NewWaitlistHandler(service service.WaitlistService, log *logger.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		log:     log,
	}
}

type addRequest struct {
	MemberID string `json:"member_id"`
}

type addResponse struct {
	WaitingListID string `json:"waiting_list_id"`
	Position      int    `json:"position"`
	Status        string `json:"status"`
}

type confirmResponse struct {
	EnrollmentID string `json:"enrollment_id"`
}

type sweepResponse struct {
	ExpiredCount int `json:"expired_count"`
}

// Add enqueues a member on a session's waiting list.
func (h *WaitlistHandler) Add(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sessionID := params.ByName("sessionId")

	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	entry, err := h.service.Add(r.Context(), sessionID, req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, addResponse{
		WaitingListID: entry.ID,
		Position:      entry.Position,
		Status:        entry.Status,
	})
}

// Confirm claims the offered spot before the approval deadline.
func (h *WaitlistHandler) Confirm(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	entryID := params.ByName("waitingListId")

	enrollment, err := h.service.Confirm(r.Context(), entryID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, confirmResponse{EnrollmentID: enrollment.ID})
}

// Cancel withdraws an entry from the queue.
func (h *WaitlistHandler) Cancel(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	entryID := params.ByName("waitingListId")

	if err := h.service.Cancel(r.Context(), entryID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"status": "CANCELLED"})
}

// GetQueue returns the ordered queue for a session.
func (h *WaitlistHandler) GetQueue(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sessionID := params.ByName("sessionId")

	view, err := h.service.GetQueue(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, view)
}

// GetMemberEntries lists a member's entries across all sessions.
func (h *WaitlistHandler) GetMemberEntries(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	memberID := params.ByName("memberId")

	entries, err := h.service.GetMemberEntries(r.Context(), memberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, entries)
}

// SweepExpired reaps overdue assigned entries; session_id narrows the sweep.
func (h *WaitlistHandler) SweepExpired(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessionID := r.URL.Query().Get("session_id")

	count, err := h.service.SweepExpired(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, sweepResponse{ExpiredCount: count})
}

func (h *WaitlistHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/waiting-list/sessions/:sessionId", h.Add)
	router.GET("/api/waiting-list/sessions/:sessionId", h.GetQueue)
	router.POST("/api/waiting-list/entries/:waitingListId/confirm", h.Confirm)
	router.POST("/api/waiting-list/entries/:waitingListId/cancel", h.Cancel)
	router.GET("/api/waiting-list/members/:memberId", h.GetMemberEntries)
	router.POST("/api/waiting-list/check-expired", h.SweepExpired)
}
