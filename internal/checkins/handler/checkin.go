package handler

import (
	"encoding/json"
	"net/http"

	"gymflow/internal/checkins/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type CheckinHandler struct {
	service service.CheckinService
	log     *logger.Logger
}

func NewCheckinHandler(service service.CheckinService, log *logger.Logger) *CheckinHandler {
	return &CheckinHandler{
		service: service,
		log:     log,
	}
}

type checkinRequest struct {
	MemberID string `json:"member_id"`
}

func (h *CheckinHandler) CheckIn(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	checkin, err := h.service.CheckIn(r.Context(), req.MemberID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, checkin)
}

func (h *CheckinHandler) History(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	memberID := params.ByName("memberId")

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	checkins, total, err := h.service.History(r.Context(), memberID, limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, checkins, total, limit, int(offset))
}

func (h *CheckinHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/checkins", h.CheckIn)
	router.GET("/api/members/:memberId/checkins", h.History)
}
