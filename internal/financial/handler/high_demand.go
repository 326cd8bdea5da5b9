package handler

import (
	"net/http"
	"strconv"

	waitlistservice "gymflow/internal/waitlist/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

// FinancialHandler exposes demand analytics derived from queue pressure.
type FinancialHandler struct {
	waitlist waitlistservice.WaitlistService
	log      *logger.Logger
}

func NewFinancialHandler(waitlist waitlistservice.WaitlistService, log *logger.Logger) *FinancialHandler {
	return &FinancialHandler{
		waitlist: waitlist,
		log:      log,
	}
}

// HighDemand lists sessions whose waiting list size or longest wait exceeds
// the thresholds. Omitted parameters fall back to configured defaults.
func (h *FinancialHandler) HighDemand(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()

	minWaiting, err := parseThreshold(query.Get("min_waiting"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid min_waiting parameter"))
		return
	}

	minWaitingHours, err := parseThreshold(query.Get("min_waiting_hours"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("invalid min_waiting_hours parameter"))
		return
	}

	sessions, err := h.waitlist.DetectHighDemand(r.Context(), minWaiting, minWaitingHours)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, sessions)
}

func parseThreshold(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func (h *FinancialHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/financial/high-demand", h.HighDemand)
}
