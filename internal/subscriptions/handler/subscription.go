package handler

import (
	"encoding/json"
	"net/http"

	"gymflow/internal/subscriptions/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		log:     log,
	}
}

// --- Plans ---

func (h *SubscriptionHandler) CreatePlan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var plan model.Plan
	if err := json.NewDecoder(r.Body).Decode(&plan); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	if err := h.service.CreatePlan(r.Context(), &plan); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, plan)
}

func (h *SubscriptionHandler) GetPlan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	plan, err := h.service.GetPlan(r.Context(), params.ByName("planId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, plan)
}

func (h *SubscriptionHandler) ListPlans(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, plans)
}

func (h *SubscriptionHandler) UpdatePlan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var updates model.PlanUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	plan, err := h.service.UpdatePlan(r.Context(), params.ByName("planId"), &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, plan)
}

func (h *SubscriptionHandler) DeletePlan(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := h.service.DeletePlan(r.Context(), params.ByName("planId")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// --- Subscriptions ---

func (h *SubscriptionHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input service.CreateSubscriptionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	sub, err := h.service.Create(r.Context(), &input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, sub)
}

func (h *SubscriptionHandler) GetByID(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	sub, err := h.service.GetByID(r.Context(), params.ByName("subscriptionId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, sub)
}

func (h *SubscriptionHandler) GetMemberSubscriptions(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	subs, err := h.service.GetMemberSubscriptions(r.Context(), params.ByName("memberId"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, subs)
}

func (h *SubscriptionHandler) Freeze(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := h.service.Freeze(r.Context(), params.ByName("subscriptionId")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"status": model.SubscriptionStatusFrozen})
}

func (h *SubscriptionHandler) Unfreeze(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if err := h.service.Unfreeze(r.Context(), params.ByName("subscriptionId")); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]string{"status": model.SubscriptionStatusActive})
}

func (h *SubscriptionHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/plans", h.CreatePlan)
	router.GET("/api/plans", h.ListPlans)
	router.GET("/api/plans/:planId", h.GetPlan)
	router.PATCH("/api/plans/:planId", h.UpdatePlan)
	router.DELETE("/api/plans/:planId", h.DeletePlan)

	router.POST("/api/subscriptions", h.Create)
	router.GET("/api/subscriptions/:subscriptionId", h.GetByID)
	router.POST("/api/subscriptions/:subscriptionId/freeze", h.Freeze)
	router.POST("/api/subscriptions/:subscriptionId/unfreeze", h.Unfreeze)
	router.GET("/api/members/:memberId/subscriptions", h.GetMemberSubscriptions)
}
