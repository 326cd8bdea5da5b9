package handler

import (
	"encoding/json"
	"net/http"

	"gymflow/internal/trainers/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type TrainerHandler struct {
	service service.TrainerService
	log     *logger.Logger
}

func NewTrainerHandler(service service.TrainerService, log *logger.Logger) *TrainerHandler {
	return &TrainerHandler{
		service: service,
		log:     log,
	}
}

func (h *TrainerHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var trainer model.Trainer
	if err := json.NewDecoder(r.Body).Decode(&trainer); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	if err := h.service.Create(r.Context(), &trainer); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, trainer)
}

func (h *TrainerHandler) GetByID(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("trainerId")

	trainer, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, trainer)
}

func (h *TrainerHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	trainers, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, trainers, total, limit, int(offset))
}

func (h *TrainerHandler) Update(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("trainerId")

	var updates model.TrainerUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	trainer, err := h.service.Update(r.Context(), id, &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, trainer)
}

func (h *TrainerHandler) Delete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("trainerId")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TrainerHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/trainers", h.Create)
	router.GET("/api/trainers", h.GetAll)
	router.GET("/api/trainers/:trainerId", h.GetByID)
	router.PATCH("/api/trainers/:trainerId", h.Update)
	router.DELETE("/api/trainers/:trainerId", h.Delete)
}
