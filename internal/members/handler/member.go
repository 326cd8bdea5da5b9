package handler

import (
	"encoding/json"
	"net/http"

	"gymflow/internal/members/service"
	apperrors "gymflow/pkg/errors"
	httputil "gymflow/pkg/http"
	"gymflow/pkg/logger"
	"gymflow/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MemberHandler struct {
	service service.MemberService
	log     *logger.Logger
}

func NewMemberHandler(service service.MemberService, log *logger.Logger) *MemberHandler {
	return &MemberHandler{
		service: service,
		log:     log,
	}
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var member model.Member
	if err := json.NewDecoder(r.Body).Decode(&member); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	if err := h.service.Create(r.Context(), &member); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteCreated(w, member)
}

func (h *MemberHandler) GetByID(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("memberId")

	member, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, member)
}

func (h *MemberHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	members, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WritePaginated(w, members, total, limit, int(offset))
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("memberId")

	var updates model.MemberUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("Invalid JSON body"))
		return
	}

	member, err := h.service.Update(r.Context(), id, &updates)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, member)
}

func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := params.ByName("memberId")

	if err := h.service.Delete(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MemberHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/members", h.Create)
	router.GET("/api/members", h.GetAll)
	router.GET("/api/members/:memberId", h.GetByID)
	router.PATCH("/api/members/:memberId", h.Update)
	router.DELETE("/api/members/:memberId", h.Delete)
}
