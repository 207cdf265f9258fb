package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/filegate/filegate/internal/data"
	"github.com/filegate/filegate/internal/domain/policy"
	"github.com/filegate/filegate/internal/service"
)

// PolicyHandlers exposes the admin policy API. All responses are
// PolicyView-shaped; stored password ciphertext never leaves the service.
type PolicyHandlers struct {
	Svc      *service.PolicyService
	Validate *validator.Validate
}

// NewPolicyHandlers creates PolicyHandlers with a fresh validator.
func NewPolicyHandlers(svc *service.PolicyService) *PolicyHandlers {
	return &PolicyHandlers{Svc: svc, Validate: validator.New()}
}

// PolicyPayload is the admin-submitted policy body. An empty password
// keeps the stored one unchanged.
type PolicyPayload struct {
	Methods      []string `json:"methods"       validate:"required,min=1,dive,oneof=logged_in simple_password"`
	AllowedRoles []string `json:"allowed_roles" validate:"omitempty,dive,required"`
	Password     string   `json:"password"      validate:"omitempty,min=1"`
}

func (h *PolicyHandlers) decodePayload(w http.ResponseWriter, r *http.Request) (service.PolicyInput, bool) {
	var payload PolicyPayload
	if !DecodeJSON(w, r, &payload) {
		return service.PolicyInput{}, false
	}
	if err := h.Validate.Struct(payload); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
		return service.PolicyInput{}, false
	}

	in := service.PolicyInput{
		AllowedRoles: payload.AllowedRoles,
		Password:     payload.Password,
	}
	for _, m := range payload.Methods {
		in.Methods = append(in.Methods, policy.Method(m))
	}
	return in, true
}

func writePolicyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, policy.ErrValidation):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation_failed", Err: err})
	case errors.Is(err, data.ErrPolicyNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "policy_not_found", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "policy_store_error", Err: err})
	}
}

// GetGlobal handles GET /api/policies/global.
func (h *PolicyHandlers) GetGlobal(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Global(r.Context())
	if err != nil {
		writePolicyError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// PutGlobal handles PUT /api/policies/global.
func (h *PolicyHandlers) PutGlobal(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	if err := h.Svc.SetGlobal(r.Context(), in); err != nil {
		writePolicyError(w, err)
		return
	}
	view, err := h.Svc.Global(r.Context())
	if err != nil {
		writePolicyError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// ListDirectories handles GET /api/policies/directories.
func (h *PolicyHandlers) ListDirectories(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.Directories(r.Context())
	if err != nil {
		writePolicyError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"directories": views})
}

// GetDirectory handles GET /api/policies/directories/{path...}.
func (h *PolicyHandlers) GetDirectory(w http.ResponseWriter, r *http.Request) {
	dir := r.PathValue("path")
	view, found, err := h.Svc.Directory(r.Context(), dir)
	if err != nil {
		writePolicyError(w, err)
		return
	}
	if !found {
		writePolicyError(w, data.ErrPolicyNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// PutDirectory handles PUT /api/policies/directories/{path...}.
func (h *PolicyHandlers) PutDirectory(w http.ResponseWriter, r *http.Request) {
	dir := r.PathValue("path")
	in, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	if err := h.Svc.SetDirectory(r.Context(), dir, in); err != nil {
		writePolicyError(w, err)
		return
	}
	view, found, err := h.Svc.Directory(r.Context(), dir)
	if err != nil || !found {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// DeleteDirectory handles DELETE /api/policies/directories/{path...}.
func (h *PolicyHandlers) DeleteDirectory(w http.ResponseWriter, r *http.Request) {
	dir := r.PathValue("path")
	if err := h.Svc.RemoveDirectory(r.Context(), dir); err != nil {
		writePolicyError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
