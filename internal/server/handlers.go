package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/flow"
	"github.com/Ayejay3194/business-spine/internal/orchestrator"
)

// commandRequest is the body of POST /v1/commands.
type commandRequest struct {
	Text string `json:"text"`
}

// resumeRequest is the body of POST /v1/commands/resume. Entities overlay
// the extraction from the resubmitted text, so structured callers can pin
// exact values instead of relying on re-parsing.
type resumeRequest struct {
	Token    string         `json:"token"`
	Text     string         `json:"text"`
	Entities map[string]any `json:"entities,omitempty"`
}

// commandResponse wraps a flow turn for the wire: the derived state plus
// the full step trace and final result.
type commandResponse struct {
	State string              `json:"state"`
	Steps []domain.FlowStep   `json:"steps"`
	Final *domain.FinalResult `json:"final,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Handlers exposes the command pipeline over HTTP.
type Handlers struct {
	orch     *orchestrator.Orchestrator
	auditLog *audit.Logger
}

func NewHandlers(orch *orchestrator.Orchestrator, auditLog *audit.Logger) *Handlers {
	return &Handlers{orch: orch, auditLog: auditLog}
}

// HandleCommand runs one fresh natural-language command.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized("missing identity"))
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrValidation("invalid request body").WithCause(err))
		return
	}
	if req.Text == "" {
		writeError(w, r, domain.ErrValidation("text is required").WithField("text"))
		return
	}

	rctx := requestContext(r, identity)
	result, err := h.orch.Handle(r.Context(), rctx, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommandResponse(result))
}

// HandleResume continues a flow paused on a confirm step.
func (h *Handlers) HandleResume(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized("missing identity"))
		return
	}

	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.ErrValidation("invalid request body").WithCause(err))
		return
	}
	if req.Token == "" {
		writeError(w, r, domain.ErrValidation("token is required").WithField("token"))
		return
	}
	if req.Text == "" {
		writeError(w, r, domain.ErrValidation("text is required").WithField("text"))
		return
	}

	rctx := requestContext(r, identity)
	result, err := h.orch.Resume(r.Context(), rctx, req.Token, req.Text, req.Entities)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommandResponse(result))
}

// HandleAuditList returns the caller tenant's audit trail in chain order.
// Restricted to owner and admin actors; other roles get FORBIDDEN without
// touching storage.
func (h *Handlers) HandleAuditList(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized("missing identity"))
		return
	}
	if !auditReadAllowed(identity.Actor.Role) {
		writeError(w, r, domain.ErrForbidden("role "+string(identity.Actor.Role)+" may not read the audit trail"))
		return
	}

	events, err := h.auditLog.List(r.Context(), identity.Tenant.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

// HandleAuditVerify re-derives the caller tenant's hash chain and reports
// any tampered events.
func (h *Handlers) HandleAuditVerify(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthorized("missing identity"))
		return
	}
	if !auditReadAllowed(identity.Actor.Role) {
		writeError(w, r, domain.ErrForbidden("role "+string(identity.Actor.Role)+" may not verify the audit trail"))
		return
	}

	events, err := h.auditLog.List(r.Context(), identity.Tenant.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, audit.VerifyChain(events))
}

// HandleHealth is the liveness probe.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func auditReadAllowed(role domain.Role) bool {
	return role == domain.RoleOwner || role == domain.RoleAdmin
}

func toCommandResponse(result domain.FlowRunResult) commandResponse {
	return commandResponse{
		State: string(flow.StateOf(result)),
		Steps: result.Steps,
		Final: result.Final,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)

	var derr *domain.Error
	if !errors.As(err, &derr) {
		derr = domain.ErrInternal("internal error").WithCause(err)
	}

	writeJSON(w, derr.HTTPStatusCode(), errorResponse{Error: errorBody{
		Code:    string(derr.Code),
		Message: derr.Message,
		Field:   derr.Field,
	}})
}
