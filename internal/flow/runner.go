package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Ayejay3194/business-spine/internal/audit"
	"github.com/Ayejay3194/business-spine/internal/confirm"
	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/policy"
	"github.com/Ayejay3194/business-spine/internal/spine"
	"github.com/Ayejay3194/business-spine/internal/tool"
)

// State identifies where a flow turn stopped.
type State string

const (
	StateAskPending     State = "ask_pending"
	StateConfirmPending State = "confirm_pending"
	StateExecuting      State = "executing"
	StateDone           State = "done"
)

// StateOf derives the state a turn ended in from its trace.
func StateOf(result domain.FlowRunResult) State {
	if len(result.Steps) == 0 {
		return StateDone
	}
	switch result.Steps[len(result.Steps)-1].Kind {
	case domain.StepAsk:
		return StateAskPending
	case domain.StepConfirm:
		return StateConfirmPending
	}
	if result.Final != nil {
		return StateDone
	}
	return StateExecuting
}

// Runner drives built steps through policy and tools. Per execute step it
// checks policy, invokes the tool under a timeout, writes exactly one audit
// event (blocked, success, or failure), and appends the respond step. Steps
// run strictly in builder order; a denial or failure stops the turn.
type Runner struct {
	tools       *tool.Registry
	spines      *spine.Registry
	engine      *policy.Engine
	auditLog    *audit.Logger
	issuer      *confirm.Issuer
	toolTimeout time.Duration
	logger      *slog.Logger
}

// NewRunner creates a runner.
func NewRunner(tools *tool.Registry, spines *spine.Registry, engine *policy.Engine, auditLog *audit.Logger, issuer *confirm.Issuer, toolTimeout time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		tools:       tools,
		spines:      spines,
		engine:      engine,
		auditLog:    auditLog,
		issuer:      issuer,
		toolTimeout: toolTimeout,
		logger:      logger,
	}
}

// Run executes one turn. Fatal validation problems (malformed or injected
// step descriptors, token/action mismatches) return an error and abort the
// turn; everything else is expressed in the returned trace.
func (r *Runner) Run(ctx context.Context, rctx domain.RequestContext, steps []domain.FlowStep) (domain.FlowRunResult, error) {
	// Static validation runs before any policy or tool code: malformed
	// step descriptors indicate a programming or injection error upstream,
	// not a user-correctable condition.
	if err := r.validate(steps); err != nil {
		return domain.FlowRunResult{}, err
	}

	result := domain.FlowRunResult{}
	confirmed := false

	for _, step := range steps {
		switch step.Kind {
		case domain.StepAsk, domain.StepConfirm:
			// Turn-terminal: hand control back to the caller.
			result.Steps = append(result.Steps, step)
			return result, nil

		case domain.StepRespond:
			result.Steps = append(result.Steps, step)
			result.Final = &domain.FinalResult{OK: true, Message: step.Message, Payload: step.Payload}
			return result, nil

		case domain.StepExecute:
			stop, err := r.runExecute(ctx, rctx, step, &confirmed, &result)
			if err != nil {
				return domain.FlowRunResult{}, err
			}
			if stop {
				return result, nil
			}
		}
	}

	if result.Final == nil && len(result.Steps) > 0 {
		last := result.Steps[len(result.Steps)-1]
		if last.Kind == domain.StepRespond {
			result.Final = &domain.FinalResult{OK: true, Message: last.Message, Payload: last.Payload}
		}
	}
	return result, nil
}

// runExecute drives one execute step. It reports stop=true when the turn
// must not continue (denial, failure, or regress to confirmation).
func (r *Runner) runExecute(ctx context.Context, rctx domain.RequestContext, step domain.FlowStep, confirmed *bool, result *domain.FlowRunResult) (stop bool, err error) {
	spec, ok := r.actionSpec(step.Action)
	if !ok {
		return false, domain.ErrValidation(fmt.Sprintf("unknown action %s", step.Action))
	}

	// Validate and consume the confirmation token before the policy gate,
	// so a replayed token bound to a different action or input fails loudly
	// instead of silently passing as unconfirmed.
	if spec.Sensitivity == domain.SensitivityHigh && !*confirmed && rctx.ConfirmToken != "" {
		verr := r.issuer.Validate(ctx, rctx, rctx.ConfirmToken, step.Action, step.Input)
		switch {
		case verr == nil:
			*confirmed = true
		case domain.CodeOf(verr) == domain.ErrorCodeConflict, domain.CodeOf(verr) == domain.ErrorCodeValidation:
			return false, verr
		default:
			// Expired or already consumed: same as missing. Re-issue.
			return true, r.regressToConfirm(ctx, rctx, step, spec, result)
		}
	}

	decision := r.engine.Decide(ctx, policy.Request{
		Ctx:       rctx,
		Action:    step.Action,
		Spec:      spec,
		Input:     step.Input,
		Confirmed: *confirmed,
	})

	if !decision.Allow {
		// Recoverable denial: the actor can cure it with a confirmation
		// round trip. Checked again here even though the builder normally
		// catches it first.
		if decision.RequireConfirmation != nil && rctx.ConfirmToken == "" {
			return true, r.regressToConfirm(ctx, rctx, step, spec, result)
		}

		result.Steps = append(result.Steps, step)
		if err := r.writeAudit(ctx, rctx, step, domain.OutcomeBlocked, decision.Reason); err != nil {
			return false, err
		}
		respond := domain.RespondStep(decision.Reason, nil)
		result.Steps = append(result.Steps, respond)
		result.Final = &domain.FinalResult{OK: false, Message: decision.Reason}
		r.logger.Info("execute blocked",
			slog.String("action", step.Action),
			slog.String("tenant", rctx.TenantID),
			slog.String("reason", decision.Reason),
		)
		return true, nil
	}

	result.Steps = append(result.Steps, step)

	// The tool call is the only point where external state changes.
	toolResult, err := r.tools.Invoke(ctx, step.Tool, tool.Call{Ctx: rctx, Input: step.Input}, r.toolTimeout)
	if err != nil {
		// Unregistered tool slipped past validation; still audited.
		toolResult = tool.Result{OK: false, Error: err.Error()}
	}

	if !toolResult.OK {
		if err := r.writeAudit(ctx, rctx, step, domain.OutcomeFailure, toolResult.Error); err != nil {
			return false, err
		}
		message := fmt.Sprintf("%s failed: %s", step.Action, toolResult.Error)
		result.Steps = append(result.Steps, domain.RespondStep(message, nil))
		result.Final = &domain.FinalResult{OK: false, Message: message}
		r.logger.Warn("execute failed",
			slog.String("action", step.Action),
			slog.String("tenant", rctx.TenantID),
			slog.String("error", toolResult.Error),
		)
		return true, nil
	}

	if err := r.writeAudit(ctx, rctx, step, domain.OutcomeSuccess, ""); err != nil {
		return false, err
	}

	message := fmt.Sprintf("%s completed", step.Action)
	result.Steps = append(result.Steps, domain.RespondStep(message, toolResult.Data))
	result.Final = &domain.FinalResult{OK: true, Message: message, Payload: toolResult.Data}
	return false, nil
}

func (r *Runner) regressToConfirm(ctx context.Context, rctx domain.RequestContext, step domain.FlowStep, spec spine.ActionSpec, result *domain.FlowRunResult) error {
	token, err := r.issuer.Mint(ctx, rctx, step.Action, step.Input)
	if err != nil {
		return fmt.Errorf("minting confirmation token: %w", err)
	}
	result.Steps = append(result.Steps, domain.ConfirmStep(confirmPrompt(spec, step.Action), token))
	return nil
}

func (r *Runner) writeAudit(ctx context.Context, rctx domain.RequestContext, step domain.FlowStep, outcome domain.Outcome, reason string) error {
	event := domain.AuditEvent{
		TS:           rctx.Now,
		TenantID:     rctx.TenantID,
		ActorUserID:  rctx.Actor.UserID,
		ActorRole:    rctx.Actor.Role,
		Action:       step.Action,
		Target:       targetOf(step.Input),
		InputSummary: summarize(step.Input),
		Outcome:      outcome,
		Reason:       reason,
	}
	if _, err := r.auditLog.Append(ctx, event); err != nil {
		return fmt.Errorf("appending audit event: %w", err)
	}
	return nil
}

// validate statically checks every execute step before anything runs:
// every tool must exist in the registry and every sensitivity must be one
// of the three legal values. This rejects malformed or injected step
// descriptors independent of the policy engine's runtime checks.
func (r *Runner) validate(steps []domain.FlowStep) error {
	var errs []error
	for i, step := range steps {
		if step.Kind != domain.StepExecute {
			continue
		}
		if step.Action == "" {
			errs = append(errs, fmt.Errorf("step %d: empty action", i))
		}
		if !domain.ValidSensitivity(step.Sensitivity) {
			errs = append(errs, fmt.Errorf("step %d: illegal sensitivity %q", i, step.Sensitivity))
		}
		if !r.tools.Has(step.Tool) {
			errs = append(errs, fmt.Errorf("step %d: tool %q not registered", i, step.Tool))
		}
	}
	if len(errs) > 0 {
		return domain.ErrValidation("rejected step descriptors").WithCause(errors.Join(errs...))
	}
	return nil
}

func (r *Runner) actionSpec(qualified string) (spine.ActionSpec, bool) {
	spineName, actionName, ok := strings.Cut(qualified, ".")
	if !ok {
		return spine.ActionSpec{}, false
	}
	return r.spines.Action(spineName, actionName)
}

// targetOf picks the acted-on resource identifier for the audit trail.
func targetOf(input map[string]any) string {
	for _, key := range []string{"email", "client_email", "id"} {
		if v, ok := input[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// summarize renders the input compactly for the audit trail. Inputs can
// carry long free text; the audit log needs enough to explain the
// decision, not a full copy.
func summarize(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	data, err := json.Marshal(input)
	if err != nil {
		return ""
	}
	const maxSummary = 256
	if len(data) > maxSummary {
		return string(data[:maxSummary])
	}
	return string(data)
}
