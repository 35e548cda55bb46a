// Package flow builds and runs the step state machine that turns a
// detected intent into policy-checked, audited tool invocations.
package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ayejay3194/business-spine/internal/confirm"
	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/spine"
)

// Builder turns (intent, extraction) into an ordered step list. The
// decision order, evaluated once per turn:
//
//  1. Missing required fields: a single ask step. The core keeps no state
//     across an ask; the caller re-runs the whole pipeline with more text.
//  2. High sensitivity and no confirmation token in the context: a single
//     confirm step carrying a freshly minted token bound to the action and
//     a content hash of the input.
//  3. Otherwise: the execute step, plus trailing execute steps for
//     composite actions. The runner appends the terminating respond step
//     once execution completes.
type Builder struct {
	spines *spine.Registry
	issuer *confirm.Issuer
}

// NewBuilder creates a builder.
func NewBuilder(spines *spine.Registry, issuer *confirm.Issuer) *Builder {
	return &Builder{spines: spines, issuer: issuer}
}

// Build produces the steps for one turn. Deterministic for a fixed
// (intent, extraction, rctx): even minted tokens depend only on the
// action, input, actor, and the context's logical now.
func (b *Builder) Build(ctx context.Context, it domain.Intent, extraction domain.Extraction, rctx domain.RequestContext) ([]domain.FlowStep, error) {
	if !extraction.Complete() {
		prompt := fmt.Sprintf("I need a bit more information: %s", strings.Join(extraction.Missing, ", "))
		return []domain.FlowStep{domain.AskStep(prompt, extraction.Missing)}, nil
	}

	spec, ok := b.spines.Action(it.Spine, it.Name)
	if !ok {
		return nil, domain.ErrValidation(fmt.Sprintf("spine %s does not declare action %s", it.Spine, it.Name))
	}

	action := QualifiedAction(it.Spine, it.Name)
	input := extraction.Entities

	if spec.Sensitivity == domain.SensitivityHigh && rctx.ConfirmToken == "" && rctx.StepUpToken == "" {
		token, err := b.issuer.Mint(ctx, rctx, action, input)
		if err != nil {
			return nil, fmt.Errorf("minting confirmation token: %w", err)
		}
		return []domain.FlowStep{domain.ConfirmStep(confirmPrompt(spec, action), token)}, nil
	}

	steps := []domain.FlowStep{domain.ExecuteStep(action, spec.Sensitivity, spec.Tool, input)}
	for _, followUp := range spec.Then {
		followSpec, ok := b.spines.Action(it.Spine, followUp)
		if !ok {
			return nil, domain.ErrValidation(fmt.Sprintf("spine %s does not declare follow-up action %s", it.Spine, followUp))
		}
		steps = append(steps, domain.ExecuteStep(QualifiedAction(it.Spine, followUp), followSpec.Sensitivity, followSpec.Tool, input))
	}
	return steps, nil
}

// QualifiedAction joins a spine and action name into the globally unique
// action identifier used by policy, tokens, and the audit trail.
func QualifiedAction(spineName, actionName string) string {
	return spineName + "." + actionName
}

func confirmPrompt(spec spine.ActionSpec, action string) string {
	if spec.ConfirmPrompt != "" {
		return spec.ConfirmPrompt
	}
	return fmt.Sprintf("%s is a sensitive action. Resubmit with the confirmation token to proceed.", action)
}
