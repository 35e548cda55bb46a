// Package orchestrator is the façade over the command pipeline: detect →
// extract → build → run for a fresh command, or the same pipeline with a
// confirmation token for a paused one.
//
// The core is stateless across turns. An ask discards everything; the
// caller resupplies the full command. A confirm carries exactly one piece
// of state forward, the token, which is validated against the action and
// input content hash before anything executes.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ayejay3194/business-spine/internal/domain"
	"github.com/Ayejay3194/business-spine/internal/flow"
	"github.com/Ayejay3194/business-spine/internal/intent"
	"github.com/Ayejay3194/business-spine/internal/spine"
)

// Orchestrator runs the command pipeline.
type Orchestrator struct {
	spines   *spine.Registry
	detector *intent.Detector
	builder  *flow.Builder
	runner   *flow.Runner
	logger   *slog.Logger
}

// New creates an orchestrator.
func New(spines *spine.Registry, detector *intent.Detector, builder *flow.Builder, runner *flow.Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		spines:   spines,
		detector: detector,
		builder:  builder,
		runner:   runner,
		logger:   logger,
	}
}

// Handle runs one fresh command through the full pipeline.
func (o *Orchestrator) Handle(ctx context.Context, rctx domain.RequestContext, text string) (domain.FlowRunResult, error) {
	return o.run(ctx, rctx, text, nil)
}

// Resume continues a flow paused on a confirm step. The caller resubmits
// the original command text along with the token; suppliedEntities overlay
// the extraction, letting structured callers pin exact values. Any change
// to the effective input fails token validation with CONFLICT.
func (o *Orchestrator) Resume(ctx context.Context, rctx domain.RequestContext, token, text string, suppliedEntities map[string]any) (domain.FlowRunResult, error) {
	if token == "" {
		return domain.FlowRunResult{}, domain.ErrValidation("resume requires a confirmation token")
	}
	rctx.ConfirmToken = token
	return o.run(ctx, rctx, text, suppliedEntities)
}

func (o *Orchestrator) run(ctx context.Context, rctx domain.RequestContext, text string, suppliedEntities map[string]any) (domain.FlowRunResult, error) {
	if err := validateContext(rctx); err != nil {
		return domain.FlowRunResult{}, err
	}

	candidates := o.detector.Detect(text, rctx)
	if len(candidates) == 0 {
		o.logger.Info("no intent detected",
			slog.String("tenant", rctx.TenantID),
			slog.String("actor", rctx.Actor.UserID),
		)
		return domain.FlowRunResult{
			Final: &domain.FinalResult{OK: false, Message: "Sorry, I did not understand that command."},
		}, nil
	}

	// Consume the highest-confidence candidate whose spine both declares
	// the action and can extract for it.
	for _, candidate := range candidates {
		s, ok := o.spines.Get(candidate.Spine)
		if !ok {
			continue
		}
		if _, ok := s.Action(candidate.Name); !ok {
			continue
		}

		extraction := s.Extract(candidate, text, rctx)
		if extraction.Entities == nil {
			extraction.Entities = make(map[string]any, len(suppliedEntities))
		}
		for k, v := range suppliedEntities {
			extraction.Entities[k] = v
		}
		// Supplied entities can satisfy fields extraction could not.
		extraction.Missing = stillMissing(extraction)

		o.logger.Info("intent selected",
			slog.String("tenant", rctx.TenantID),
			slog.String("spine", candidate.Spine),
			slog.String("intent", candidate.Name),
			slog.Float64("confidence", candidate.Confidence),
		)

		steps, err := o.builder.Build(ctx, candidate, extraction, rctx)
		if err != nil {
			return domain.FlowRunResult{}, fmt.Errorf("building flow for %s.%s: %w", candidate.Spine, candidate.Name, err)
		}
		return o.runner.Run(ctx, rctx, steps)
	}

	return domain.FlowRunResult{
		Final: &domain.FinalResult{OK: false, Message: "Sorry, I did not understand that command."},
	}, nil
}

func validateContext(rctx domain.RequestContext) error {
	if rctx.TenantID == "" {
		return domain.ErrValidation("request context missing tenant id")
	}
	if rctx.Actor.UserID == "" {
		return domain.ErrValidation("request context missing actor")
	}
	if !domain.ValidRole(rctx.Actor.Role) {
		return domain.ErrValidation(fmt.Sprintf("unknown role %q", rctx.Actor.Role)).WithField("role")
	}
	if rctx.Now.IsZero() {
		return domain.ErrValidation("request context missing logical time")
	}
	return nil
}

func stillMissing(extraction domain.Extraction) []string {
	var missing []string
	for _, field := range extraction.Missing {
		if _, ok := extraction.Entities[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}
