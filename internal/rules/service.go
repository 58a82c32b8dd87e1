// Package rules manages backend automation rules and promotes learned
// heuristics into rules.
package rules

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DefaultPromoteThreshold is the confidence a heuristic needs before it can
// become a rule.
const DefaultPromoteThreshold = 0.8

// Backend is the automation-rule and heuristic surface of the AP backend.
type Backend interface {
	Rules(ctx context.Context) ([]types.AutomationRule, error)
	CreateRule(ctx context.Context, in types.AutomationRuleInput) (*types.AutomationRule, error)
	UpdateRule(ctx context.Context, id int64, in types.AutomationRuleInput) (*types.AutomationRule, error)
	DeleteRule(ctx context.Context, id int64) error
	Heuristics(ctx context.Context) ([]types.Heuristic, error)
}

type Service struct {
	backend   Backend
	threshold float64
	validate  *validator.Validate
	log       *zap.SugaredLogger
}

// NewService gates promotion at threshold; a non-positive value uses the default.
func NewService(backend Backend, threshold float64) *Service {
	if threshold <= 0 {
		threshold = DefaultPromoteThreshold
	}
	return &Service{
		backend:   backend,
		threshold: threshold,
		validate:  validator.New(),
		log:       logger.GetLogger().Named("rules"),
	}
}

// Threshold returns the promote gate.
func (s *Service) Threshold() float64 {
	return s.threshold
}

func (s *Service) List(ctx context.Context) ([]types.AutomationRule, error) {
	return s.backend.Rules(ctx)
}

func (s *Service) Create(ctx context.Context, in types.AutomationRuleInput) (*types.AutomationRule, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	rule, err := s.backend.CreateRule(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Infow("Created automation rule", "ruleID", rule.ID, "name", rule.RuleName, "source", rule.Source)
	return rule, nil
}

func (s *Service) Update(ctx context.Context, id int64, in types.AutomationRuleInput) (*types.AutomationRule, error) {
	if id <= 0 {
		return nil, apperrors.ValidationFailed("invalid rule", "rule ID must be positive")
	}
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}
	rule, err := s.backend.UpdateRule(ctx, id, in)
	if err != nil {
		return nil, err
	}
	s.log.Infow("Updated automation rule", "ruleID", id, "name", rule.RuleName)
	return rule, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperrors.ValidationFailed("invalid rule", "rule ID must be positive")
	}
	if err := s.backend.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.log.Infow("Deleted automation rule", "ruleID", id)
	return nil
}

// Heuristics lists learned heuristics with the promote gate applied.
func (s *Service) Heuristics(ctx context.Context) ([]types.HeuristicView, error) {
	hs, err := s.backend.Heuristics(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.HeuristicView, 0, len(hs))
	for _, h := range hs {
		out = append(out, types.HeuristicView{Heuristic: h, CanPromote: s.CanPromote(h)})
	}
	return out, nil
}

// CanPromote reports whether h clears the confidence threshold.
func (s *Service) CanPromote(h types.Heuristic) bool {
	return h.ConfidenceScore >= s.threshold
}

// Promote creates a suggested rule from the heuristic with the given id.
func (s *Service) Promote(ctx context.Context, id types.HeuristicID) (*types.AutomationRule, error) {
	hs, err := s.backend.Heuristics(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		if h.ID != id {
			continue
		}
		if !s.CanPromote(h) {
			return nil, apperrors.ValidationFailed("heuristic cannot be promoted",
				fmt.Sprintf("confidence %.2f is below %.2f", h.ConfidenceScore, s.threshold))
		}
		return s.Create(ctx, PromotionDraft(h))
	}
	return nil, apperrors.NotFound("Heuristic", string(id))
}

// PromotionDraft prefills a rule from a heuristic.
func PromotionDraft(h types.Heuristic) types.AutomationRuleInput {
	vendor := h.VendorName
	return types.AutomationRuleInput{
		RuleName:   fmt.Sprintf("Auto-approve %s for %s", strings.Replace(h.ExceptionType, "Exception", "", 1), h.VendorName),
		VendorName: &vendor,
		Conditions: h.LearnedCondition,
		Action:     h.ResolutionAction,
		IsActive:   true,
		Source:     types.RuleSourceSuggested,
	}
}

func (s *Service) normalize(in types.AutomationRuleInput) (types.AutomationRuleInput, error) {
	in.RuleName = strings.TrimSpace(in.RuleName)
	in.Action = strings.TrimSpace(in.Action)
	if in.VendorName != nil {
		if v := strings.TrimSpace(*in.VendorName); v == "" {
			in.VendorName = nil
		} else {
			in.VendorName = &v
		}
	}
	if in.Source == "" {
		in.Source = types.RuleSourceUser
	}

	if err := s.validate.Struct(in); err != nil {
		return in, apperrors.ValidationFailed("invalid rule", err.Error())
	}
	if in.Source != types.RuleSourceUser && in.Source != types.RuleSourceSuggested {
		return in, apperrors.ValidationFailed("invalid rule", fmt.Sprintf("unknown rule source %q", in.Source))
	}
	if err := ValidateConditions(in.Conditions); err != nil {
		return in, err
	}
	return in, nil
}
