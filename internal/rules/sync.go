package rules

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"

	apperrors "github.com/NomadCrew/ap-workbench/errors"
	"github.com/NomadCrew/ap-workbench/types"
	"gopkg.in/yaml.v3"
)

// FileVersion is the rule file schema version written by Export.
const FileVersion = 1

// File is the YAML document holding a rule set. Rules are keyed by name.
type File struct {
	Version int                         `yaml:"version"`
	Rules   []types.AutomationRuleInput `yaml:"rules"`
}

// SyncOptions controls Import.
type SyncOptions struct {
	DryRun bool
	// Prune deletes backend rules whose names are missing from the file.
	Prune bool
}

// SyncResult lists rule names by what Import did with them.
type SyncResult struct {
	Created   []string `json:"created"`
	Updated   []string `json:"updated"`
	Unchanged []string `json:"unchanged"`
	Deleted   []string `json:"deleted"`
	DryRun    bool     `json:"dryRun"`
}

// Export writes every backend rule to w as YAML, sorted by name.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	rules, err := s.backend.Rules(ctx)
	if err != nil {
		return err
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].RuleName < rules[j].RuleName })

	file := File{Version: FileVersion, Rules: make([]types.AutomationRuleInput, 0, len(rules))}
	for _, r := range rules {
		file.Rules = append(file.Rules, r.Input())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return apperrors.Wrap(err, apperrors.ServerError, "failed to encode rule file")
	}
	return enc.Close()
}

// ParseFile decodes and validates a YAML rule file.
func ParseFile(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, apperrors.ValidationFailed("invalid rule file", "file is empty")
		}
		return nil, apperrors.ValidationFailed("invalid rule file", err.Error())
	}
	if file.Version != FileVersion {
		return nil, apperrors.ValidationFailed("invalid rule file", fmt.Sprintf("unsupported version %d", file.Version))
	}

	seen := make(map[string]bool, len(file.Rules))
	for i, rule := range file.Rules {
		if rule.RuleName == "" {
			return nil, apperrors.ValidationFailed("invalid rule file", fmt.Sprintf("rules[%d]: rule_name is required", i))
		}
		if seen[rule.RuleName] {
			return nil, apperrors.ValidationFailed("invalid rule file", fmt.Sprintf("duplicate rule name %q", rule.RuleName))
		}
		seen[rule.RuleName] = true
	}
	return &file, nil
}

// Import reconciles the backend rule set with the file. Rules match by name.
// Every rule is validated before any backend write.
func (s *Service) Import(ctx context.Context, r io.Reader, opts SyncOptions) (*SyncResult, error) {
	file, err := ParseFile(r)
	if err != nil {
		return nil, err
	}

	desired := make([]types.AutomationRuleInput, 0, len(file.Rules))
	for _, in := range file.Rules {
		normalized, err := s.normalize(in)
		if err != nil {
			return nil, apperrors.ValidationFailed("invalid rule file",
				fmt.Sprintf("rule %q: %s", in.RuleName, describe(err)))
		}
		desired = append(desired, normalized)
	}

	existing, err := s.backend.Rules(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]types.AutomationRule, len(existing))
	for _, rule := range existing {
		byName[rule.RuleName] = rule
	}

	result := &SyncResult{DryRun: opts.DryRun}
	keep := make(map[string]bool, len(desired))
	for _, in := range desired {
		keep[in.RuleName] = true
		current, found := byName[in.RuleName]
		switch {
		case !found:
			if !opts.DryRun {
				if _, err := s.backend.CreateRule(ctx, in); err != nil {
					return result, err
				}
			}
			result.Created = append(result.Created, in.RuleName)
		case sameRule(current.Input(), in):
			result.Unchanged = append(result.Unchanged, in.RuleName)
		default:
			if !opts.DryRun {
				if _, err := s.backend.UpdateRule(ctx, current.ID, in); err != nil {
					return result, err
				}
			}
			result.Updated = append(result.Updated, in.RuleName)
		}
	}

	if opts.Prune {
		for _, rule := range existing {
			if keep[rule.RuleName] {
				continue
			}
			if !opts.DryRun {
				if err := s.backend.DeleteRule(ctx, rule.ID); err != nil {
					return result, err
				}
			}
			result.Deleted = append(result.Deleted, rule.RuleName)
		}
	}

	s.log.Infow("Imported rule file",
		"created", len(result.Created), "updated", len(result.Updated),
		"unchanged", len(result.Unchanged), "deleted", len(result.Deleted), "dryRun", opts.DryRun)
	return result, nil
}

// sameRule compares two rules through their JSON form so YAML integers and
// backend floats with equal values match.
func sameRule(a, b types.AutomationRuleInput) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	var va, vb interface{}
	if json.Unmarshal(ja, &va) != nil || json.Unmarshal(jb, &vb) != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func describe(err error) string {
	if appErr, ok := apperrors.As(err); ok && appErr.Detail != "" {
		return appErr.Detail
	}
	return err.Error()
}
