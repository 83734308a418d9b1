// Package applicability decides which catalog questions an audit must answer.
package applicability

import (
	"cmp"
	"slices"

	"qara/internal/catalog"
	qualification "qara/internal/qualification/models"
	dErrors "qara/pkg/domain-errors"
)

// Config is the audit-side input to resolution.
type Config struct {
	Referentials []string
	// Processes restricts the set when non-empty.
	Processes []string
}

// Resolve returns the questions that apply to profile and cfg, ordered by
// referential, process, catalog sequence and key. The order is the audit's
// navigation order and is identical for identical inputs.
//
// An empty result is not an error here; callers decide how to report it.
func Resolve(questions []catalog.Question, profile qualification.Profile, cfg Config) ([]catalog.Question, error) {
	if len(cfg.Referentials) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one referential is required")
	}
	if !profile.EconomicRole.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "profile economic role is invalid")
	}

	out := make([]catalog.Question, 0, len(questions))
	for _, q := range questions {
		if !slices.Contains(cfg.Referentials, q.Referential) {
			continue
		}
		if !q.Applicability.Matches(profile.EconomicRole) {
			continue
		}
		if len(cfg.Processes) > 0 && !slices.Contains(cfg.Processes, q.Process) {
			continue
		}
		out = append(out, q)
	}

	slices.SortStableFunc(out, func(a, b catalog.Question) int {
		return cmp.Or(
			cmp.Compare(a.Referential, b.Referential),
			cmp.Compare(a.Process, b.Process),
			cmp.Compare(a.Sequence, b.Sequence),
			cmp.Compare(a.Key, b.Key),
		)
	})
	return out, nil
}

// Keys projects a resolved set onto its question keys.
func Keys(questions []catalog.Question) []string {
	keys := make([]string, len(questions))
	for i, q := range questions {
		keys[i] = q.Key
	}
	return keys
}
