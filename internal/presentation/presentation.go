// Package presentation projects the data-rich pipeline response into one of
// three consumer tiers: short, balanced, or detailed.
package presentation

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// Mode selects a presentation tier.
type Mode string

const (
	ModeShort    Mode = "short"
	ModeBalanced Mode = "balanced"
	ModeDetailed Mode = "detailed"
)

const locationSampleSize = 3

// technicalKeys are stripped recursively from short and balanced evidence.
// Stripping happens after evidence merging so an aggregated value never
// resurrects a key its members had removed.
var technicalKeys = map[string]struct{}{
	"technical_details": {},
	"debug_log":         {},
	"raw_locations":     {},
	"raw_message":       {},
	"stacktrace":        {},
	"trace":             {},
	"paths":             {},
	"raw":               {},
	"internal":          {},
}

// ParseMode validates a tier name. Unknown names are a hard error; defaulting
// silently would mask caller misconfiguration.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeShort:
		return ModeShort, nil
	case ModeBalanced:
		return ModeBalanced, nil
	case ModeDetailed:
		return ModeDetailed, nil
	default:
		return "", eris.Errorf("presentation: unknown mode %q (want short, balanced, or detailed)", s)
	}
}

// Project renders a pipeline response into the envelope for the given tier.
//
// Short and balanced aggregate the grouped view and omit suppressed findings
// and the debug log. Detailed passes through every per-instance error,
// suppressed ones included, plus the debug log.
func Project(mode Mode, resp *model.Response) (*model.Envelope, error) {
	env := &model.Envelope{
		Status: resp.Status,
		Meta:   resp.Meta,
	}

	switch mode {
	case ModeShort:
		env.Diagnosis = projectShort(resp.Grouped)
	case ModeBalanced:
		env.Diagnosis = projectBalanced(resp.Grouped)
	case ModeDetailed:
		errors := resp.Errors
		if errors == nil {
			errors = []model.DiagnosticError{}
		}
		env.Diagnosis = errors
		env.DebugLog = resp.DebugLog
	default:
		return nil, eris.Errorf("presentation: unknown mode %q", mode)
	}

	return env, nil
}

// aggregate is one presentation-level group: grouped diagnostics that share
// id, summary, and fix collapse into a single consumer-facing entry.
type aggregate struct {
	id      string
	summary string
	fix     string
	count   int
	members []model.DiagnosticError
}

func aggregateGroups(grouped []model.DiagnosticError) []*aggregate {
	type key struct{ id, summary, fix string }

	var order []key
	byKey := make(map[key]*aggregate)
	for _, e := range grouped {
		if e.Suppressed {
			continue
		}
		k := key{id: e.ID, summary: e.Action.Summary, fix: e.Action.Fix}
		agg, seen := byKey[k]
		if !seen {
			agg = &aggregate{id: e.ID, summary: e.Action.Summary, fix: e.Action.Fix}
			byKey[k] = agg
			order = append(order, k)
		}
		n := e.OccurrenceCount
		if n < 1 {
			n = 1
		}
		agg.count += n
		agg.members = append(agg.members, e)
	}

	out := make([]*aggregate, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

func (a *aggregate) locationsSample() []string {
	var sample []string
	for _, m := range a.members {
		for _, loc := range m.Action.Locations {
			if loc == "" || contains(sample, loc) {
				continue
			}
			sample = append(sample, loc)
			if len(sample) == locationSampleSize {
				return sample
			}
		}
	}
	return sample
}

func projectShort(grouped []model.DiagnosticError) []model.ShortItem {
	items := []model.ShortItem{}
	for _, agg := range aggregateGroups(grouped) {
		items = append(items, model.ShortItem{
			ID:              agg.id,
			Title:           Title(agg.id, agg.summary),
			Fix:             ShortFix(agg.id, agg.fix),
			Count:           agg.count,
			LocationsSample: agg.locationsSample(),
		})
	}
	return items
}

func projectBalanced(grouped []model.DiagnosticError) []model.BalancedItem {
	items := []model.BalancedItem{}
	for _, agg := range aggregateGroups(grouped) {
		evidence := mergeEvidenceMaps(agg.members)
		stripTechnical(evidence)
		if len(evidence) == 0 {
			evidence = nil
		}
		items = append(items, model.BalancedItem{
			ID:              agg.id,
			Summary:         agg.summary,
			Fix:             agg.fix,
			Count:           agg.count,
			LocationsSample: agg.locationsSample(),
			Evidence:        evidence,
		})
	}
	return items
}

// mergeEvidenceMaps combines member evidence into one map. Nested maps of
// numbers are summed key-wise, lists are unioned preserving first-seen order,
// and scalars take the first member's value.
func mergeEvidenceMaps(members []model.DiagnosticError) map[string]any {
	merged := make(map[string]any)
	for _, m := range members {
		ev := evidenceMap(m.Evidence)
		for key, value := range ev {
			existing, ok := merged[key]
			if !ok {
				merged[key] = value
				continue
			}
			merged[key] = mergeValues(existing, value)
		}
	}
	return merged
}

func mergeValues(existing, incoming any) any {
	switch e := existing.(type) {
	case map[string]any:
		in, ok := incoming.(map[string]any)
		if !ok {
			return existing
		}
		if summed, ok := sumIfNumeric(e, in); ok {
			return summed
		}
		// Mixed map: merge key-wise so numeric tallies nested below
		// scalar fields still sum.
		out := make(map[string]any, len(e))
		for k, v := range e {
			out[k] = v
		}
		for k, v := range in {
			if have, present := out[k]; present {
				out[k] = mergeValues(have, v)
			} else {
				out[k] = v
			}
		}
		return out
	case []any:
		in, ok := incoming.([]any)
		if !ok {
			return existing
		}
		out := append([]any{}, e...)
		for _, v := range in {
			dup := false
			for _, have := range out {
				if have == v {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, v)
			}
		}
		return out
	default:
		return existing
	}
}

func sumIfNumeric(a, b map[string]any) (map[string]any, bool) {
	summed := make(map[string]any, len(a))
	for k, v := range a {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		summed[k] = f
	}
	for k, v := range b {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		if have, present := summed[k]; present {
			summed[k] = have.(float64) + f
		} else {
			summed[k] = f
		}
	}
	return summed, true
}

// evidenceMap flattens the typed evidence record into a generic map via its
// JSON form, so balanced output and technical-key stripping see the same
// shape the consumer would.
func evidenceMap(ev *model.Evidence) map[string]any {
	if ev == nil {
		return nil
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// stripTechnical removes technical keys from a map and from every nested map
// or list, in place.
func stripTechnical(m map[string]any) {
	for key, value := range m {
		if _, technical := technicalKeys[key]; technical {
			delete(m, key)
			continue
		}
		stripTechnicalValue(value)
	}
}

func stripTechnicalValue(value any) {
	switch v := value.(type) {
	case map[string]any:
		stripTechnical(v)
	case []any:
		for _, item := range v {
			stripTechnicalValue(item)
		}
	}
}

func contains(list []string, v string) bool {
	for _, have := range list {
		if have == v {
			return true
		}
	}
	return false
}
