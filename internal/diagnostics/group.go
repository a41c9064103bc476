package diagnostics

import "github.com/invoiceguard/invoiceguard/internal/model"

type groupKey struct {
	id       string
	severity model.Severity
	summary  string
}

// Group collapses repeated findings sharing (id, severity, summary) into one
// merged record per group, preserving first-seen order. Findings with the
// same id but different summaries stay separate: identical text is the same
// underlying issue, distinct text may be distinct root causes.
//
// For merged groups, locations are unioned in insertion order, evidence is
// merged field by field, and occurrence_count is set to the group size.
// Singletons pass through with occurrence_count = 1.
func Group(errors []model.DiagnosticError) []model.DiagnosticError {
	if len(errors) == 0 {
		return nil
	}

	var order []groupKey
	groups := make(map[groupKey][]model.DiagnosticError)
	for _, e := range errors {
		key := groupKey{id: e.ID, severity: e.Severity, summary: e.Action.Summary}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	out := make([]model.DiagnosticError, 0, len(order))
	for _, key := range order {
		members := groups[key]
		if len(members) == 1 {
			single := members[0]
			single.OccurrenceCount = 1
			out = append(out, single)
			continue
		}
		out = append(out, mergeGroup(members))
	}
	return out
}

// mergeGroup builds a single record from N>1 members. The first member
// supplies scalar fields, including the suppressed flag: members of one
// group share suppression status by construction.
func mergeGroup(members []model.DiagnosticError) model.DiagnosticError {
	first := members[0]

	var locations, rawLocations []string
	occurrences := make([]model.Occurrence, 0, len(members))
	for _, m := range members {
		locations = appendUnique(locations, m.Action.Locations...)
		rawLocations = appendUnique(rawLocations, m.TechnicalDetails.RawLocations...)

		occ := model.Occurrence{}
		if len(m.Action.Locations) > 0 {
			occ.Location = m.Action.Locations[0]
		}
		if len(m.TechnicalDetails.RawLocations) > 0 {
			occ.RawLocation = m.TechnicalDetails.RawLocations[0]
		}
		occurrences = append(occurrences, occ)
	}

	return model.DiagnosticError{
		ID:       first.ID,
		Severity: first.Severity,
		Action: model.Action{
			Summary:   first.Action.Summary,
			Fix:       first.Action.Fix,
			Locations: locations,
		},
		Evidence: mergeEvidence(members),
		TechnicalDetails: model.TechnicalDetails{
			RawMessage:   first.TechnicalDetails.RawMessage,
			RawLocations: rawLocations,
		},
		Suppressed:      first.Suppressed,
		OccurrenceCount: len(members),
		Occurrences:     occurrences,
	}
}

// mergeEvidence merges member evidence field by field: numeric tallies are
// summed key-wise, list fields are unioned preserving first-seen order, and
// scalar fields take the first member's value.
func mergeEvidence(members []model.DiagnosticError) *model.Evidence {
	var base *model.Evidence
	for _, m := range members {
		if m.Evidence != nil {
			base = m.Evidence
			break
		}
	}
	if base == nil {
		return nil
	}

	merged := &model.Evidence{
		Totals:          base.Totals,
		Identifier:      base.Identifier,
		OccurrenceCount: len(members),
	}

	if base.Currency != nil {
		counts := make(map[string]int)
		var invalid []string
		for _, m := range members {
			if m.Evidence == nil || m.Evidence.Currency == nil {
				continue
			}
			for code, n := range m.Evidence.Currency.Counts {
				counts[code] += n
			}
			invalid = appendUnique(invalid, m.Evidence.Currency.InvalidCodes...)
		}
		merged.Currency = &model.CurrencyEvidence{
			DocumentCurrency: base.Currency.DocumentCurrency,
			Counts:           counts,
			InvalidCodes:     invalid,
		}
	}

	if base.LineVAT != nil {
		var amounts []string
		for _, m := range members {
			if m.Evidence == nil || m.Evidence.LineVAT == nil {
				continue
			}
			amounts = appendUnique(amounts, m.Evidence.LineVAT.LineAmounts...)
		}
		merged.LineVAT = &model.LineVATEvidence{
			TotalVAT:    base.LineVAT.TotalVAT,
			LineCount:   base.LineVAT.LineCount,
			LineAmounts: amounts,
		}
	}

	if len(base.Extra) > 0 {
		merged.Extra = mergeExtra(members)
	}

	return merged
}

// mergeExtra applies the generic merge rules to the free-form extras map.
func mergeExtra(members []model.DiagnosticError) map[string]any {
	var base map[string]any
	for _, m := range members {
		if m.Evidence != nil && len(m.Evidence.Extra) > 0 {
			base = m.Evidence.Extra
			break
		}
	}

	merged := make(map[string]any, len(base))
	for key, value := range base {
		switch value.(type) {
		case map[string]any:
			merged[key] = sumNumericMaps(members, key)
		case []any:
			merged[key] = unionLists(members, key)
		default:
			merged[key] = value
		}
	}
	return merged
}

func sumNumericMaps(members []model.DiagnosticError, key string) any {
	summed := make(map[string]float64)
	numeric := true
	for _, m := range members {
		if m.Evidence == nil {
			continue
		}
		nested, ok := m.Evidence.Extra[key].(map[string]any)
		if !ok {
			continue
		}
		for k, v := range nested {
			f, ok := v.(float64)
			if !ok {
				numeric = false
				break
			}
			summed[k] += f
		}
	}
	if !numeric {
		// Non-numeric nested map: scalar rule, first member wins.
		for _, m := range members {
			if m.Evidence != nil {
				if v, ok := m.Evidence.Extra[key]; ok {
					return v
				}
			}
		}
	}
	return summed
}

func unionLists(members []model.DiagnosticError, key string) []any {
	var out []any
	seen := make(map[any]struct{})
	for _, m := range members {
		if m.Evidence == nil {
			continue
		}
		list, ok := m.Evidence.Extra[key].([]any)
		if !ok {
			continue
		}
		for _, v := range list {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			continue
		}
		dup := false
		for _, existing := range dst {
			if existing == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}
