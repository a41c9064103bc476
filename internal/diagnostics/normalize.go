// Package diagnostics implements the enrichment pipeline: normalization of
// raw engine findings, dependency suppression, evidence extraction through
// explainers, deduplication with evidence merging, and cross-finding cascade
// suppression.
package diagnostics

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/model"
)

// snippetLimit bounds the raw-record excerpt included in drop warnings.
const snippetLimit = 200

// Normalize validates and whitelists raw findings into the strict internal
// contract. Malformed entries are dropped with a warning; the batch itself
// never fails. Output records are freshly allocated and never alias the
// input.
func Normalize(raw []model.RawFinding) []model.NormalizedFinding {
	out := make([]model.NormalizedFinding, 0, len(raw))

	for _, item := range raw {
		id, idOK := item["id"].(string)
		message, msgOK := item["message"].(string)
		if !idOK || !msgOK || id == "" || message == "" {
			zap.L().Warn("dropping invalid finding (missing id/message)",
				zap.String("raw", snippet(item)),
			)
			continue
		}

		severity := model.SeverityError
		if rawSev, present := item["severity"]; present {
			if s, ok := rawSev.(string); ok {
				candidate := model.Severity(strings.ToLower(s))
				if model.ValidSeverity(candidate) {
					severity = candidate
				} else {
					zap.L().Warn("invalid severity, defaulting to error",
						zap.String("rule", id),
						zap.String("severity", s),
					)
				}
			} else {
				zap.L().Warn("invalid severity type, defaulting to error",
					zap.String("rule", id),
					zap.String("type", fmt.Sprintf("%T", rawSev)),
				)
			}
		}

		location := ""
		if rawLoc, present := item["location"]; present && rawLoc != nil {
			if s, ok := rawLoc.(string); ok {
				location = s
			} else {
				zap.L().Warn("invalid location type, discarding location",
					zap.String("rule", id),
					zap.String("type", fmt.Sprintf("%T", rawLoc)),
				)
			}
		}

		out = append(out, model.NormalizedFinding{
			ID:       id,
			Message:  message,
			Location: location,
			Severity: severity,
		})
	}

	return out
}

func snippet(item model.RawFinding) string {
	s := fmt.Sprintf("%v", item)
	if len(s) > snippetLimit {
		s = s[:snippetLimit]
	}
	return s
}
