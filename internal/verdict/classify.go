// Package verdict classifies extracted rule-category answers and aggregates
// per-item verdicts into a batch summary.
package verdict

import (
	"strings"

	"github.com/conforme/conforme-cli/internal/model"
)

// exemptionPhrases mark a category answer as compliant even when non-empty.
var exemptionPhrases = []string{
	"nenhuma inconsist",
	"não aplicá",
}

// Classify derives a per-item verdict from the answers the model gave for
// each rule category. An item is approved only when every category answer
// is either empty or an exemption ("nenhuma inconsistência", "não
// aplicável"). No categories means vacuously approved.
func Classify(fields map[string]string, categories []string) model.Verdict {
	for _, cat := range categories {
		if !compliant(fields[cat]) {
			return model.VerdictRejected
		}
	}
	return model.VerdictApproved
}

func compliant(answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return true
	}
	lower := strings.ToLower(answer)
	for _, phrase := range exemptionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// Summarize tallies per-item verdicts into a BatchSummary. Items whose
// status is an error count toward Errors and contribute no verdict.
func Summarize(results []model.EvaluationResult) model.BatchSummary {
	var s model.BatchSummary
	s.Total = len(results)
	for _, r := range results {
		if r.Status == model.StatusError {
			s.Errors++
			continue
		}
		s.Succeeded++
		switch r.Verdict {
		case model.VerdictApproved:
			s.Approved++
		case model.VerdictRejected:
			s.Rejected++
		case model.VerdictOutOfScope:
			s.OutOfScope++
		case model.VerdictIgnored:
			s.Ignored++
		default:
			s.Inconclusive++
		}
	}
	return s
}
