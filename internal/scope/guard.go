// Package scope validates guided-evaluation instructions against a keyword
// policy before they can influence a prompt or trigger a paid AI call.
package scope

import (
	"strings"

	"github.com/conforme/conforme-cli/internal/model"
)

// Rejection messages returned to the caller. Wording is part of the API
// surface consumed by the frontend.
const (
	ReasonCompetitor = "Solicitação fora do escopo. Não é possível avaliar conteúdos relacionados a outras instituições financeiras."
	ReasonOffTopic   = "Solicitação fora do escopo. Por favor, envie uma solicitação relacionada a análise de riscos, compliance ou avaliação de conteúdos."
	ReasonNoScope    = "Solicitação fora do escopo. Por favor, descreva o que você gostaria que seja avaliado em relação a riscos, compliance ou produtos do banco."
)

// Guard classifies free text against three configured keyword lists. It is
// a pure function of its inputs: no I/O, no clock, no logging.
type Guard struct {
	competitors []string
	offTopic    []string
	inScope     []string
}

// NewGuard creates a Guard from the configured keyword lists.
func NewGuard(competitors, offTopic, inScope []string) *Guard {
	return &Guard{competitors: competitors, offTopic: offTopic, inScope: inScope}
}

// Check validates a guided instruction. The order is fixed: competitor
// names reject first, then off-topic terms, then the absence of any
// in-scope term. Matching is case-insensitive substring search.
func (g *Guard) Check(text string) model.ScopeDecision {
	lower := strings.ToLower(text)

	if containsAny(lower, g.competitors) {
		return model.ScopeDecision{Reason: ReasonCompetitor}
	}
	if containsAny(lower, g.offTopic) {
		return model.ScopeDecision{Reason: ReasonOffTopic}
	}
	if !containsAny(lower, g.inScope) {
		return model.ScopeDecision{Reason: ReasonNoScope}
	}
	return model.ScopeDecision{Allowed: true}
}

func containsAny(lower string, terms []string) bool {
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
