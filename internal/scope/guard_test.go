package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGuard() *Guard {
	return NewGuard(
		[]string{"itaú", "itau", "bradesco", "santander", "nubank"},
		[]string{"receita de bolo", "futebol", "piada"},
		[]string{"risco", "compliance", "marketing", "avaliar", "análise", "analise", "conteúdo", "conteudo"},
	)
}

func TestGuardCompetitorRejected(t *testing.T) {
	g := testGuard()

	dec := g.Check("Compare com o Itaú")

	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonCompetitor, dec.Reason)
}

func TestGuardCompetitorCaseInsensitive(t *testing.T) {
	g := testGuard()

	dec := g.Check("analise o BRADESCO contra nossas taxas")

	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonCompetitor, dec.Reason)
}

func TestGuardOffTopicRejected(t *testing.T) {
	g := testGuard()

	dec := g.Check("me conta uma piada sobre bancos")

	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonOffTopic, dec.Reason)
}

func TestGuardCompetitorBeforeOffTopic(t *testing.T) {
	// Both lists match; the competitor check runs first.
	g := testGuard()

	dec := g.Check("piada sobre o nubank")

	assert.Equal(t, ReasonCompetitor, dec.Reason)
}

func TestGuardMissingInScopeKeyword(t *testing.T) {
	g := testGuard()

	dec := g.Check("bom dia, tudo bem?")

	assert.False(t, dec.Allowed)
	assert.Equal(t, ReasonNoScope, dec.Reason)
}

func TestGuardAllowed(t *testing.T) {
	g := testGuard()

	dec := g.Check("Avaliar se a peça de marketing cumpre as regras de compliance")

	assert.True(t, dec.Allowed)
	assert.Empty(t, dec.Reason)
}

func TestGuardEmptyTermsIgnored(t *testing.T) {
	g := NewGuard([]string{""}, nil, []string{"risco"})

	dec := g.Check("análise de risco")

	assert.True(t, dec.Allowed)
}
