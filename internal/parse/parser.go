// Package parse extracts structured fields from free-text model responses
// and derives a verdict when the model did not state one cleanly.
package parse

import (
	"regexp"
	"strings"

	"github.com/conforme/conforme-cli/internal/model"
)

// outOfScopeMarker is the literal the model is instructed to emit when the
// submitted content is not something it should evaluate.
const outOfScopeMarker = "[FORA_DO_ESCOPO]"

// trivialValues are answers that mean "no violations" rather than naming one.
var trivialValues = map[string]bool{
	"":        true,
	"nenhuma": true,
	"nao":     true,
	"n/a":     true,
	"-":       true,
}

var bracketRe = regexp.MustCompile(`^\[|\]$`)

// Parser extracts a fixed set of named fields from raw responses. Patterns
// are compiled once per field set; extraction never fails, missing fields
// come back empty.
type Parser struct {
	fields   []string
	patterns map[string]*regexp.Regexp
}

// NewParser compiles one pattern per field name. A field matches
// "Name: value" up to the first semicolon or newline, case-insensitively.
func NewParser(fields []string) *Parser {
	patterns := make(map[string]*regexp.Regexp, len(fields))
	for _, name := range fields {
		patterns[name] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(name) + `\s*:\s*([^;\n]*)`)
	}
	return &Parser{fields: fields, patterns: patterns}
}

// Fields returns the field names this parser extracts, in registration order.
func (p *Parser) Fields() []string {
	return p.fields
}

// Extract pulls every registered field out of a raw response. Values are
// trimmed and stripped of template brackets; fields the response omits map
// to the empty string.
func (p *Parser) Extract(raw string) map[string]string {
	out := make(map[string]string, len(p.fields))
	for _, name := range p.fields {
		out[name] = ""
		if m := p.patterns[name].FindStringSubmatch(raw); m != nil {
			val := strings.TrimSpace(m[1])
			val = strings.TrimSpace(bracketRe.ReplaceAllString(val, ""))
			out[name] = val
		}
	}
	return out
}

// IsOutOfScope reports whether the raw response carries the out-of-scope
// marker anywhere, regardless of case.
func IsOutOfScope(raw string) bool {
	return strings.Contains(strings.ToUpper(raw), outOfScopeMarker)
}

// ResolveVerdict derives a verdict from extracted fields. The RESULTADO
// field wins when it names a verdict (feminine forms included); otherwise a
// non-trivial violations field rejects, an evaluation with no violations
// approves, and anything else is inconclusive. The order is significant.
func ResolveVerdict(fields map[string]string) model.Verdict {
	switch strings.ToUpper(strings.TrimSpace(fields["RESULTADO"])) {
	case "APROVADO", "APROVADA":
		return model.VerdictApproved
	case "REPROVADO", "REPROVADA":
		return model.VerdictRejected
	case "INCONCLUSIVO", "INCONCLUSIVA":
		return model.VerdictInconclusive
	}

	violations := strings.TrimSpace(fields["VIOLACOES_ENCONTRADAS"])
	if !trivialValues[strings.ToLower(violations)] {
		return model.VerdictRejected
	}

	if strings.TrimSpace(fields["AVALIACAO"]) != "" && violations == "" {
		return model.VerdictApproved
	}

	return model.VerdictInconclusive
}

// SummarizeEvaluation condenses the evaluation text to at most maxChars
// characters, falling back to violations and rationale when the model gave
// no evaluation field.
func SummarizeEvaluation(fields map[string]string, maxChars int) string {
	summary := strings.TrimSpace(fields["AVALIACAO"])

	if summary == "" {
		violations := strings.TrimSpace(fields["VIOLACOES_ENCONTRADAS"])
		rationale := strings.TrimSpace(fields["JUSTIFICATIVA"])

		switch {
		case violations != "" && !trivialValues[strings.ToLower(violations)]:
			summary = "Violacoes: " + violations
			if rationale != "" {
				summary += " | " + rationale
			}
		case rationale != "":
			summary = rationale
		}
	}

	if runes := []rune(summary); len(runes) > maxChars {
		summary = string(runes[:maxChars-3]) + "..."
	}
	return summary
}
