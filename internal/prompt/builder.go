// Package prompt assembles the system prompts sent to the generative model.
// Assembly is deterministic given the inputs and the injected clock, so the
// exact text a given item received can always be reproduced.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/conforme/conforme-cli/internal/config"
	"github.com/conforme/conforme-cli/internal/model"
)

// Builder renders system prompts from the configured evaluation context.
type Builder struct {
	ctx         config.SystemContext
	extraFields []model.ExtraField
	guardPrompt string
	basicPrompt string

	// Now is the clock used for the temporal context block. Tests override it.
	Now func() time.Time
}

// NewBuilder creates a Builder from the loaded configuration.
func NewBuilder(cfg *config.Config) *Builder {
	guard := ""
	if cfg.ScopeGuard.Enabled {
		guard = cfg.ScopeGuard.GuardPrompt
	}
	return &Builder{
		ctx:         cfg.Context,
		extraFields: cfg.ExtraFields,
		guardPrompt: guard,
		basicPrompt: cfg.BasicPrompt,
		Now:         time.Now,
	}
}

// Input carries everything one prompt depends on besides the builder's
// static configuration.
type Input struct {
	Kind       model.ItemKind
	Mode       model.EvaluationMode
	Flags      model.ModeFlags
	Guided     string
	Categories []model.RuleCategory
}

// System renders the full system prompt for one item.
//
// The temporal block always comes first (after the optional scope guard) so
// the model can judge promotion validity against the real execution date.
func (b *Builder) System(in Input) string {
	var sb strings.Builder

	if b.guardPrompt != "" {
		sb.WriteString("\n" + b.guardPrompt + "\n")
	}
	sb.WriteString(b.temporalContext())

	if in.Kind == model.ItemKindMarketing {
		b.writeMarketing(&sb, in)
	} else {
		b.writeBasic(&sb, in)
	}

	b.writeOutputFormat(&sb, in)
	return sb.String()
}

func (b *Builder) temporalContext() string {
	now := b.Now()
	return fmt.Sprintf(`
=== CONTEXTO TEMPORAL ===
Data atual da análise: %s
Data e hora da execução: %s
IMPORTANTE: Use esta data como referência para avaliar validade de promoções, campanhas e datas mencionadas no conteúdo.
`, now.Format("02/01/2006"), now.Format("02/01/2006 às 15:04"))
}

func (b *Builder) writeMarketing(sb *strings.Builder, in Input) {
	products := make([]string, len(b.ctx.Products))
	for i, p := range b.ctx.Products {
		products[i] = "'" + p + "'"
	}
	instructions := make([]string, len(b.ctx.Instructions))
	for i, instr := range b.ctx.Instructions {
		instructions[i] = "- " + instr
	}

	fmt.Fprintf(sb, `
Você é um %s.
Os produtos ofertados pelo banco são: %s.

%s

Os textos terão no máximo %d caracteres.
`, b.ctx.Role, strings.Join(products, ", "), strings.Join(instructions, "\n"), b.ctx.MaxTextLength)

	if in.Flags.UseStandardRules {
		fmt.Fprintf(sb, "\n=== REGRAS DE COMPLIANCE ===\n%s\n\n=== CAMPOS EXTRAS ===\n", RulesSection(in.Categories))
		for _, field := range b.extraFields {
			fmt.Fprintf(sb, "- %s: %s\n", field.Name, field.PromptHint)
		}
	}

	if in.Flags.UseGuidedPrompt && in.Guided != "" {
		fmt.Fprintf(sb, "\n=== AVALIAÇÃO ORIENTADA ADICIONAL ===\n%s\n", in.Guided)
	}
}

func (b *Builder) writeBasic(sb *strings.Builder, in Input) {
	sb.WriteString("\n" + b.basicPrompt + "\n")

	switch {
	case in.Mode == model.ModeGuided && in.Guided != "":
		products := strings.Join(b.ctx.Products, ", ")
		fmt.Fprintf(sb, `
=== AVALIAÇÃO ORIENTADA ===
O usuário solicitou especificamente: "%s"

IMPORTANTE: Sua resposta DEVE focar em responder EXATAMENTE o que o usuário perguntou.
Use o contexto de produtos e serviços do banco (%s) para responder de forma precisa e objetiva.

Gere um campo adicional na resposta:
Resumo: [Resposta direta e objetiva à pergunta do usuário - máximo 500 caracteres];
`, in.Guided, products)
	case in.Guided != "":
		fmt.Fprintf(sb, "\n=== AVALIAÇÃO ORIENTADA ADICIONAL ===\n%s\n", in.Guided)
	}
}

func (b *Builder) writeOutputFormat(sb *strings.Builder, in Input) {
	if in.Kind == model.ItemKindMarketing {
		fmt.Fprintf(sb, `
=== FORMATO DE SAÍDA ===
Responda APENAS no formato abaixo (cada linha termina com ponto-e-vírgula):
%s
`, OutputFormat(in.Categories, b.extraFields))
		return
	}

	sb.WriteString(`
=== FORMATO DE SAÍDA ===
Para cada item analisado, responda EXATAMENTE neste formato (cada campo termina com ponto-e-vírgula):

Relacionado ao BV: [Sim/Não];
Avaliação do Agente: [Resumo dos principais problemas identificados - máximo 500 caracteres];
Resultado: [Aprovado/Reprovado/Inconclusivo];
Obs: [Se Inconclusivo, detalhe o motivo em até 500 caracteres. Se Aprovado ou Reprovado, deixe vazio];

DEFINIÇÃO DE RESULTADOS:
- Aprovado: Conteúdo sem riscos significativos identificados
- Reprovado: Conteúdo com riscos que impedem aprovação
- Inconclusivo: IA não conseguiu concluir por necessidade de avaliação mais aprofundada ou informações adicionais
`)
}

// RulesSection formats the rule categories for injection into a prompt,
// one bold category heading per block with indented bullet rules.
func RulesSection(categories []model.RuleCategory) string {
	sections := make([]string, 0, len(categories))
	for _, cat := range categories {
		var sb strings.Builder
		fmt.Fprintf(&sb, "**%s:**", cat.Name)
		for _, rule := range cat.Rules {
			sb.WriteString("\n  - " + rule)
		}
		sections = append(sections, sb.String())
	}
	return strings.Join(sections, "\n\n")
}

// OutputFormat lists the answer template: one "Name: ...;" line per rule
// category followed by one per extra field.
func OutputFormat(categories []model.RuleCategory, extra []model.ExtraField) string {
	lines := make([]string, 0, len(categories)+len(extra))
	for _, cat := range categories {
		lines = append(lines, cat.Name+": ...;")
	}
	for _, field := range extra {
		lines = append(lines, field.Name+": ...;")
	}
	return strings.Join(lines, "\n")
}

// ExpectedFields returns the field names the parser should look for in a
// marketing response: rule categories plus the configured extra fields.
func ExpectedFields(categories []model.RuleCategory, extra []model.ExtraField) []string {
	names := make([]string, 0, len(categories)+len(extra))
	for _, cat := range categories {
		names = append(names, cat.Name)
	}
	for _, field := range extra {
		names = append(names, field.Name)
	}
	return names
}

// ReplaceRulesPlaceholder substitutes the dynamic rules block into an
// instruction template loaded from disk.
func ReplaceRulesPlaceholder(instruction string, categories []model.RuleCategory) string {
	return strings.ReplaceAll(instruction, "{{REGRAS_DINAMICAS}}", RulesSection(categories))
}
