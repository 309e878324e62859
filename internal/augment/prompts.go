package augment

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// DefaultTemplateID names the template used when a rule names none or an
// unknown one.
const DefaultTemplateID = "default"

// Template placeholders: {rule_id}, {rule_name}, {description}, {hint},
// {document_type}, {language}, {variant}, {document}.
var (
	templatesMu sync.RWMutex
	templates   = map[string]string{
		DefaultTemplateID: `Regla {rule_id}: {rule_name}
Requisito: {description}
Sugerencia de corrección habitual: {hint}
Tipo de documento: {document_type}. Idioma: {language}. Perfil: {variant}.

Evalúa si el siguiente documento cumple el requisito.

Documento:
"""
{document}
"""`,
		"title_coherence": `Regla {rule_id}: {rule_name}
Requisito: {description}
Identifica el título del documento y evalúa si describe con precisión su contenido.
Tipo de documento: {document_type}. Idioma: {language}.

Documento:
"""
{document}
"""`,
		"objectives_conclusions": `Regla {rule_id}: {rule_name}
Requisito: {description}
Localiza los objetivos y las conclusiones. Indica si alguna conclusión no responde a un objetivo o si algún objetivo queda sin conclusión.
Tipo de documento: {document_type}. Idioma: {language}.

Documento:
"""
{document}
"""`,
	}
)

// RegisterTemplate adds or replaces a named user prompt template.
func RegisterTemplate(id, tmpl string) {
	templatesMu.Lock()
	defer templatesMu.Unlock()
	templates[id] = tmpl
}

// Templates returns the registered template ids, sorted.
func Templates() []string {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	ids := make([]string, 0, len(templates))
	for id := range templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func lookupTemplate(id string) string {
	templatesMu.RLock()
	defer templatesMu.RUnlock()
	if t, ok := templates[id]; ok {
		return t
	}
	return templates[DefaultTemplateID]
}

// BuildPrompt renders the prompt for rule over doc. The document is cut to
// the rule's character budget, or maxChars when the rule sets none.
func BuildPrompt(rule *lint.Rule, doc *document.Document, lctx core.LintContext, maxChars int) (Prompt, Constraints) {
	c := Constraints{
		Mode:               rule.Augment.Mode,
		MaxChars:           rule.Augment.MaxChars,
		ForbiddenBehaviors: rule.Augment.ForbiddenBehaviors,
		AllowedOutputs:     rule.Augment.AllowedOutputs,
		OutputFormat:       rule.Augment.OutputFormat,
		JSON:               true,
	}
	if c.MaxChars <= 0 {
		c.MaxChars = maxChars
	}
	if c.MaxChars <= 0 {
		c.MaxChars = lint.DefaultMaxChars
	}
	if c.Mode == "" {
		c.Mode = lint.DefaultAugmentMode
	}
	if c.OutputFormat == "" {
		c.OutputFormat = lint.DefaultOutputFormat
	}

	docType := lctx.DocumentType
	if docType == "" {
		docType = "desconocido"
	}
	hint := rule.AutoFixHint
	if hint == "" {
		hint = "ninguna"
	}
	user := strings.NewReplacer(
		"{rule_id}", rule.ID,
		"{rule_name}", rule.Name,
		"{description}", rule.Message(""),
		"{hint}", hint,
		"{document_type}", docType,
		"{language}", lctx.Language,
		"{variant}", string(lctx.Variant),
		"{document}", doc.Excerpt(c.MaxChars),
	).Replace(lookupTemplate(rule.Augment.PromptTemplateID))

	return Prompt{System: systemPrompt(c), User: user}, c
}

func systemPrompt(c Constraints) string {
	var b strings.Builder
	b.WriteString("Eres un asistente que valida documentos académicos según APA 7 y las adaptaciones institucionales.\n")
	fmt.Fprintf(&b, "Modo: %s. Evalúa, no reescribas el documento.\n", c.Mode)
	if len(c.ForbiddenBehaviors) > 0 {
		fmt.Fprintf(&b, "Prohibido: %s.\n", strings.Join(c.ForbiddenBehaviors, ", "))
	}
	if len(c.AllowedOutputs) > 0 {
		fmt.Fprintf(&b, "Tipos de sugerencia permitidos: %s.\n", strings.Join(c.AllowedOutputs, ", "))
	}
	fmt.Fprintf(&b, "Formato de salida %s: responde solo con un objeto JSON ", c.OutputFormat)
	b.WriteString(`{"findings":[{"complies":true|false,"message":"...","details":"...","snippet":"texto exacto del documento","suggestion":"...","offset_start":0,"offset_end":0}]}`)
	b.WriteString(". Si el documento cumple, devuelve un elemento con complies=true.")
	return b.String()
}
