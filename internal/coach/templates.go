package coach

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/apalint/internal/augment"
	"github.com/leapstack-labs/apalint/pkg/core"
)

const notAvailable = "N/D"

func systemPrompt(p Profile, paper PaperProfile) string {
	var b strings.Builder
	if p == ProfileAPA7Global {
		b.WriteString("Eres un coach académico experto en la 7.ª edición del manual de publicaciones de la APA.\n")
	} else {
		b.WriteString("Eres un coach académico de la Corporación Unificada Nacional de Educación Superior (CUN) experto en APA 7.\n")
		b.WriteString("Aplica primero el estándar APA 7 y después las adaptaciones institucionales de la CUN.\n")
	}
	if paper == ProfessionalPaper {
		b.WriteString("El documento es un manuscrito profesional: prioriza la estructura de artículo (introducción, método, resultados, discusión) y sé estricto con secciones, tablas, figuras y referencias.\n")
	} else {
		b.WriteString("El documento es un trabajo de estudiante: prioriza portada, curso, docente y fecha, explica la norma con claridad y cuida citas, referencias y tono académico.\n")
	}
	b.WriteString("No escribas el trabajo por el estudiante. Ayuda a planear, señala problemas de forma y da retroalimentación para que mejore su propio texto.\n")
	b.WriteString("Responde siempre en español y solo con un objeto JSON con las claves outline, guidance, feedback (lista de {type, message} con type strength o improvement), clarifications y next_actions.\n")
	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func contextBlock(c Context) string {
	var b strings.Builder
	b.WriteString("[CONTEXTO DEL DOCUMENTO]\n")
	fmt.Fprintf(&b, "- Perfil APA: %s\n", c.PaperProfile)
	fmt.Fprintf(&b, "- Autor: %s\n", orNA(c.AuthorRole))
	fmt.Fprintf(&b, "- Audiencia: %s\n", orNA(c.AudienceRole))
	fmt.Fprintf(&b, "- Perfiles de validación: %s\n", orNA(strings.Join(c.ValidationProfiles, ", ")))
	fmt.Fprintf(&b, "- Curso: %s\n", orNA(c.Course))
	fmt.Fprintf(&b, "- Programa: %s\n", orNA(c.Program))
	fmt.Fprintf(&b, "- Semestre: %s\n", orNA(c.Semester))
	fmt.Fprintf(&b, "- Institución: %s\n", orNA(c.Institution))
	fmt.Fprintf(&b, "- Tema: %s\n", orNA(c.Topic))
	fmt.Fprintf(&b, "- Sección: %s\n", orNA(c.Section))

	aca := c.ACAInstructions
	if strings.TrimSpace(aca) == "" {
		aca = "Sin instrucciones específicas."
	}
	local := c.LocalGuidelines
	if strings.TrimSpace(local) == "" {
		local = "Sin guías institucionales adicionales."
	}
	fmt.Fprintf(&b, "\nINSTRUCCIONES DEL DOCENTE:\n---\n%s\n---\n", aca)
	fmt.Fprintf(&b, "\nGUÍAS INSTITUCIONALES:\n---\n%s\n---\n", local)
	return b.String()
}

func buildPrompt(req Request) augment.Prompt {
	var task string
	switch req.Mode {
	case ModePlanSection:
		task = "TAREA (PLAN_SECTION): propone un esquema de 3 a 5 puntos para la sección (outline), " +
			"de 3 a 6 consejos para redactarla con sus propias palabras (guidance) y de 2 a 4 próximos pasos (next_actions). " +
			"No redactes la sección.\n"
	case ModeReviewSection:
		task = "TAREA (REVIEW_SECTION): da retroalimentación sobre el texto del estudiante sin reescribirlo. " +
			"Indica fortalezas y mejoras (feedback) sobre claridad, tono académico, citas APA 7 y alineación con las instrucciones, " +
			"consejos generales (guidance) y próximos pasos (next_actions).\n\nTEXTO DEL ESTUDIANTE:\n---\n" +
			req.StudentText + "\n---\n"
	case ModeClarifyInstructions:
		question := req.StudentQuestion
		if strings.TrimSpace(question) == "" {
			question = "Sin pregunta específica."
		}
		task = "TAREA (CLARIFY_INSTRUCTIONS): explica en lenguaje sencillo qué entregables pide la actividad y los puntos clave " +
			"que no debe olvidar (clarifications), responde la pregunta del estudiante si existe, " +
			"y propone de 2 a 4 próximos pasos (next_actions).\n\nPREGUNTA DEL ESTUDIANTE:\n---\n" + question + "\n---\n"
	}
	return augment.Prompt{
		System: systemPrompt(req.Profile, req.Context.PaperProfile),
		User:   contextBlock(req.Context) + "\n" + task,
	}
}

// fallback answers from fixed templates.
func fallback(req Request) Response {
	resp := newResponse(req)
	c := req.Context
	switch req.Mode {
	case ModePlanSection:
		section := "la sección"
		if c.Section != "" {
			section = "la sección " + strings.ToLower(c.Section)
		}
		topic := "el tema"
		if c.Topic != "" {
			topic = fmt.Sprintf("%q", c.Topic)
		}
		resp.Outline = []string{
			fmt.Sprintf("Párrafo 1: sitúa %s en el contexto del curso.", topic),
			fmt.Sprintf("Párrafo 2: explica el propósito de %s.", section),
			"Párrafo 3: describe el enfoque o la estrategia que vas a seguir.",
			"Párrafo 4: anticipa brevemente cómo está organizado el resto del documento.",
		}
		resp.Guidance = []string{
			"Mantén un tono académico y evita expresiones coloquiales.",
			"Cita en formato APA 7 cada idea que tomes de otros autores.",
			"Relaciona el tema con los objetivos del curso o del programa.",
		}
		resp.NextActions = []string{
			"Escribe un primer borrador siguiendo el esquema.",
			"Comprueba que el borrador responde a lo que piden las instrucciones del docente.",
			"Usa el modo REVIEW_SECTION para recibir retroalimentación sobre el borrador.",
		}
	case ModeReviewSection:
		resp.Feedback = []FeedbackItem{
			{Type: FeedbackStrength, Message: "El texto se mantiene centrado en el tema."},
			{Type: FeedbackStrength, Message: "La redacción es comprensible y sigue un hilo lógico."},
			{Type: FeedbackImprovement, Message: "Haz más explícita la relación con los objetivos del trabajo."},
		}
		if !mentionsCitation(req.StudentText) {
			resp.Feedback = append(resp.Feedback, FeedbackItem{
				Type:    FeedbackImprovement,
				Message: "No se observan citas: añade al menos una en formato APA 7 si retomas ideas de otros autores.",
			})
		}
		resp.Guidance = []string{
			"Revisa cada párrafo y verifica que responde a las instrucciones de la actividad.",
			"Asegúrate de que toda afirmación basada en la literatura tenga su cita.",
		}
		resp.NextActions = []string{
			"Escribe un segundo borrador aplicando al menos dos mejoras.",
			"Repasa la guía APA 7 de citas y referencias.",
		}
	case ModeClarifyInstructions:
		resp.Clarifications = []string{
			"La actividad te pide un producto escrito en el que apliques los conceptos del curso.",
			"Sigue la estructura indicada (por ejemplo introducción, desarrollo, conclusiones y referencias).",
			"Si las instrucciones mencionan APA 7, úsala para citas y referencias.",
		}
		if c.ACAInstructions == "" {
			resp.Clarifications = append(resp.Clarifications,
				"No se recibieron las instrucciones del docente: compártelas para una explicación más precisa.")
		}
		resp.Guidance = []string{
			"Subraya en las instrucciones palabras como producto final, formato, rúbrica o criterios de evaluación.",
			"Haz una lista de los entregables concretos que te piden.",
		}
		resp.NextActions = []string{
			"Decide qué parte del trabajo vas a completar hoy.",
			"Usa el modo PLAN_SECTION para obtener un esquema de esa parte antes de escribir.",
		}
	}
	if req.Profile == ProfileCUN {
		resp.Guidance = append(resp.Guidance, "Consulta las adaptaciones institucionales de la CUN además de APA 7.")
	}
	return resp
}

// mentionsCitation looks for a parenthetical year such as (2020) or (s. f.).
func mentionsCitation(text string) bool {
	folded := strings.ToLower(text)
	if strings.Contains(folded, "s. f.") || strings.Contains(folded, "s.f.") {
		return true
	}
	for i := 0; i+4 <= len(text); i++ {
		if isYear(text[i : i+4]) {
			return true
		}
	}
	return false
}

func isYear(s string) bool {
	if len(s) != 4 || (s[0] != '1' && s[0] != '2') {
		return false
	}
	for i := 1; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s[:2] == "19" || s[:2] == "20"
}

func profileGuidance(p core.DocumentProfile) (guidance, next []string) {
	guidance = []string{}
	next = []string{}
	if !p.IsAcademic {
		guidance = append(guidance, "El texto no presenta rasgos claros de documento académico.")
		next = append(next, "Añade portada, resumen o referencias si se trata de un trabajo académico.")
		return guidance, next
	}
	switch p.APAKind {
	case core.APAKindProfessional:
		guidance = append(guidance, "Se trata de un manuscrito profesional: usa la portada y el título abreviado propios de APA 7.")
	case core.APAKindStudent:
		guidance = append(guidance, "Se trata de un trabajo de estudiante: la portada debe incluir curso, docente y fecha.")
	}
	if t := p.Type(); t != "" {
		guidance = append(guidance, fmt.Sprintf("Tipo de documento detectado: %s.", t))
	} else {
		next = append(next, "Declara el tipo de documento para aplicar todas las reglas que le corresponden.")
	}
	if p.Confidence < 0.5 {
		next = append(next, "La confianza del perfil es baja: revisa que las secciones estén bien tituladas.")
	}
	if p.SuggestedProfileID != "" {
		next = append(next, fmt.Sprintf("Valida el documento con el perfil %s.", p.SuggestedProfileID))
	}
	next = append(next, "Ejecuta la validación completa para ver los hallazgos por categoría.")
	return guidance, next
}
