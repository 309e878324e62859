package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
)

// opinionChars is the excerpt length sent for profile classification.
const opinionChars = 3000

const opinionSystem = `Eres un clasificador de documentos académicos. Responde solo con un objeto JSON:
{"isAcademic":bool,"apaKind":"student|professional|unknown","documentType":"tesis|informe|ensayo|articulo|reporte_investigacion|actividad_curso|otro|null","level":"pregrado|posgrado|profesional|escolar|null","mode":"individual|grupal|desconocido","confidence":0.0,"reasons":["..."]}`

// ProfileOpinion asks the capability to classify a document. It implements
// profile.Opinion.
type ProfileOpinion struct {
	Runner *Runner
}

var _ profile.Opinion = ProfileOpinion{}

type opinionAnswer struct {
	IsAcademic   bool     `json:"isAcademic"`
	APAKind      string   `json:"apaKind"`
	DocumentType *string  `json:"documentType"`
	Level        *string  `json:"level"`
	Mode         string   `json:"mode"`
	Confidence   *float64 `json:"confidence"`
	Reasons      []string `json:"reasons"`
}

// Classify implements profile.Opinion.
func (o ProfileOpinion) Classify(ctx context.Context, doc *document.Document, lctx core.LintContext) (core.DocumentProfile, bool) {
	if o.Runner == nil || !o.Runner.Available() {
		return core.DocumentProfile{}, false
	}
	p := Prompt{
		System: opinionSystem,
		User:   fmt.Sprintf("Idioma declarado: %s.\n\nDocumento:\n\"\"\"\n%s\n\"\"\"", lctx.Language, doc.Excerpt(opinionChars)),
	}
	key := "profile\x00" + strconv.FormatUint(doc.Hash(), 16) + "\x00" + lctx.Language
	raw, err := o.Runner.Complete(ctx, key, p, Constraints{Mode: "classifier", MaxChars: opinionChars, JSON: true})
	if err != nil {
		return core.DocumentProfile{}, false
	}
	prof, err := parseOpinion(raw)
	if err != nil {
		o.Runner.logger.Warn("profile opinion rejected", "error", err)
		return core.DocumentProfile{}, false
	}
	return prof, true
}

func parseOpinion(raw string) (core.DocumentProfile, error) {
	obj, err := jsonObject(raw)
	if err != nil {
		return core.DocumentProfile{}, err
	}
	var ans opinionAnswer
	if err := json.Unmarshal([]byte(obj), &ans); err != nil {
		return core.DocumentProfile{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if ans.Confidence == nil {
		return core.DocumentProfile{}, fmt.Errorf("%w: missing confidence", ErrInvalidResponse)
	}

	p := core.DocumentProfile{
		IsAcademic: ans.IsAcademic,
		APAKind:    core.APAKindUnknown,
		Mode:       core.ModeUnknown,
		Confidence: *ans.Confidence,
		Reasons:    ans.Reasons,
	}
	switch k := core.APAKind(strings.ToLower(ans.APAKind)); k {
	case core.APAKindStudent, core.APAKindProfessional:
		p.APAKind = k
	}
	switch m := core.AuthorshipMode(strings.ToLower(ans.Mode)); m {
	case core.ModeIndividual, core.ModeGroup:
		p.Mode = m
	}
	if ans.DocumentType != nil {
		if t := strings.ToLower(strings.TrimSpace(*ans.DocumentType)); core.IsDocumentType(t) {
			p.DocumentType = &t
		}
	}
	if ans.Level != nil {
		switch l := strings.ToLower(strings.TrimSpace(*ans.Level)); l {
		case core.LevelUndergraduate, core.LevelGraduate, core.LevelProfessional, core.LevelSchool:
			p.Level = &l
		}
	}
	return p, nil
}
