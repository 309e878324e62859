package core

// =============================================================================
// DocumentProfile
// =============================================================================

// APAKind is the APA paper profile.
type APAKind string

// APA paper profiles.
const (
	APAKindStudent      APAKind = "student"
	APAKindProfessional APAKind = "professional"
	APAKindUnknown      APAKind = "unknown"
)

// AuthorshipMode records whether a document has one or several authors.
type AuthorshipMode string

// Authorship modes.
const (
	ModeIndividual AuthorshipMode = "individual"
	ModeGroup      AuthorshipMode = "grupal"
	ModeUnknown    AuthorshipMode = "desconocido"
)

// Recognized document types.
const (
	DocTypeThesis         = "tesis"
	DocTypeReport         = "informe"
	DocTypeEssay          = "ensayo"
	DocTypeArticle        = "articulo"
	DocTypeResearchReport = "reporte_investigacion"
	DocTypeCourseActivity = "actividad_curso"
	DocTypeOther          = "otro"
)

// Recognized academic levels.
const (
	LevelUndergraduate = "pregrado"
	LevelGraduate      = "posgrado"
	LevelProfessional  = "profesional"
	LevelSchool        = "escolar"
)

// DocumentTypes lists every recognized document type.
var DocumentTypes = []string{
	DocTypeThesis, DocTypeReport, DocTypeEssay, DocTypeArticle,
	DocTypeResearchReport, DocTypeCourseActivity, DocTypeOther,
}

// IsDocumentType reports whether t is a recognized document type.
func IsDocumentType(t string) bool {
	for _, dt := range DocumentTypes {
		if dt == t {
			return true
		}
	}
	return false
}

// DocumentProfile is the inferred classification of one document.
// DocumentType and Level are nil when the evidence does not support a value.
// DocumentType adopts a declared type; InferredType is the text-only guess.
type DocumentProfile struct {
	IsAcademic         bool           `json:"is_academic"`
	APAKind            APAKind        `json:"apa_kind"`
	DocumentType       *string        `json:"document_type"`
	InferredType       *string        `json:"inferred_type,omitempty"`
	Level              *string        `json:"level"`
	Mode               AuthorshipMode `json:"mode"`
	Language           string         `json:"language,omitempty"`
	Confidence         float64        `json:"confidence"`
	Reasons            []string       `json:"reasons,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
	SuggestedProfileID string         `json:"suggested_profile_id,omitempty"`
	Augmented          bool           `json:"augmented,omitempty"`
}

// Type returns the document type or "" when unknown.
func (p DocumentProfile) Type() string {
	if p.DocumentType == nil {
		return ""
	}
	return *p.DocumentType
}

// HasTag reports whether the profile carries tag.
func (p DocumentProfile) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// UnknownProfile is the profile used when nothing could be inferred.
func UnknownProfile() DocumentProfile {
	return DocumentProfile{APAKind: APAKindUnknown, Mode: ModeUnknown}
}
