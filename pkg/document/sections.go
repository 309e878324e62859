package document

import "strings"

// Folded names of the sections academic documents commonly carry.
var sectionNames = []string{
	"TITULO", "RESUMEN", "ABSTRACT", "PALABRAS CLAVE", "KEYWORDS",
	"INTRODUCCION", "INTRODUCTION", "MARCO TEORICO", "MARCO REFERENCIAL",
	"ESTADO DEL ARTE", "PLANTEAMIENTO DEL PROBLEMA", "OBJETIVOS", "JUSTIFICACION",
	"METODO", "METODOLOGIA", "METHOD", "METHODOLOGY",
	"RESULTADOS", "RESULTS", "DISCUSION", "DISCUSSION", "ANALISIS Y DISCUSION",
	"CONCLUSIONES", "CONCLUSION", "CONCLUSIONS", "RECOMENDACIONES", "LIMITACIONES",
	"REFERENCIAS", "REFERENCES", "BIBLIOGRAFIA", "ANEXOS", "APENDICE", "APENDICES",
}

// Aliases maps a canonical section name to the folded headings that denote it.
var Aliases = map[string][]string{
	"TITULO":       {"TITULO", "TITLE"},
	"RESUMEN":      {"RESUMEN", "ABSTRACT"},
	"PALABRAS":     {"PALABRAS CLAVE", "KEYWORDS"},
	"INTRODUCCION": {"INTRODUCCION", "INTRODUCTION"},
	"MARCO":        {"MARCO TEORICO", "MARCO REFERENCIAL", "ESTADO DEL ARTE"},
	"METODO":       {"METODO", "METODOLOGIA", "METHOD", "METHODOLOGY"},
	"RESULTADOS":   {"RESULTADOS", "RESULTS"},
	"DISCUSION":    {"DISCUSION", "DISCUSSION", "ANALISIS Y DISCUSION"},
	"CONCLUSIONES": {"CONCLUSIONES", "CONCLUSION", "CONCLUSIONS"},
	"LIMITACIONES": {"LIMITACIONES", "LIMITES DEL ESTUDIO", "LIMITATIONS"},
	"REFERENCIAS":  {"REFERENCIAS", "REFERENCES", "BIBLIOGRAFIA", "REFERENCIAS BIBLIOGRAFICAS"},
}

// Section finds a heading by canonical name, trying its aliases in order.
// Names without an alias entry are matched literally.
func (d *Document) Section(name string) (Heading, bool) {
	key := Fold(name)
	if names, ok := Aliases[key]; ok {
		return d.Heading(names...)
	}
	return d.Heading(key)
}

func knownSection(key string) bool {
	for _, n := range sectionNames {
		if key == n || strings.HasPrefix(key, n+" ") {
			return true
		}
	}
	return false
}
