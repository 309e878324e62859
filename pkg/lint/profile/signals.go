package profile

import (
	"regexp"

	"github.com/leapstack-labs/apalint/pkg/document"
)

// sampleRunes bounds the prefix used for language and context signals.
const sampleRunes = 5000

var (
	spanishStopWords = regexp.MustCompile(`(?i)\b(el|la|de|que|y|en|los|las|un|una|para|por)\b`)
	englishStopWords = regexp.MustCompile(`(?i)\b(the|of|and|in|for|to|with|a|an|on)\b`)

	keywordsLine   = regexp.MustCompile(`(?im)^\s*(palabras clave|keywords)\s*:`)
	citationParen  = regexp.MustCompile(`\([A-ZÁÉÍÓÚÑ][^()]{1,80}?,\s*(\d{4}[a-z]?|s\.\s?f\.)\)`)
	citationNarr   = regexp.MustCompile(`[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+(?: et al\.)?\s\(\d{4}[a-z]?\)`)
	firstPerson    = regexp.MustCompile(`(?i)\b(yo|mi|mis|me|nosotros|nosotras|nuestro|nuestra|nuestros|nuestras|I|my|we|our)\b`)
	groupAuthors   = regexp.MustCompile(`(?im)^\s*(autores|integrantes|estudiantes|equipo)\s*:`)
	singleAuthor   = regexp.MustCompile(`(?im)^\s*(autor|autora|estudiante)\s*:`)
	authorList     = regexp.MustCompile(`^[A-ZÁÉÍÓÚÑ][a-záéíóúñü]+ [A-ZÁÉÍÓÚÑ][a-záéíóúñü]+(?:,| y| &) [A-ZÁÉÍÓÚÑ][a-záéíóúñü]+ [A-ZÁÉÍÓÚÑ]`)
	courseWords    = regexp.MustCompile(`(?i)\b(curso|docente|asignatura|actividad|taller|semestre|profesor|profesora)\b`)
	thesisWords    = regexp.MustCompile(`(?i)\b(tesis|trabajo de grado|director|directora|para optar|monograf[ií]a)\b`)
	reportWords    = regexp.MustCompile(`(?i)\b(informe|reporte)\b`)
	graduateWords  = regexp.MustCompile(`(?i)\b(maestr[ií]a|doctorado|especializaci[óo]n|posgrado|mag[ií]ster)\b`)
	undergradWords = regexp.MustCompile(`(?i)\b(pregrado|licenciatura|tecnolog[ií]a|profesional en|programa de)\b`)
)

// signals are the raw observations the profile is inferred from.
type signals struct {
	spanish, english int

	abstract     bool
	keywords     bool
	method       bool
	results      bool
	discussion   bool
	conclusions  bool
	references   bool
	citations    int
	words        int
	firstPerson  int
	group        bool
	single       bool
	courseHits   int
	thesisHits   int
	reportHits   int
	graduateHits int
	undergrad    int
}

func collect(doc *document.Document) signals {
	sample := doc.Excerpt(sampleRunes)
	text := doc.Text()

	s := signals{
		spanish:      len(spanishStopWords.FindAllStringIndex(sample, -1)),
		english:      len(englishStopWords.FindAllStringIndex(sample, -1)),
		keywords:     keywordsLine.MatchString(text),
		citations:    len(citationParen.FindAllStringIndex(text, -1)) + len(citationNarr.FindAllStringIndex(text, -1)),
		words:        doc.WordCount(),
		firstPerson:  len(firstPerson.FindAllStringIndex(sample, -1)),
		group:        groupAuthors.MatchString(sample),
		single:       singleAuthor.MatchString(sample),
		courseHits:   len(courseWords.FindAllStringIndex(sample, -1)),
		thesisHits:   len(thesisWords.FindAllStringIndex(sample, -1)),
		reportHits:   len(reportWords.FindAllStringIndex(sample, -1)),
		graduateHits: len(graduateWords.FindAllStringIndex(sample, -1)),
		undergrad:    len(undergradWords.FindAllStringIndex(sample, -1)),
	}
	has := func(name string) bool {
		_, ok := doc.Section(name)
		return ok
	}
	s.abstract = has("RESUMEN")
	s.keywords = s.keywords || has("PALABRAS")
	s.method = has("METODO")
	s.results = has("RESULTADOS")
	s.discussion = has("DISCUSION")
	s.conclusions = has("CONCLUSIONES")
	s.references = has("REFERENCIAS")

	for i, ln := range doc.Lines() {
		if i >= 40 {
			break
		}
		if authorList.MatchString(ln.Trimmed) {
			s.group = true
			break
		}
	}
	return s
}

// imryd counts the research sections present besides the introduction.
func (s signals) imryd() int {
	n := 0
	for _, ok := range []bool{s.method, s.results, s.discussion} {
		if ok {
			n++
		}
	}
	return n
}

// citationDensity is citations per 1000 words.
func (s signals) citationDensity() float64 {
	if s.words == 0 {
		return 0
	}
	return float64(s.citations) * 1000 / float64(s.words)
}
