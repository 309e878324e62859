// Package document indexes a plain-text academic document for rule checks:
// lines with byte offsets, heading detection and section bodies.
//
// A Document is immutable after New and safe for concurrent reads.
package document

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxHeadingLen is the length below which an unpunctuated line counts as a heading.
const maxHeadingLen = 60

var leadingNumbering = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXLC]+\.)\s+`)

// Line is one line of the document.
type Line struct {
	Number  int    // 1-based
	Start   int    // byte offset of the first character
	End     int    // byte offset just past the last character (newline excluded)
	Text    string // raw line
	Trimmed string
}

// Heading is a line detected as a section heading.
type Heading struct {
	Key   string // folded title with numbering removed, e.g. "REFERENCIAS"
	Title string // trimmed original text
	Line  int
	Start int
	End   int
}

// Document is an indexed document.
type Document struct {
	text     string
	lines    []Line
	headings []Heading
	hash     uint64
}

// New indexes text. Windows line endings are normalized; all offsets refer
// to the normalized text returned by Text.
func New(text string) *Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	d := &Document{text: text}

	h := xxhash.NewS64(0)
	_, _ = h.Write([]byte(text))
	d.hash = h.Sum64()

	offset := 0
	for i, raw := range strings.Split(text, "\n") {
		d.lines = append(d.lines, Line{
			Number:  i + 1,
			Start:   offset,
			End:     offset + len(raw),
			Text:    raw,
			Trimmed: strings.TrimSpace(raw),
		})
		offset += len(raw) + 1
	}

	seen := make(map[string]bool)
	for _, ln := range d.lines {
		if !isHeadingCandidate(ln.Trimmed) {
			continue
		}
		key := headingKey(ln.Trimmed)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		d.headings = append(d.headings, Heading{
			Key:   key,
			Title: ln.Trimmed,
			Line:  ln.Number,
			Start: ln.Start,
			End:   ln.End,
		})
	}
	return d
}

// Text returns the normalized document text.
func (d *Document) Text() string { return d.text }

// Len returns the text length in bytes.
func (d *Document) Len() int { return len(d.text) }

// Empty reports whether the document has no visible content.
func (d *Document) Empty() bool { return strings.TrimSpace(d.text) == "" }

// Hash returns the xxhash of the normalized text.
func (d *Document) Hash() uint64 { return d.hash }

// Lines returns the document lines. The slice must not be modified.
func (d *Document) Lines() []Line { return d.lines }

// Headings returns detected headings in document order, first occurrence of
// each key only. The slice must not be modified.
func (d *Document) Headings() []Heading { return d.headings }

// WordCount returns the number of whitespace-separated words.
func (d *Document) WordCount() int { return len(strings.Fields(d.text)) }

// LineAt returns the 1-based line number containing offset.
func (d *Document) LineAt(offset int) int {
	lo, hi := 0, len(d.lines)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lines[mid].Start <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	if len(d.lines) == 0 {
		return 0
	}
	return d.lines[lo].Number
}

// Heading returns the first heading whose key equals, or starts with, one of names.
// Names are folded before comparison.
func (d *Document) Heading(names ...string) (Heading, bool) {
	folded := make([]string, len(names))
	for i, n := range names {
		folded[i] = Fold(n)
	}
	for _, h := range d.headings {
		for _, n := range folded {
			if h.Key == n || strings.HasPrefix(h.Key, n+" ") {
				return h, true
			}
		}
	}
	return Heading{}, false
}

// Body returns the text following h up to the next major heading, and the
// offset at which it starts.
func (d *Document) Body(h Heading) (string, int) {
	start := h.End
	if start < len(d.text) {
		start++ // skip the newline
	}
	end := len(d.text)
	for _, ln := range d.lines {
		if ln.Number <= h.Line {
			continue
		}
		if isMajorHeading(ln.Trimmed) {
			end = ln.Start
			break
		}
	}
	if start > end {
		start = end
	}
	return d.text[start:end], start
}

// BodyLines returns the non-empty lines of Body(h).
func (d *Document) BodyLines(h Heading) []Line {
	body, start := d.Body(h)
	end := start + len(body)
	var out []Line
	for _, ln := range d.lines {
		if ln.Start >= start && ln.Start < end && ln.Trimmed != "" {
			out = append(out, ln)
		}
	}
	return out
}

// Rest returns every non-empty line after h until the end of the document.
func (d *Document) Rest(h Heading) []Line {
	var out []Line
	for _, ln := range d.lines {
		if ln.Number > h.Line && ln.Trimmed != "" {
			out = append(out, ln)
		}
	}
	return out
}

// Excerpt returns at most maxRunes runes of the text.
func (d *Document) Excerpt(maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(d.text) <= maxRunes {
		return d.text
	}
	n := 0
	for i := range d.text {
		if n == maxRunes {
			return d.text[:i]
		}
		n++
	}
	return d.text
}

// Snippet returns the text between start and end, clamped to the document,
// widened to whole runes and trimmed of surrounding whitespace.
func (d *Document) Snippet(start, end int) string {
	start, end = d.RuneBounds(start, end)
	if start >= end {
		return ""
	}
	return strings.TrimSpace(d.text[start:end])
}

// RuneBounds clamps a byte range to the document and widens it so neither
// end splits a UTF-8 sequence.
func (d *Document) RuneBounds(start, end int) (int, int) {
	start = max(start, 0)
	end = min(end, len(d.text))
	for start > 0 && start < len(d.text) && !utf8.RuneStart(d.text[start]) {
		start--
	}
	for end > 0 && end < len(d.text) && !utf8.RuneStart(d.text[end]) {
		end++
	}
	return start, end
}

// Fold uppercases s with Spanish casing rules and strips diacritics, so that
// "Metodología" and "METODOLOGIA" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(cases.Upper(language.Spanish).String(out))
}

// IsUpper reports whether s has at least one letter and no lowercase letters.
func IsUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}

func isHeadingCandidate(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	if IsUpper(trimmed) {
		return true
	}
	return utf8.RuneCountInString(trimmed) < maxHeadingLen && !strings.HasSuffix(trimmed, ".")
}

func isMajorHeading(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	if IsUpper(trimmed) && utf8.RuneCountInString(trimmed) >= 3 {
		return true
	}
	return knownSection(headingKey(trimmed))
}

func headingKey(trimmed string) string {
	key := Fold(trimmed)
	key = leadingNumbering.ReplaceAllString(key, "")
	return strings.TrimRight(strings.TrimSpace(key), ":")
}
