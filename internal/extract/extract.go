// Package extract turns submitted content into the plain text the linter
// works on.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/encoding/charmap"
)

// Format is the encoding of submitted content.
type Format string

// Supported formats.
const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	atxHeading   = regexp.MustCompile(`^\s{0,3}#{1,6}\s+(.*?)(?:\s+#+)?\s*$`)
	setextRule   = regexp.MustCompile(`^\s{0,3}(=+|-+)\s*$`)
	strongLine   = regexp.MustCompile(`^\s*(\*\*|__)(.+?)(\*\*|__)\s*$`)
	blankRunsExp = regexp.MustCompile(`\n{3,}`)
)

// ParseFormat normalizes a format name. An empty name is text.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt", "plain":
		return FormatText, true
	case "markdown", "md":
		return FormatMarkdown, true
	case "html", "htm":
		return FormatHTML, true
	}
	return "", false
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return FormatHTML
	case ".md", ".markdown":
		return FormatMarkdown
	}
	return FormatText
}

// Text decodes content and strips markup. Invalid UTF-8 is read as
// Latin-1. Markdown and HTML are reduced to plain lines with heading
// markers removed so section titles stand on their own line.
func Text(content []byte, f Format) (string, error) {
	s, err := decode(content)
	if err != nil {
		return "", err
	}
	switch f {
	case FormatText, "":
		return s, nil
	case FormatMarkdown:
		return plainMarkdown(s), nil
	case FormatHTML:
		md, err := htmlToMarkdown(s)
		if err != nil {
			return "", err
		}
		return plainMarkdown(md), nil
	}
	return "", fmt.Errorf("unsupported format %q", f)
}

func decode(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if utf8.Valid(content) {
		return strings.ReplaceAll(string(content), "\r\n", "\n"), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return strings.ReplaceAll(string(out), "\r\n", "\n"), nil
}

func htmlToMarkdown(s string) (string, error) {
	clean := bluemonday.UGCPolicy().Sanitize(s)
	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return md, nil
}

// plainMarkdown removes heading markup and collapses long blank runs.
// Body text, lists and emphasis inside paragraphs are left alone.
func plainMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i, ln := range lines {
		if m := atxHeading.FindStringSubmatch(ln); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
			continue
		}
		if setextRule.MatchString(ln) && i > 0 && strings.TrimSpace(lines[i-1]) != "" {
			continue
		}
		if m := strongLine.FindStringSubmatch(ln); m != nil && m[1] == m[3] {
			out = append(out, strings.TrimSpace(m[2]))
			continue
		}
		out = append(out, ln)
	}
	text := strings.Join(out, "\n")
	return strings.TrimSpace(blankRunsExp.ReplaceAllString(text, "\n\n")) + "\n"
}
