package starlark

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/document"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"go.starlark.net/starlark"
)

// script holds the per-execution state behind the builtins.
type script struct {
	doc        *document.Document
	violations []lint.Violation
}

// reservedNames are the builtins a helper module may not shadow.
var reservedNames = map[string]bool{
	"text": true, "document_type": true, "language": true, "variant": true,
	"options": true, "profile": true, "headings": true, "section": true,
	"word_count": true, "report": true,
}

// predeclared returns the globals visible to a rule script:
//
//	text            full document text
//	document_type   declared or detected type, or ""
//	language        request language
//	variant         profile variant
//	options         rule options dict
//	profile         detected profile struct
//	headings()      list of heading titles
//	section(name)   body of a section, or None
//	word_count(s)   number of words in s
//	report(detail, start=-1, end=-1, key="", suggestion="")
//
// The runner adds one struct per helper module.
func (s *script) predeclared(in *lint.CheckInput) (starlark.StringDict, error) {
	opts, err := optionsValue(in.Options)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	docType := in.Context.DocumentType
	if docType == "" {
		docType = in.Profile.Type()
	}
	return starlark.StringDict{
		"text":          starlark.String(in.Doc.Text()),
		"document_type": starlark.String(docType),
		"language":      starlark.String(in.Context.Language),
		"variant":       starlark.String(in.Context.Variant),
		"options":       opts,
		"profile":       profileValue(in.Profile),
		"headings":      starlark.NewBuiltin("headings", s.headings),
		"section":       starlark.NewBuiltin("section", s.section),
		"word_count":    starlark.NewBuiltin("word_count", wordCount),
		"report":        starlark.NewBuiltin("report", s.report),
	}, nil
}

func (s *script) headings(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	hs := s.doc.Headings()
	out := make([]starlark.Value, len(hs))
	for i, h := range hs {
		out[i] = starlark.String(h.Title)
	}
	return starlark.NewList(out), nil
}

func (s *script) section(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}
	h, ok := s.doc.Section(name)
	if !ok {
		return starlark.None, nil
	}
	body, _ := s.doc.Body(h)
	return starlark.String(body), nil
}

func wordCount(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var text string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "text", &text); err != nil {
		return nil, err
	}
	return starlark.MakeInt(len(strings.Fields(text))), nil
}

func (s *script) report(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var (
		detail          starlark.Value = starlark.String("")
		start, end      = -1, -1
		key, suggestion string
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"detail?", &detail, "start?", &start, "end?", &end, "key?", &key, "suggestion?", &suggestion); err != nil {
		return nil, err
	}

	v := lint.Violation{Key: key, Suggestion: suggestion}
	if str, ok := detail.(starlark.String); ok {
		v.Detail = string(str)
	} else {
		v.Detail = detail.String()
	}

	if start >= 0 {
		if end < start {
			end = start
		}
		if end > s.doc.Len() {
			return nil, fmt.Errorf("%s: end %d beyond document length %d", b.Name(), end, s.doc.Len())
		}
		v = v.At(start, end)
	}
	s.violations = append(s.violations, v)
	return starlark.None, nil
}
