// Package starlark runs rule checks written in Starlark. A script sees the
// document and request context as globals and reports violations by
// calling report().
package starlark

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/apalint/pkg/core"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// optionsValue exposes rule options as the frozen "options" dict. Keys are
// inserted in sorted order so iteration in scripts is stable.
func optionsValue(opts lint.Options) (starlark.Value, error) {
	v, err := toValue(map[string]any(opts))
	if err != nil {
		return nil, err
	}
	v.Freeze()
	return v, nil
}

// toValue converts a decoded configuration value. Only the shapes that
// YAML, JSON and environment layers produce are accepted.
func toValue(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case uint64:
		return starlark.MakeUint64(val), nil
	case float64:
		return starlark.Float(val), nil
	case []string:
		items := make([]starlark.Value, len(val))
		for i, s := range val {
			items[i] = starlark.String(s)
		}
		return starlark.NewList(items), nil
	case []any:
		items := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := toValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = sv
		}
		return starlark.NewList(items), nil
	case lint.Options:
		return toValue(map[string]any(val))
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		dict := starlark.NewDict(len(val))
		for _, k := range keys {
			sv, err := toValue(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
		}
		return dict, nil
	}
	return nil, fmt.Errorf("unsupported option value of type %T", v)
}

func optionalString(p *string) starlark.Value {
	if p == nil {
		return starlark.None
	}
	return starlark.String(*p)
}

// profileValue exposes the document profile as the "profile" global.
func profileValue(p core.DocumentProfile) starlark.Value {
	tags := make([]starlark.Value, len(p.Tags))
	for i, t := range p.Tags {
		tags[i] = starlark.String(t)
	}
	return starlarkstruct.FromStringDict(starlark.String("profile"), starlark.StringDict{
		"document_type": optionalString(p.DocumentType),
		"inferred_type": optionalString(p.InferredType),
		"level":         optionalString(p.Level),
		"apa_kind":      starlark.String(p.APAKind),
		"mode":          starlark.String(p.Mode),
		"language":      starlark.String(p.Language),
		"confidence":    starlark.Float(p.Confidence),
		"is_academic":   starlark.Bool(p.IsAcademic),
		"tags":          starlark.NewList(tags),
	})
}
