package provider

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type jsonSchema struct {
	schema *gojsonschema.Schema
}

func mustSchema(doc map[string]any) *jsonSchema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
	if err != nil {
		panic(fmt.Sprintf("compiling findings schema: %v", err))
	}
	return &jsonSchema{schema: s}
}

// validate returns an error listing every schema violation in data.
func (s *jsonSchema) validate(data []byte) error {
	res, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validating findings: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("findings do not match schema: %s", strings.Join(msgs, "; "))
}

var (
	str     = map[string]any{"type": "string"}
	boolean = map[string]any{"type": "boolean"}
	count   = map[string]any{"type": "integer", "minimum": 0}
)

func arrayOf(items any) map[string]any {
	return map[string]any{"type": "array", "items": items}
}

func object(required []string, props map[string]any) map[string]any {
	o := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		o["required"] = required
	}
	return o
}

var capabilityFinding = object([]string{"capability"}, map[string]any{
	"capability":  str,
	"riskbitmask": count,
	"reason":      str,
})

var callFinding = object([]string{"function"}, map[string]any{
	"file":     str,
	"function": str,
	"reason":   str,
})

var pluginBundle = object(nil, map[string]any{
	"component":            str,
	"has_privacy_provider": boolean,
	"descriptor":           str,
	"privacy": arrayOf(object([]string{"field"}, map[string]any{
		"table":        str,
		"field":        str,
		"component":    str,
		"reason":       str,
		"is_encrypted": boolean,
		"samples":      arrayOf(str),
	})),
	"dependency": object(nil, map[string]any{
		"core_mismatch":        boolean,
		"missing_dependencies": arrayOf(str),
		"outdated":             boolean,
		"no_recent_update":     boolean,
		"dependency_count":     count,
		"version_gap":          count,
		"deprecated_apis": arrayOf(object([]string{"api"}, map[string]any{
			"api":         str,
			"file":        str,
			"line":        count,
			"replacement": str,
		})),
	}),
	"capability": object(nil, map[string]any{
		"critical_caps_non_admin": arrayOf(capabilityFinding),
		"suspicious_overrides":    arrayOf(capabilityFinding),
	}),
	"structural": object(nil, map[string]any{
		"no_version_file":  boolean,
		"no_lang_dir":      boolean,
		"no_readme":        boolean,
		"no_tests":         boolean,
		"no_maturity":      boolean,
		"legacy_cron":      boolean,
		"deprecated_calls": arrayOf(callFinding),
		"unsafe_calls":     arrayOf(callFinding),
	}),
})

var roleBundle = object([]string{"id"}, map[string]any{
	"id":        str,
	"shortname": str,
	"archetype": str,
	"grants": arrayOf(object([]string{"capability", "permission"}, map[string]any{
		"capability": str,
		"permission": map[string]any{"enum": []any{"allow", "prevent", "prohibit", "inherit"}},
	})),
})

var (
	pluginSchema = mustSchema(pluginBundle)

	rolesSchema = mustSchema(object(nil, map[string]any{
		"roles": arrayOf(roleBundle),
	}))

	snapshotSchema = mustSchema(object(nil, map[string]any{
		"plugins": arrayOf(object([]string{"component"}, pluginBundle["properties"].(map[string]any))),
		"roles":   arrayOf(roleBundle),
	}))
)
