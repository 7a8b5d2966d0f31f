// Package naming provides pure identifier and schema-type conversions shared
// by the REST, GraphQL, and storage layers so the same attribute renders
// consistently on every surface.
package naming

import (
	"strings"
	"unicode"
)

// ValueType is the language-neutral value type of a schema attribute.
type ValueType string

const (
	ValueTypeString   ValueType = "string"
	ValueTypeInteger  ValueType = "integer"
	ValueTypeFloat    ValueType = "float"
	ValueTypeBoolean  ValueType = "boolean"
	ValueTypeDateTime ValueType = "datetime"
	ValueTypeUnknown  ValueType = "unknown"
)

// xsdValueTypes maps external XSD-like schema type names to neutral value
// types. Unknown names map to ValueTypeUnknown rather than failing: type
// information is advisory, never load-bearing for the merge.
var xsdValueTypes = map[string]ValueType{
	"xs:string":             ValueTypeString,
	"xs:token":              ValueTypeString,
	"xs:normalizedString":   ValueTypeString,
	"xs:anyURI":             ValueTypeString,
	"xs:int":                ValueTypeInteger,
	"xs:integer":            ValueTypeInteger,
	"xs:long":               ValueTypeInteger,
	"xs:short":              ValueTypeInteger,
	"xs:nonNegativeInteger": ValueTypeInteger,
	"xs:decimal":            ValueTypeFloat,
	"xs:double":             ValueTypeFloat,
	"xs:float":              ValueTypeFloat,
	"xs:boolean":            ValueTypeBoolean,
	"xs:date":               ValueTypeDateTime,
	"xs:dateTime":           ValueTypeDateTime,
	"xs:time":               ValueTypeDateTime,
	"xs:gYear":              ValueTypeDateTime,
}

// ValueTypeFor maps an XSD-like schema type name to its neutral value type.
func ValueTypeFor(xsdType string) ValueType {
	if vt, ok := xsdValueTypes[xsdType]; ok {
		return vt
	}
	return ValueTypeUnknown
}

// words splits an identifier in any supported convention (snake_case,
// camelCase, PascalCase, or mixtures) into lowercase words.
func words(identifier string) []string {
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			out = append(out, strings.ToLower(current.String()))
			current.Reset()
		}
	}

	runes := []rune(identifier)
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r):
			// Boundary before an upper rune, except inside an acronym run
			// ("ID" stays one word, "IDType" splits before "Type").
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if !prevUpper || nextLower {
				flush()
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return out
}

// ToSnake converts an identifier to snake_case.
func ToSnake(identifier string) string {
	return strings.Join(words(identifier), "_")
}

// ToPascal converts an identifier to PascalCase.
func ToPascal(identifier string) string {
	var b strings.Builder
	for _, w := range words(identifier) {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

// ToCamel converts an identifier to camelCase.
func ToCamel(identifier string) string {
	ws := words(identifier)
	if len(ws) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(ws[0])
	for _, w := range ws[1:] {
		b.WriteString(capitalize(w))
	}
	return b.String()
}

func capitalize(w string) string {
	if w == "" {
		return ""
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
