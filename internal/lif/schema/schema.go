// Package schema compiles an OpenAPI document into the set of queryable
// fragment paths. It is an alternative to the metadata registry for
// deployments that describe the canonical person schema as an OpenAPI
// component tree instead of registry rows.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"lif/internal/lif/fragment"
)

// filterExtension marks a property as usable for filtering query results.
const filterExtension = "x-lif-filter"

// Compiled is the outcome of compiling one OpenAPI document: the queryable
// fragment path set plus the names of filterable properties.
type Compiled struct {
	RootType string
	Paths    []fragment.Path
	Filters  []string
}

// HasPath reports whether the path is queryable.
func (c *Compiled) HasPath(p fragment.Path) bool {
	for _, known := range c.Paths {
		if known == p {
			return true
		}
	}
	return false
}

// property is the subset of an OpenAPI schema object the compiler walks.
type property struct {
	Type       string              `json:"type"`
	Ref        string              `json:"$ref"`
	Properties map[string]property `json:"properties"`
	Items      *property           `json:"items"`
	Filter     bool                `json:"x-lif-filter"`
}

type document struct {
	Components struct {
		Schemas map[string]property `json:"schemas"`
	} `json:"components"`
}

// Compile parses the OpenAPI document and walks the root type's property
// tree: scalars terminate as leaf paths, objects and arrays of objects
// recurse, $ref targets resolve within the document. Reference cycles are
// walked once.
func Compile(openAPIDoc []byte, rootTypeName string) (*Compiled, error) {
	var doc document
	if err := json.Unmarshal(openAPIDoc, &doc); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	root, ok := doc.Components.Schemas[rootTypeName]
	if !ok {
		return nil, fmt.Errorf("openapi document has no %q schema", rootTypeName)
	}

	c := &compiler{schemas: doc.Components.Schemas}
	paths, err := c.walk(root, fragment.MustPath(fragment.Root), map[string]bool{rootTypeName: true})
	if err != nil {
		return nil, err
	}

	sort.Strings(c.filters)
	return &Compiled{RootType: rootTypeName, Paths: paths, Filters: c.filters}, nil
}

type compiler struct {
	schemas map[string]property
	filters []string
}

func (c *compiler) walk(p property, prefix fragment.Path, visiting map[string]bool) ([]fragment.Path, error) {
	var out []fragment.Path

	names := make([]string, 0, len(p.Properties))
	for name := range p.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := p.Properties[name]
		path, err := fragment.NewPath(prefix.String() + "." + name)
		if err != nil {
			return nil, fmt.Errorf("property %q under %s: %w", name, prefix, err)
		}
		if prop.Filter {
			c.filters = append(c.filters, name)
		}

		resolved, refName, err := c.resolve(prop)
		if err != nil {
			return nil, err
		}
		if refName != "" && visiting[refName] {
			// Reference cycle: expose the branch without recursing again.
			out = append(out, path)
			continue
		}

		switch {
		case len(resolved.Properties) > 0:
			if refName != "" {
				visiting[refName] = true
			}
			nested, err := c.walk(resolved, path, visiting)
			if err != nil {
				return nil, err
			}
			if refName != "" {
				delete(visiting, refName)
			}
			out = append(out, nested...)
		default:
			out = append(out, path)
		}
	}
	return out, nil
}

// resolve follows $ref and array-of indirection to the schema that decides
// whether a property is a branch or a leaf. The returned name is the last
// schema reference followed, for cycle detection.
func (c *compiler) resolve(p property) (property, string, error) {
	var refName string
	for range 8 {
		switch {
		case p.Ref != "":
			name, ok := strings.CutPrefix(p.Ref, "#/components/schemas/")
			if !ok {
				return property{}, "", fmt.Errorf("unsupported reference %q: only in-document schema references resolve", p.Ref)
			}
			target, found := c.schemas[name]
			if !found {
				return property{}, "", fmt.Errorf("reference %q targets an undefined schema", p.Ref)
			}
			refName = name
			p = target
		case p.Type == "array" && p.Items != nil:
			p = *p.Items
		default:
			return p, refName, nil
		}
	}
	return property{}, "", fmt.Errorf("reference chain too deep")
}
