// Package graphql serves the canonical person schema over GraphQL. The SDL
// is generated from the queryable fragment path set, incoming documents are
// parsed and validated with gqlparser, and selection sets flatten back into
// fragment paths for the query service.
package graphql

import (
	"fmt"
	"sort"
	"strings"

	"lif/internal/lif/fragment"
	"lif/internal/lif/naming"
)

// node is one level of the path tree the SDL is generated from.
type node struct {
	children map[string]*node
}

func (n *node) child(name string) *node {
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	c, ok := n.children[name]
	if !ok {
		c = &node{}
		n.children[name] = c
	}
	return c
}

func (n *node) leaf() bool { return len(n.children) == 0 }

func (n *node) sortedNames() []string {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// buildTree folds the flat path set into one tree rooted below person.
func buildTree(paths []fragment.Path) *node {
	root := &node{}
	for _, p := range paths {
		segments := p.Segments()
		current := root
		for _, segment := range segments[1:] {
			current = current.child(segment)
		}
	}
	return root
}

// GenerateSDL renders the queryable path set as a GraphQL schema document.
// Branches become object types named by their path (rootTypeName + Pascal
// segments) and render as list fields, matching the merged record shape;
// leaves are Value scalars since fragment payloads carry arbitrary JSON.
func GenerateSDL(paths []fragment.Path, rootTypeName string) string {
	tree := buildTree(paths)

	var b strings.Builder
	b.WriteString("scalar Value\n\n")
	b.WriteString("type Query {\n")
	fmt.Fprintf(&b, "  %s(identifier: String!, identifierType: String!, organizationId: String): %s\n",
		fragment.Root, rootTypeName)
	b.WriteString("}\n")

	writeType(&b, rootTypeName, tree)
	return b.String()
}

func writeType(b *strings.Builder, typeName string, n *node) {
	fmt.Fprintf(b, "\ntype %s {\n", typeName)

	type pending struct {
		typeName string
		node     *node
	}
	var nested []pending

	names := n.sortedNames()
	if len(names) == 0 {
		// gqlparser rejects empty object types; expose the branch opaquely.
		b.WriteString("  _: Value\n")
	}
	for _, name := range names {
		child := n.children[name]
		if child.leaf() {
			fmt.Fprintf(b, "  %s: Value\n", name)
			continue
		}
		childType := typeName + naming.ToPascal(name)
		fmt.Fprintf(b, "  %s: [%s]\n", name, childType)
		nested = append(nested, pending{typeName: childType, node: child})
	}
	b.WriteString("}\n")

	for _, p := range nested {
		writeType(b, p.typeName, p.node)
	}
}
