// Package plan builds query plans: it maps a requested set of canonical
// fragment paths onto the configured information sources and their adapters,
// producing one dispatchable plan part per (source, adapter) pair.
//
// Planning is deterministic and side-effect free: the same configuration and
// request always produce the same plan.
package plan

import (
	"fmt"

	"lif/internal/lif/fragment"
	"lif/internal/lif/identity"
)

// SourceConfig declares one information source, the adapter it is reached
// through, and the fragment paths (or path prefixes) it can serve.
type SourceConfig struct {
	InformationSourceID string          `json:"information_source_id"`
	AdapterID           string          `json:"adapter_id"`
	Capabilities        []fragment.Path `json:"capabilities"`

	// PersonIDType names the identifier namespace the source's adapter
	// expects. Empty means the source accepts the canonical identifier as
	// requested; otherwise the query service translates through the
	// identity mapping store before dispatch.
	PersonIDType string `json:"person_id_type,omitempty"`

	// WholeBranchOnly marks adapters that can only retrieve a whole branch
	// rather than individual leaf paths. Sibling leaves under a declared
	// capability collapse to the capability path before dispatch.
	WholeBranchOnly bool `json:"whole_branch_only"`
}

// Config is the ordered set of known information sources. Declaration order
// is the tie-break between equally good matches.
type Config struct {
	Sources []SourceConfig `json:"sources"`
}

// Validate rejects configurations with missing identifiers or capabilities.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		if src.InformationSourceID == "" || src.AdapterID == "" {
			return fmt.Errorf("information source and adapter identifiers are required")
		}
		if seen[src.InformationSourceID] {
			return fmt.Errorf("duplicate information source %q", src.InformationSourceID)
		}
		seen[src.InformationSourceID] = true
		if len(src.Capabilities) == 0 {
			return fmt.Errorf("information source %q declares no capabilities", src.InformationSourceID)
		}
	}
	return nil
}

// Part is one dispatchable unit of work: a subset of the requested fragment
// paths served by one information source through one adapter. Owned by the
// dispatch loop for its lifetime and discarded once its job completes.
type Part struct {
	InformationSourceID string
	AdapterID           string
	Person              identity.PersonIdentifier
	PersonIDType        string
	FragmentPaths       []fragment.Path
}

// Builder produces query plans against a fixed source configuration.
type Builder struct {
	cfg Config
}

// NewBuilder validates the configuration and constructs a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg}, nil
}

// match describes how well a source capability covers a requested path.
type match struct {
	sourceIndex int
	capability  fragment.Path
	exact       bool
}

// Build assigns every requested path to the best capable source and groups
// the assignments into plan parts. Paths no source can serve are returned as
// unsatisfied, never silently dropped: the caller decides whether to fail
// the request or return partial data with a warning.
//
// Tie-break: an exact capability match beats a prefix match; among equal
// matches the earliest declared source wins.
func (b *Builder) Build(requested []fragment.Path, person identity.PersonIdentifier) ([]Part, []fragment.Path) {
	assignments := make(map[int][]fragment.Path, len(b.cfg.Sources))
	var unsatisfied []fragment.Path

	for _, path := range requested {
		best, found := b.bestMatch(path)
		if !found {
			unsatisfied = append(unsatisfied, path)
			continue
		}

		assigned := path
		if b.cfg.Sources[best.sourceIndex].WholeBranchOnly {
			// Initial simplification: the adapter retrieves whole branches,
			// so the leaf collapses to the declared capability ancestor.
			assigned = best.capability
		}
		assignments[best.sourceIndex] = appendPath(assignments[best.sourceIndex], assigned)
	}

	parts := make([]Part, 0, len(assignments))
	for i, src := range b.cfg.Sources {
		paths, ok := assignments[i]
		if !ok {
			continue
		}
		parts = append(parts, Part{
			InformationSourceID: src.InformationSourceID,
			AdapterID:           src.AdapterID,
			Person:              person,
			PersonIDType:        src.PersonIDType,
			FragmentPaths:       paths,
		})
	}
	return parts, unsatisfied
}

// bestMatch finds the source serving the path, preferring exact capability
// matches and earlier declaration.
func (b *Builder) bestMatch(path fragment.Path) (match, bool) {
	var best match
	found := false
	for i, src := range b.cfg.Sources {
		for _, capability := range src.Capabilities {
			if !path.HasPrefix(capability) {
				continue
			}
			m := match{sourceIndex: i, capability: capability, exact: path == capability}
			if !found || (m.exact && !best.exact) {
				best = m
				found = true
			}
			// A later source never displaces an equal earlier match.
		}
	}
	return best, found
}

// appendPath appends a path unless already present, preserving order.
func appendPath(paths []fragment.Path, p fragment.Path) []fragment.Path {
	for _, existing := range paths {
		if existing == p {
			return paths
		}
	}
	return append(paths, p)
}
