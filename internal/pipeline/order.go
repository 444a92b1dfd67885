package pipeline

import (
	"sort"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// Order emits tables in reverse topological order of the FK graph
// (referenced before referencing) when FKs are enabled, falling back to
// lexicographic order on a cycle or when FKs are disabled entirely.
// Indexes are ordered by (target-table identifier, index identifier).
func Order(model *ir.SchemaModel, opts Options) ([]ir.Table, []ir.Index) {
	tables := orderTables(model, opts)

	indexes := append([]ir.Index(nil), model.Indexes...)
	sort.SliceStable(indexes, func(i, j int) bool {
		if indexes[i].Table.Key() != indexes[j].Table.Key() {
			return indexes[i].Table.Key() < indexes[j].Table.Key()
		}
		return indexes[i].Name.Normalized < indexes[j].Name.Normalized
	})

	return tables, indexes
}

func orderTables(model *ir.SchemaModel, opts Options) []ir.Table {
	if !opts.EnableForeignKeys {
		return lexicographicTables(model.Tables)
	}

	edges := map[string][]string{} // referencing -> referenced
	for _, t := range model.Tables {
		key := t.Name.Key()
		for _, tc := range t.Constraints {
			if tc.Kind == ir.ConstraintForeignKey {
				edges[key] = append(edges[key], tc.RefTable.Key())
			}
		}
		for _, c := range t.Columns {
			if c.InlineReferences != nil {
				edges[key] = append(edges[key], c.InlineReferences.RefTable.Key())
			}
		}
	}

	order, ok := topoSortReferencedFirst(model.Tables, edges)
	if !ok {
		model.AddWarning(diagnostic.New(diagnostic.CodeFKCycleFallback, "foreign key graph contains a cycle; falling back to lexicographic table order", "", ir.SourceSpan{}))
		return lexicographicTables(model.Tables)
	}
	return order
}

func lexicographicTables(tables []ir.Table) []ir.Table {
	out := append([]ir.Table(nil), tables...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Name.Key() < out[j].Name.Key()
	})
	return out
}

// topoSortReferencedFirst returns tables ordered so that every referenced
// table precedes every table that references it. Ties are broken
// lexicographically by final identifier for determinism. Returns
// ok=false if the graph has a cycle.
func topoSortReferencedFirst(tables []ir.Table, edges map[string][]string) ([]ir.Table, bool) {
	byKey := make(map[string]ir.Table, len(tables))
	for _, t := range tables {
		byKey[t.Name.Key()] = t
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var postorder []string
	var hasCycle bool

	keys := make([]string, 0, len(tables))
	for _, t := range tables {
		keys = append(keys, t.Name.Key())
	}
	sort.Strings(keys)

	var visit func(key string)
	visit = func(key string) {
		if hasCycle {
			return
		}
		switch color[key] {
		case gray:
			hasCycle = true
			return
		case black:
			return
		}
		color[key] = gray
		refs := append([]string(nil), edges[key]...)
		sort.Strings(refs)
		for _, r := range refs {
			if _, exists := byKey[r]; !exists {
				continue
			}
			visit(r)
			if hasCycle {
				return
			}
		}
		color[key] = black
		postorder = append(postorder, key)
	}

	for _, k := range keys {
		visit(k)
		if hasCycle {
			return nil, false
		}
	}

	out := make([]ir.Table, 0, len(tables))
	for _, k := range postorder {
		out = append(out, byKey[k])
	}
	return out, true
}
