package pipeline

import (
	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// MapIndexes drops the access-method clause (warning unless
// btree), push every expression key and WHERE clause through MapExpr, and
// drop the index entirely if any of those is unsupported.
func MapIndexes(model *ir.SchemaModel) []ir.Index {
	out := make([]ir.Index, 0, len(model.Indexes))

	for _, idx := range model.Indexes {
		object := idx.Table.Key() + "." + idx.Name.Normalized

		if idx.Method != "" && idx.Method != "btree" {
			model.AddWarning(diagnostic.New(diagnostic.CodeIndexMethodIgnored, "index access method \""+idx.Method+"\" is not preserved; btree semantics assumed", object, ir.SourceSpan{}))
		}
		idx.Method = ""

		keys, ok := mapIndexKeys(model, idx, object)
		if !ok {
			continue
		}
		idx.Keys = keys

		if idx.Where != nil {
			rewritten, ok := MapExpr(model, *idx.Where, ModeIndexWhere, object)
			if !ok {
				continue
			}
			idx.Where = &rewritten
		}

		out = append(out, idx)
	}

	return out
}

func mapIndexKeys(model *ir.SchemaModel, idx ir.Index, object string) ([]ir.IndexKey, bool) {
	keys := make([]ir.IndexKey, 0, len(idx.Keys))
	for _, k := range idx.Keys {
		if k.Kind == ir.IndexKeyColumn {
			keys = append(keys, k)
			continue
		}
		rewritten, ok := MapExpr(model, k.Expr, ModeIndexExpr, object)
		if !ok {
			return nil, false
		}
		keys = append(keys, ir.IndexKey{Kind: ir.IndexKeyExpr, Expr: rewritten})
	}
	return keys, true
}
