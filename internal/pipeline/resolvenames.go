package pipeline

import (
	"fmt"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// ResolveNames builds a rewrite map from every table's original
// QualifiedName to its final rendered identifier, then apply it to every
// Table, every ForeignKey.RefTable, and every Index's target table.
//
// With a single schema filter (the default), the final identifier is
// always the bare name, since everything kept already belongs to one
// schema. With AllSchemas, a bare name unique across all kept tables keeps
// that bare name; a colliding bare name is renamed schema__name and
// SCHEMA_PREFIXED is emitted.
func ResolveNames(model *ir.SchemaModel, opts Options) map[string]ir.Identifier {
	rewrite := make(map[string]ir.Identifier, len(model.Tables))

	if !opts.AllSchemas {
		for _, t := range model.Tables {
			rewrite[tableKey(t.Name, opts)] = t.Name.Name
		}
	} else {
		counts := map[string]int{}
		for _, t := range model.Tables {
			counts[t.Name.Name.Normalized]++
		}
		for _, t := range model.Tables {
			if counts[t.Name.Name.Normalized] <= 1 {
				rewrite[tableKey(t.Name, opts)] = t.Name.Name
				continue
			}
			mangled := mangledSchemaName(t.Name)
			rewrite[tableKey(t.Name, opts)] = mangled
			model.AddWarning(diagnostic.New(
				diagnostic.CodeSchemaPrefixed,
				fmt.Sprintf("table name %q collides across schemas; renamed to %q", t.Name.Name.Normalized, mangled.Normalized),
				tableKey(t.Name, opts),
				ir.SourceSpan{},
			))
		}
	}

	for i := range model.Tables {
		t := &model.Tables[i]
		if final, ok := rewrite[tableKey(t.Name, opts)]; ok {
			t.Name = ir.QualifiedName{Name: final}
		}
		for j := range t.Constraints {
			if t.Constraints[j].Kind != ir.ConstraintForeignKey {
				continue
			}
			if final, ok := rewrite[tableKey(t.Constraints[j].RefTable, opts)]; ok {
				t.Constraints[j].RefTable = ir.QualifiedName{Name: final}
			}
		}
		for j := range t.Columns {
			if t.Columns[j].InlineReferences == nil {
				continue
			}
			if final, ok := rewrite[tableKey(t.Columns[j].InlineReferences.RefTable, opts)]; ok {
				ref := *t.Columns[j].InlineReferences
				ref.RefTable = ir.QualifiedName{Name: final}
				t.Columns[j].InlineReferences = &ref
			}
		}
	}

	for i := range model.Indexes {
		idx := &model.Indexes[i]
		if final, ok := rewrite[tableKey(idx.Table, opts)]; ok {
			idx.Table = ir.QualifiedName{Name: final}
		}
	}

	return rewrite
}

// mangledSchemaName builds the schema__name collision-resolution
// identifier. It is synthesized text, not a source identifier, so its
// quoting is decided the same way any other identifier's is: by content.
func mangledSchemaName(qn ir.QualifiedName) ir.Identifier {
	raw := qn.Schema.Normalized + "__" + qn.Name.Normalized
	return ir.NewIdentifier(raw, ir.NeedsQuoting(raw))
}

// TableExistsSet returns the set of table symbol-table keys for
// MapConstraints' FK-target-missing check. It is built before ResolveNames
// runs, so ref_table comparisons use the same pre-resolve keys on both
// sides.
func TableExistsSet(model *ir.SchemaModel, opts Options) map[string]bool {
	set := make(map[string]bool, len(model.Tables))
	for _, t := range model.Tables {
		set[tableKey(t.Name, opts)] = true
	}
	return set
}
