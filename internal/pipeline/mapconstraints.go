package pipeline

import (
	"fmt"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// MapConstraints decides inline-vs-table-level rendering for
// PRIMARY KEY/UNIQUE, gates and rewrites FOREIGN KEY, delegates CHECK to
// MapExpr in CheckExpr mode, and drops constraints whose target is missing.
// It runs before Resolve Names, against whatever QualifiedName form
// Normalize/Plan produced; tableExists must be built from the same
// pre-resolve model so both sides of the FK-target check agree.
func MapConstraints(model *ir.SchemaModel, opts Options, tableExists map[string]bool) {
	for i := range model.Tables {
		table := &model.Tables[i]

		for j := range table.Columns {
			applyEnumCheckEmulation(&table.Columns[j], opts)
			mapInlineCheck(model, table, &table.Columns[j])
			mapInlineForeignKey(model, table, &table.Columns[j], opts, tableExists)
		}

		table.Constraints = mapTableConstraints(model, table, opts, tableExists)

		if pk := liftInlinePrimaryKey(table); pk != nil {
			table.Constraints = append(table.Constraints, *pk)
		}

		// Column-level CHECKs render as table-level constraints; the column
		// line carries only type, PK, NOT NULL, DEFAULT, UNIQUE, REFERENCES.
		for j := range table.Columns {
			col := &table.Columns[j]
			if col.InlineCheck == nil {
				continue
			}
			table.Constraints = append(table.Constraints, ir.TableConstraint{
				Kind:         ir.ConstraintCheck,
				Check:        col.InlineCheck,
				InlineSource: true,
			})
			col.InlineCheck = nil
		}
	}
}

// liftInlinePrimaryKey turns a PRIMARY KEY declared inline on a
// non-rowid-alias column (e.g. `name TEXT PRIMARY KEY`) into a table-level
// constraint; the inline spelling is reserved for the rowid alias, where it
// means something different to SQLite.
func liftInlinePrimaryKey(table *ir.Table) *ir.TableConstraint {
	for _, tc := range table.Constraints {
		if tc.Kind == ir.ConstraintPrimaryKey {
			return nil
		}
	}
	for _, col := range table.Columns {
		if col.InlinePrimaryKey && !col.RowidAlias {
			return &ir.TableConstraint{Kind: ir.ConstraintPrimaryKey, Columns: []string{col.Name.Normalized}}
		}
	}
	return nil
}

// applyEnumCheckEmulation: when the option is on, a flattened enum column
// gets a synthesized CHECK(col IN (...)) so SQLite rejects values outside
// the original enum's set. It composes with any CHECK the domain/column
// already carried via mergeCheck.
func applyEnumCheckEmulation(col *ir.Column, opts Options) {
	if !opts.EnumCheckEmulation || len(col.EnumValues) == 0 {
		return
	}
	items := make([]ir.Expr, len(col.EnumValues))
	for i, v := range col.EnumValues {
		items[i] = ir.Expr{Kind: ir.ExprStringLit, StringVal: v}
	}
	ref := ir.Expr{Kind: ir.ExprColumnRef, ColumnName: col.Name.Normalized}
	check := ir.Expr{Kind: ir.ExprIn, Left: &ref, InList: items}
	col.InlineCheck = mergeCheck(col.InlineCheck, &check)
}

func mapInlineCheck(model *ir.SchemaModel, table *ir.Table, col *ir.Column) {
	if col.InlineCheck == nil {
		return
	}
	object := table.Name.Key() + "." + col.Name.Normalized
	out, ok := MapExpr(model, *col.InlineCheck, ModeCheckExpr, object)
	if !ok {
		col.InlineCheck = nil
		return
	}
	col.InlineCheck = &out
}

func mapInlineForeignKey(model *ir.SchemaModel, table *ir.Table, col *ir.Column, opts Options, tableExists map[string]bool) {
	if col.InlineReferences == nil {
		return
	}
	if !opts.EnableForeignKeys {
		col.InlineReferences = nil
		return
	}
	object := table.Name.Key() + "." + col.Name.Normalized
	fk := *col.InlineReferences
	if !tableExists[tableKey(fk.RefTable, opts)] {
		model.AddWarning(diagnostic.New(diagnostic.CodeFKTargetMissing, fmt.Sprintf("referenced table %q does not exist", fk.RefTable.Key()), object, ir.SourceSpan{}))
		col.InlineReferences = nil
		return
	}
	if fk.Deferrable {
		model.AddWarning(diagnostic.New(diagnostic.CodeDeferrableSemanticsChange, "DEFERRABLE/INITIALLY DEFERRED has no SQLite equivalent; constraint is always immediate", object, ir.SourceSpan{}))
		fk.Deferrable = false
	}
	if fk.Match != "" {
		model.AddWarning(diagnostic.New(diagnostic.CodeFKMatchIgnored, "MATCH "+fk.Match+" has no SQLite equivalent; simple match semantics apply", object, ir.SourceSpan{}))
		fk.Match = ""
	}
	col.InlineReferences = &fk
}

// mapTableConstraints rebuilds a table's constraint list: PRIMARY KEY and
// UNIQUE constraints that are single-column and were declared inline stay
// on the column (already true from Normalize) and are skipped here; the
// rest survive in source order, before Render imposes the fixed
// PK -> UNIQUE -> CHECK -> FOREIGN KEY emission order.
func mapTableConstraints(model *ir.SchemaModel, table *ir.Table, opts Options, tableExists map[string]bool) []ir.TableConstraint {
	out := make([]ir.TableConstraint, 0, len(table.Constraints))

	for _, tc := range table.Constraints {
		object := table.Name.Key()
		if len(tc.Columns) == 1 {
			object = table.Name.Key() + "." + tc.Columns[0]
		}

		switch tc.Kind {
		case ir.ConstraintPrimaryKey:
			if rowidAliasTable(table) {
				// Step 2 of Plan already promoted the sole PK column to an
				// inline rowid alias; the table-level entry (if Normalize
				// also produced one, e.g. `id integer, primary key(id)`) is
				// now redundant.
				continue
			}
			if tc.Name != "" {
				model.AddWarning(diagnostic.New(diagnostic.CodeConstraintNameDropped, fmt.Sprintf("constraint name %q is not preserved", tc.Name), object, ir.SourceSpan{}))
			}
			out = append(out, tc)

		case ir.ConstraintUnique:
			if tc.Name != "" {
				model.AddWarning(diagnostic.New(diagnostic.CodeConstraintNameDropped, fmt.Sprintf("constraint name %q is not preserved", tc.Name), object, ir.SourceSpan{}))
			}
			out = append(out, tc)

		case ir.ConstraintForeignKey:
			if !opts.EnableForeignKeys {
				continue
			}
			if !tableExists[tableKey(tc.RefTable, opts)] {
				model.AddWarning(diagnostic.New(diagnostic.CodeFKTargetMissing, fmt.Sprintf("referenced table %q does not exist", tc.RefTable.Key()), object, ir.SourceSpan{}))
				continue
			}
			if tc.Deferrable {
				model.AddWarning(diagnostic.New(diagnostic.CodeDeferrableSemanticsChange, "DEFERRABLE/INITIALLY DEFERRED has no SQLite equivalent; constraint is always immediate", object, ir.SourceSpan{}))
				tc.Deferrable = false
			}
			if tc.Match != "" {
				model.AddWarning(diagnostic.New(diagnostic.CodeFKMatchIgnored, "MATCH "+tc.Match+" has no SQLite equivalent; simple match semantics apply", object, ir.SourceSpan{}))
				tc.Match = ""
			}
			if tc.Name != "" {
				model.AddWarning(diagnostic.New(diagnostic.CodeConstraintNameDropped, fmt.Sprintf("constraint name %q is not preserved", tc.Name), object, ir.SourceSpan{}))
			}
			out = append(out, tc)

		case ir.ConstraintCheck:
			if tc.Check == nil {
				continue
			}
			rewritten, ok := MapExpr(model, *tc.Check, ModeCheckExpr, object)
			if !ok {
				continue
			}
			if tc.Name != "" {
				model.AddWarning(diagnostic.New(diagnostic.CodeConstraintNameDropped, fmt.Sprintf("constraint name %q is not preserved", tc.Name), object, ir.SourceSpan{}))
			}
			tc.Check = &rewritten
			out = append(out, tc)
		}
	}

	return out
}

func rowidAliasTable(table *ir.Table) bool {
	for _, c := range table.Columns {
		if c.RowidAlias {
			return true
		}
	}
	return false
}
