package pipeline

import (
	"fmt"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// Plan merges standalone ADD CONSTRAINT statements into their
// owning tables, resolve SERIAL/IDENTITY columns to SQLite's rowid alias,
// flatten domain references onto their columns, attach enum value lists,
// and warn on sequences nothing consumed.
func Plan(nr *NormalizeResult, opts Options) *ir.SchemaModel {
	model := nr.Model

	mergeConstraints(model, nr.Tables, nr.PendingConstraints, opts)

	consumed := map[string]bool{}
	for i := range model.Tables {
		resolveIdentityColumns(model, &model.Tables[i], nr.Sequences, consumed, opts)
	}

	for i := range model.Tables {
		resolvePlainIntegerRowidAlias(&model.Tables[i])
	}

	for i := range model.Tables {
		flattenDomainsAndEnums(model, &model.Tables[i], opts)
	}

	for _, seq := range model.Sequences {
		key := tableKey(seq.Name, opts)
		if consumed[key] {
			continue
		}
		model.AddWarning(diagnostic.New(
			diagnostic.CodeSequenceIgnored,
			fmt.Sprintf("sequence %q is not consumed by any SERIAL/IDENTITY column", key),
			key,
			ir.SourceSpan{},
		))
	}

	return model
}

// mergeConstraints implements step 1: fold every standalone ADD CONSTRAINT
// into its target table, or drop it with ALTER_TARGET_MISSING.
func mergeConstraints(model *ir.SchemaModel, tableIndex map[string]int, pending []PendingConstraint, opts Options) {
	for _, pc := range pending {
		key := tableKey(pc.Table, opts)
		idx, ok := tableIndex[key]
		if !ok {
			model.AddWarning(diagnostic.New(
				diagnostic.CodeAlterTargetMissing,
				fmt.Sprintf("ALTER TABLE target %q does not exist", key),
				key,
				ir.SourceSpan{},
			))
			continue
		}
		model.Tables[idx].Constraints = append(model.Tables[idx].Constraints, pc.Constraint)
	}
}

// resolveIdentityColumns collapses SERIAL/BIGSERIAL columns, columns whose
// DEFAULT is nextval() over a known sequence, and GENERATED ALWAYS/BY
// DEFAULT AS IDENTITY columns to plain integer; when such a column is the
// table's sole PRIMARY KEY column it becomes the rowid alias. A nextval()
// default over an unknown sequence is left alone for Map Expressions to
// drop.
func resolveIdentityColumns(model *ir.SchemaModel, table *ir.Table, knownSeqs map[string]bool, consumed map[string]bool, opts Options) {
	pkCols := singlePrimaryKeyColumn(table)

	for i := range table.Columns {
		col := &table.Columns[i]

		isSerial := col.TypeRef.Kind == ir.TypeSerial || col.TypeRef.Kind == ir.TypeBigSerial
		isSerialDefault := col.Default != nil && col.Default.Kind == ir.ExprNextVal &&
			knownSeqs[tableKey(col.Default.Sequence, opts)]
		isIdentity := col.IdentityGenerated

		if !isSerial && !isSerialDefault && !isIdentity {
			continue
		}

		if isSerialDefault {
			consumed[tableKey(col.Default.Sequence, opts)] = true
		}

		col.TypeRef = ir.TypeRef{Kind: ir.TypeInteger}
		sole := pkCols != nil && *pkCols == col.Name.Normalized

		code := diagnostic.CodeSerialToRowid
		notSolePK := diagnostic.CodeSerialNotPrimaryKey
		label := "serial"
		if isIdentity && !isSerial && !isSerialDefault {
			code = diagnostic.CodeIdentityToRowid
			notSolePK = diagnostic.CodeIdentityClauseDropped
			label = "identity"
		}

		col.Default = nil

		if sole {
			col.RowidAlias = true
			col.InlinePrimaryKey = true
			col.Nullable = false
			model.AddWarning(diagnostic.New(
				code,
				fmt.Sprintf("%s column %q becomes the table's INTEGER PRIMARY KEY rowid alias", label, col.Name.Normalized),
				table.Name.Key()+"."+col.Name.Normalized,
				ir.SourceSpan{},
			))
		} else {
			model.AddWarning(diagnostic.New(
				notSolePK,
				fmt.Sprintf("%s column %q is not the table's sole primary key; default dropped", label, col.Name.Normalized),
				table.Name.Key()+"."+col.Name.Normalized,
				ir.SourceSpan{},
			))
		}
	}
}

// resolvePlainIntegerRowidAlias extends step 2 to a column that was always
// a plain integer-shaped PRIMARY KEY (never SERIAL, never IDENTITY, so
// resolveIdentityColumns never looked at it): SQLite gives any INTEGER
// PRIMARY KEY column rowid-alias behavior whether or not the source used
// SERIAL, and the glossary's rowid-alias entry doesn't require a SERIAL
// origin, so this column qualifies the same way a resolved serial column
// does. A column that already carries a DEFAULT is left as an ordinary
// table-level PRIMARY KEY instead; a rowid-alias column never carries a
// DEFAULT.
func resolvePlainIntegerRowidAlias(table *ir.Table) {
	pkCol := singlePrimaryKeyColumn(table)
	if pkCol == nil {
		return
	}
	for i := range table.Columns {
		col := &table.Columns[i]
		if col.Name.Normalized != *pkCol {
			continue
		}
		if col.RowidAlias || col.Default != nil {
			return
		}
		switch col.TypeRef.Kind {
		case ir.TypeSmallInt, ir.TypeInteger, ir.TypeBigInt:
			col.RowidAlias = true
			col.InlinePrimaryKey = true
			col.Nullable = false
		}
		return
	}
}

// singlePrimaryKeyColumn returns the normalized name of the table's single
// PRIMARY KEY column, whether declared inline or as a one-column
// table-level constraint, or nil if there is no such single column.
func singlePrimaryKeyColumn(table *ir.Table) *string {
	var inlineCount int
	var inlineName string
	for _, c := range table.Columns {
		if c.InlinePrimaryKey {
			inlineCount++
			inlineName = c.Name.Normalized
		}
	}
	for _, tc := range table.Constraints {
		if tc.Kind == ir.ConstraintPrimaryKey && len(tc.Columns) == 1 {
			inlineCount++
			inlineName = tc.Columns[0]
		}
	}
	if inlineCount != 1 {
		return nil
	}
	return &inlineName
}

// flattenDomainsAndEnums implements steps 3 and 4: substitute a domain's
// base type and fold in its NOT NULL/CHECK, and attach an enum's value
// list for optional CHECK emulation.
func flattenDomainsAndEnums(model *ir.SchemaModel, table *ir.Table, opts Options) {
	for i := range table.Columns {
		col := &table.Columns[i]
		if col.TypeRef.Kind != ir.TypeUserDefined {
			continue
		}
		key := tableKey(col.TypeRef.Ref, opts)

		if dom, ok := model.Domains[key]; ok {
			col.TypeRef = dom.Base
			if dom.NotNull {
				col.Nullable = false
			}
			if dom.Check != nil {
				merged := mergeCheck(col.InlineCheck, dom.Check)
				col.InlineCheck = merged
			}
			model.AddWarning(diagnostic.New(
				diagnostic.CodeDomainFlattened,
				fmt.Sprintf("domain %q flattened onto column %q", key, col.Name.Normalized),
				table.Name.Key()+"."+col.Name.Normalized,
				ir.SourceSpan{},
			))
			continue
		}

		if enumDef, ok := model.Enums[key]; ok {
			col.TypeRef = ir.TypeRef{Kind: ir.TypeText}
			col.EnumValues = append([]string(nil), enumDef.Values...)
		}
	}
}

// mergeCheck ANDs two optional CHECK expressions together; either may be
// nil.
func mergeCheck(a, b *ir.Expr) *ir.Expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &ir.Expr{Kind: ir.ExprBinaryOp, BinOp: ir.OpAnd, Left: a, Right: b}
}
