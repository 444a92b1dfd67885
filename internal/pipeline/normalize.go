package pipeline

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// PendingConstraint is a standalone ALTER TABLE ... ADD CONSTRAINT not yet
// merged into its owning table. Plan's step 1 consumes these.
type PendingConstraint struct {
	Table      ir.QualifiedName
	Constraint ir.TableConstraint
}

// NormalizeResult is Normalize's output: the initial SchemaModel plus the
// symbol tables and deferred work later stages consume.
type NormalizeResult struct {
	Model              *ir.SchemaModel
	Tables             map[string]int // normalized QualifiedName key -> index into Model.Tables
	Sequences          map[string]bool
	PendingConstraints []PendingConstraint
}

// Normalize applies the schema filter, splits identifiers into
// raw/normalized form, and builds symbol tables of tables, sequences,
// enums, and domains. It consumes a pg_query.ParseResult: the external SQL
// parser is github.com/pganalyze/pg_query_go/v6.
func Normalize(tree *pg_query.ParseResult, opts Options) *NormalizeResult {
	model := ir.NewSchemaModel()
	res := &NormalizeResult{
		Model:     model,
		Tables:    map[string]int{},
		Sequences: map[string]bool{},
	}

	for _, rawStmt := range tree.Stmts {
		if rawStmt == nil || rawStmt.Stmt == nil || rawStmt.Stmt.Node == nil {
			continue
		}

		switch n := rawStmt.Stmt.Node.(type) {
		case *pg_query.Node_CreateStmt:
			table, ok := normalizeCreateTable(n.CreateStmt, opts, model)
			if ok {
				res.Tables[tableKey(table.Name, opts)] = len(model.Tables)
				model.Tables = append(model.Tables, table)
			}

		case *pg_query.Node_AlterTableStmt:
			normalizeAlterTable(n.AlterTableStmt, opts, res)

		case *pg_query.Node_IndexStmt:
			if idx, ok := normalizeCreateIndex(n.IndexStmt, opts); ok {
				model.Indexes = append(model.Indexes, idx)
			}

		case *pg_query.Node_CreateSeqStmt:
			if seq, ok := normalizeCreateSequence(n.CreateSeqStmt, opts); ok {
				res.Sequences[tableKey(seq.Name, opts)] = true
				model.Sequences = append(model.Sequences, seq)
			}

		case *pg_query.Node_CreateEnumStmt:
			if def, ok := normalizeCreateEnum(n.CreateEnumStmt, opts); ok {
				model.Enums[tableKey(def.Name, opts)] = def
			}

		case *pg_query.Node_CreateDomainStmt:
			if def, ok := normalizeCreateDomain(n.CreateDomainStmt, opts); ok {
				model.Domains[tableKey(def.Name, opts)] = def
			}

		case *pg_query.Node_VariableSetStmt, *pg_query.Node_CommentStmt,
			*pg_query.Node_TransactionStmt, *pg_query.Node_CreateSchemaStmt,
			*pg_query.Node_GrantStmt, *pg_query.Node_AlterOwnerStmt,
			*pg_query.Node_CreateExtensionStmt:
			// Non-DDL / server-side-config statements are dropped
			// silently.

		default:
			model.AddWarning(diagnostic.New(
				diagnostic.CodeParseSkipped,
				fmt.Sprintf("unrecognized top-level statement: %T", n),
				"",
				ir.SourceSpan{},
			))
		}
	}

	return res
}

// tableKey is the symbol-table key for a possibly schema-qualified name.
// With a single-schema filter the schema is redundant (everything kept
// belongs to that one schema), so qualified and unqualified spellings of
// the same name must collapse to one key. With AllSchemas an unqualified
// name belongs to public, PostgreSQL's default search_path.
func tableKey(qn ir.QualifiedName, opts Options) string {
	if !opts.AllSchemas {
		return qn.Name.Normalized
	}
	if qn.HasSchema {
		return qn.Schema.Normalized + "." + qn.Name.Normalized
	}
	return "public." + qn.Name.Normalized
}

// schemaAllowed applies the schema filter mode: single-name, all-schemas,
// or default public.
func schemaAllowed(schemaName string, opts Options) bool {
	if opts.AllSchemas {
		return true
	}
	want := opts.EffectiveSchema()
	if schemaName == "" {
		// Unqualified names resolve to the session's search_path in real
		// PostgreSQL; this module treats an unqualified name as belonging
		// to whichever single schema is being kept.
		return true
	}
	return strings.EqualFold(schemaName, want)
}

func qualifiedNameFromRangeVar(rv *pg_query.RangeVar) ir.QualifiedName {
	qn := ir.QualifiedName{Name: ir.NewIdentifierFromAST(rv.Relname)}
	if rv.Schemaname != "" {
		qn.HasSchema = true
		qn.Schema = ir.NewIdentifierFromAST(rv.Schemaname)
	}
	return qn
}

func rangeVarSchema(rv *pg_query.RangeVar) string {
	return rv.Schemaname
}

func normalizeCreateTable(stmt *pg_query.CreateStmt, opts Options, model *ir.SchemaModel) (ir.Table, bool) {
	if stmt.Relation == nil {
		return ir.Table{}, false
	}
	if !schemaAllowed(rangeVarSchema(stmt.Relation), opts) {
		return ir.Table{}, false
	}

	table := ir.Table{
		Name:        qualifiedNameFromRangeVar(stmt.Relation),
		SourceOrder: len(model.Tables),
	}

	for _, elt := range stmt.TableElts {
		if elt == nil || elt.Node == nil {
			continue
		}
		switch e := elt.Node.(type) {
		case *pg_query.Node_ColumnDef:
			col := normalizeColumnDef(e.ColumnDef)
			table.Columns = append(table.Columns, col)

		case *pg_query.Node_Constraint:
			if tc, ok := normalizeTableConstraint(e.Constraint); ok {
				table.Constraints = append(table.Constraints, tc)
			}
		}
	}

	return table, true
}

func normalizeColumnDef(cd *pg_query.ColumnDef) ir.Column {
	col := ir.Column{
		Name:     ir.NewIdentifierFromAST(cd.Colname),
		Nullable: true,
	}
	if cd.TypeName != nil {
		col.TypeRef = convertTypeName(cd.TypeName)
	}

	for _, c := range cd.Constraints {
		if c == nil || c.Node == nil {
			continue
		}
		cons, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}
		applyColumnConstraint(&col, cons.Constraint)
	}

	return col
}

func applyColumnConstraint(col *ir.Column, c *pg_query.Constraint) {
	switch c.Contype {
	case pg_query.ConstrType_CONSTR_NOTNULL:
		col.Nullable = false
	case pg_query.ConstrType_CONSTR_NULL:
		col.Nullable = true
	case pg_query.ConstrType_CONSTR_DEFAULT:
		if c.RawExpr != nil {
			e := convertExpr(c.RawExpr)
			col.Default = &e
		}
	case pg_query.ConstrType_CONSTR_PRIMARY:
		col.InlinePrimaryKey = true
		col.Nullable = false
	case pg_query.ConstrType_CONSTR_UNIQUE:
		col.InlineUnique = true
	case pg_query.ConstrType_CONSTR_CHECK:
		if c.RawExpr != nil {
			e := convertExpr(c.RawExpr)
			col.InlineCheck = &e
		}
	case pg_query.ConstrType_CONSTR_FOREIGN:
		fk := &ir.TableConstraint{
			Kind:         ir.ConstraintForeignKey,
			Name:         c.Conname,
			InlineSource: true,
		}
		if c.Pktable != nil {
			fk.RefTable = qualifiedNameFromRangeVar(c.Pktable)
		}
		fk.RefColumns = stringListFromNodes(c.PkAttrs)
		fk.OnDelete = referentialAction(c.FkDelAction)
		fk.OnUpdate = referentialAction(c.FkUpdAction)
		fk.Deferrable = c.Deferrable
		fk.Match = fkMatchType(c.FkMatchtype)
		col.InlineReferences = fk
	case pg_query.ConstrType_CONSTR_IDENTITY:
		col.IdentityGenerated = true
	}
}

func stringListFromNodes(nodes []*pg_query.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if n == nil || n.Node == nil {
			continue
		}
		if s, ok := n.Node.(*pg_query.Node_String_); ok {
			out = append(out, s.String_.Sval)
		}
	}
	return out
}

func referentialAction(code string) ir.ReferentialAction {
	if code == "" {
		return ir.ActionUnspecified
	}
	switch code[0] {
	case 'a':
		return ir.ActionNoAction
	case 'r':
		return ir.ActionRestrict
	case 'c':
		return ir.ActionCascade
	case 'n':
		return ir.ActionSetNull
	case 'd':
		return ir.ActionSetDefault
	default:
		return ir.ActionUnspecified
	}
}

// fkMatchType decodes pg_query's one-letter FK match type; simple match
// (the default) comes back empty.
func fkMatchType(code string) string {
	switch code {
	case "f":
		return "FULL"
	case "p":
		return "PARTIAL"
	default:
		return ""
	}
}

func normalizeTableConstraint(c *pg_query.Constraint) (ir.TableConstraint, bool) {
	tc := ir.TableConstraint{Name: c.Conname, Deferrable: c.Deferrable}

	switch c.Contype {
	case pg_query.ConstrType_CONSTR_PRIMARY:
		tc.Kind = ir.ConstraintPrimaryKey
		tc.Columns = stringListFromNodes(c.Keys)
	case pg_query.ConstrType_CONSTR_UNIQUE:
		tc.Kind = ir.ConstraintUnique
		tc.Columns = stringListFromNodes(c.Keys)
	case pg_query.ConstrType_CONSTR_CHECK:
		tc.Kind = ir.ConstraintCheck
		if c.RawExpr != nil {
			e := convertExpr(c.RawExpr)
			tc.Check = &e
		}
	case pg_query.ConstrType_CONSTR_FOREIGN:
		tc.Kind = ir.ConstraintForeignKey
		tc.Columns = stringListFromNodes(c.FkAttrs)
		if c.Pktable != nil {
			tc.RefTable = qualifiedNameFromRangeVar(c.Pktable)
		}
		tc.RefColumns = stringListFromNodes(c.PkAttrs)
		tc.OnDelete = referentialAction(c.FkDelAction)
		tc.OnUpdate = referentialAction(c.FkUpdAction)
		tc.Match = fkMatchType(c.FkMatchtype)
	default:
		return ir.TableConstraint{}, false
	}

	return tc, true
}

func normalizeAlterTable(stmt *pg_query.AlterTableStmt, opts Options, res *NormalizeResult) {
	if stmt.Relation == nil {
		return
	}
	if !schemaAllowed(rangeVarSchema(stmt.Relation), opts) {
		return
	}
	target := qualifiedNameFromRangeVar(stmt.Relation)

	for _, cmdNode := range stmt.Cmds {
		if cmdNode == nil || cmdNode.Node == nil {
			continue
		}
		alterCmd, ok := cmdNode.Node.(*pg_query.Node_AlterTableCmd)
		if !ok || alterCmd.AlterTableCmd == nil {
			continue
		}
		if alterCmd.AlterTableCmd.Subtype != pg_query.AlterTableType_AT_AddConstraint {
			// Other ALTER TABLE subcommands (ADD COLUMN, ALTER COLUMN
			// TYPE, ...) are outside this module's scope: the core
			// transpiles CREATE TABLE-shaped schemas, not arbitrary
			// migration scripts.
			continue
		}
		constraint := alterCmd.AlterTableCmd.GetDef().GetConstraint()
		if constraint == nil {
			continue
		}
		if tc, ok := normalizeTableConstraint(constraint); ok {
			res.PendingConstraints = append(res.PendingConstraints, PendingConstraint{Table: target, Constraint: tc})
		}
	}
}

func normalizeCreateIndex(stmt *pg_query.IndexStmt, opts Options) (ir.Index, bool) {
	if stmt.Relation == nil {
		return ir.Index{}, false
	}
	if !schemaAllowed(rangeVarSchema(stmt.Relation), opts) {
		return ir.Index{}, false
	}

	idx := ir.Index{
		Name:   ir.NewIdentifierFromAST(stmt.Idxname),
		Table:  qualifiedNameFromRangeVar(stmt.Relation),
		Unique: stmt.Unique,
		Method: strings.ToLower(stmt.AccessMethod),
	}

	for _, p := range stmt.IndexParams {
		if p == nil || p.Node == nil {
			continue
		}
		elem, ok := p.Node.(*pg_query.Node_IndexElem)
		if !ok || elem.IndexElem == nil {
			continue
		}
		ie := elem.IndexElem
		if ie.Name != "" {
			idx.Keys = append(idx.Keys, ir.IndexKey{Kind: ir.IndexKeyColumn, Column: ir.NewIdentifierFromAST(ie.Name)})
			continue
		}
		if ie.Expr != nil {
			idx.Keys = append(idx.Keys, ir.IndexKey{Kind: ir.IndexKeyExpr, Expr: convertExpr(ie.Expr)})
		}
	}

	if stmt.WhereClause != nil {
		w := convertExpr(stmt.WhereClause)
		idx.Where = &w
	}

	return idx, true
}

func normalizeCreateSequence(stmt *pg_query.CreateSeqStmt, opts Options) (ir.Sequence, bool) {
	if stmt.Sequence == nil {
		return ir.Sequence{}, false
	}
	if !schemaAllowed(rangeVarSchema(stmt.Sequence), opts) {
		return ir.Sequence{}, false
	}
	return ir.Sequence{Name: qualifiedNameFromRangeVar(stmt.Sequence)}, true
}

func normalizeCreateEnum(stmt *pg_query.CreateEnumStmt, opts Options) (ir.EnumDef, bool) {
	qn, schema := qualifiedNameFromTypeNameNodes(stmt.TypeName)
	if !schemaAllowed(schema, opts) {
		return ir.EnumDef{}, false
	}
	def := ir.EnumDef{Name: qn}
	for _, v := range stmt.Vals {
		if v == nil || v.Node == nil {
			continue
		}
		if c, ok := v.Node.(*pg_query.Node_String_); ok {
			def.Values = append(def.Values, c.String_.Sval)
		}
	}
	return def, true
}

func normalizeCreateDomain(stmt *pg_query.CreateDomainStmt, opts Options) (ir.DomainDef, bool) {
	qn, schema := qualifiedNameFromTypeNameNodes(stmt.Domainname)
	if !schemaAllowed(schema, opts) {
		return ir.DomainDef{}, false
	}
	def := ir.DomainDef{Name: qn}
	if stmt.TypeName != nil {
		def.Base = convertTypeName(stmt.TypeName)
	}
	for _, c := range stmt.Constraints {
		if c == nil || c.Node == nil {
			continue
		}
		cons, ok := c.Node.(*pg_query.Node_Constraint)
		if !ok {
			continue
		}
		switch cons.Constraint.Contype {
		case pg_query.ConstrType_CONSTR_NOTNULL:
			def.NotNull = true
		case pg_query.ConstrType_CONSTR_CHECK:
			if cons.Constraint.RawExpr != nil {
				e := convertExpr(cons.Constraint.RawExpr)
				def.Check = &e
			}
		}
	}
	return def, true
}

// qualifiedNameFromTypeNameNodes handles CreateEnumStmt.TypeName and
// CreateDomainStmt.Domainname, both []*pg_query.Node of Node_String_ parts
// (optionally schema-qualified: [schema, name]).
func qualifiedNameFromTypeNameNodes(nodes []*pg_query.Node) (ir.QualifiedName, string) {
	parts := stringListFromNodes(nodes)
	if len(parts) == 2 {
		return ir.QualifiedName{
			HasSchema: true,
			Schema:    ir.NewIdentifierFromAST(parts[0]),
			Name:      ir.NewIdentifierFromAST(parts[1]),
		}, parts[0]
	}
	if len(parts) == 1 {
		return ir.QualifiedName{Name: ir.NewIdentifierFromAST(parts[0])}, ""
	}
	return ir.QualifiedName{}, ""
}
