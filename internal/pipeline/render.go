package pipeline

import (
	"strconv"
	"strings"

	"github.com/pg2lite/pg2lite/internal/ir"
	"github.com/pg2lite/pg2lite/internal/keyword"
)

// Render produces deterministic textual SQLite DDL output, byte-identical
// for identical (model, options).
func Render(tables []ir.Table, indexes []ir.Index, opts Options) string {
	var sb strings.Builder

	if opts.EnableForeignKeys {
		sb.WriteString("PRAGMA foreign_keys = ON;\n\n")
	}

	var stmts []string
	for _, t := range tables {
		stmts = append(stmts, renderTable(t, opts))
	}
	for _, idx := range indexes {
		stmts = append(stmts, renderIndex(idx))
	}

	sb.WriteString(strings.Join(stmts, "\n\n"))
	sb.WriteString("\n")

	return sb.String()
}

func renderTable(t ir.Table, opts Options) string {
	var sb strings.Builder
	sb.WriteString("CREATE TABLE ")
	sb.WriteString(quoteIdent(t.Name.Name))
	sb.WriteString(" (\n")

	var lines []string
	for _, c := range t.Columns {
		lines = append(lines, "  "+renderColumn(c, opts))
	}

	ordered := orderConstraints(t.Constraints)
	for _, tc := range ordered {
		lines = append(lines, "  "+renderTableConstraint(tc))
	}

	sb.WriteString(strings.Join(lines, ",\n"))
	sb.WriteString("\n);")

	return sb.String()
}

// orderConstraints imposes the fixed emission order: PRIMARY KEY ->
// UNIQUE -> CHECK -> FOREIGN KEY.
func orderConstraints(cs []ir.TableConstraint) []ir.TableConstraint {
	rank := func(k ir.ConstraintKind) int {
		switch k {
		case ir.ConstraintPrimaryKey:
			return 0
		case ir.ConstraintUnique:
			return 1
		case ir.ConstraintCheck:
			return 2
		case ir.ConstraintForeignKey:
			return 3
		default:
			return 4
		}
	}
	out := append([]ir.TableConstraint(nil), cs...)
	// Stable partition by rank, preserving relative source order within
	// each rank.
	buckets := make([][]ir.TableConstraint, 4)
	for _, c := range out {
		r := rank(c.Kind)
		buckets[r] = append(buckets[r], c)
	}
	result := make([]ir.TableConstraint, 0, len(out))
	for _, b := range buckets {
		result = append(result, b...)
	}
	return result
}

func renderColumn(c ir.Column, opts Options) string {
	var sb strings.Builder
	sb.WriteString(quoteIdent(c.Name))
	sb.WriteString(" ")
	sb.WriteString(string(c.Affinity))

	if c.RowidAlias {
		sb.WriteString(" PRIMARY KEY")
		if opts.Autoincrement {
			sb.WriteString(" AUTOINCREMENT")
		}
	} else if !c.Nullable {
		sb.WriteString(" NOT NULL")
	}

	if c.Default != nil {
		sb.WriteString(" DEFAULT ")
		sb.WriteString(renderDefaultExpr(*c.Default))
	}

	if c.InlineUnique {
		sb.WriteString(" UNIQUE")
	}

	if opts.EnableForeignKeys && c.InlineReferences != nil {
		sb.WriteString(" ")
		sb.WriteString(renderInlineReferences(*c.InlineReferences))
	}

	return sb.String()
}

// renderDefaultExpr wraps function-like CURRENT_* tokens in parentheses:
// DEFAULT (CURRENT_TIMESTAMP).
func renderDefaultExpr(e ir.Expr) string {
	text := renderExpr(e)
	if e.Kind == ir.ExprFuncCall && len(e.Args) == 0 {
		switch e.FuncName {
		case "current_timestamp", "current_date", "current_time":
			return "(" + strings.ToUpper(text) + ")"
		}
	}
	return text
}

func renderInlineReferences(fk ir.TableConstraint) string {
	var sb strings.Builder
	sb.WriteString("REFERENCES ")
	sb.WriteString(quoteIdent(fk.RefTable.Name))
	sb.WriteString("(")
	sb.WriteString(quoteIdentRaw(fk.RefColumns[0]))
	sb.WriteString(")")
	if fk.OnDelete != "" && fk.OnDelete != ir.ActionUnspecified {
		sb.WriteString(" ON DELETE ")
		sb.WriteString(string(fk.OnDelete))
	}
	if fk.OnUpdate != "" && fk.OnUpdate != ir.ActionUnspecified {
		sb.WriteString(" ON UPDATE ")
		sb.WriteString(string(fk.OnUpdate))
	}
	return sb.String()
}

func renderTableConstraint(tc ir.TableConstraint) string {
	switch tc.Kind {
	case ir.ConstraintPrimaryKey:
		return "PRIMARY KEY (" + renderColumnList(tc.Columns) + ")"
	case ir.ConstraintUnique:
		return "UNIQUE (" + renderColumnList(tc.Columns) + ")"
	case ir.ConstraintCheck:
		return "CHECK (" + renderExpr(*tc.Check) + ")"
	case ir.ConstraintForeignKey:
		var sb strings.Builder
		sb.WriteString("FOREIGN KEY (")
		sb.WriteString(renderColumnList(tc.Columns))
		sb.WriteString(") REFERENCES ")
		sb.WriteString(quoteIdent(tc.RefTable.Name))
		sb.WriteString("(")
		sb.WriteString(renderColumnList(tc.RefColumns))
		sb.WriteString(")")
		if tc.OnDelete != "" && tc.OnDelete != ir.ActionUnspecified {
			sb.WriteString(" ON DELETE ")
			sb.WriteString(string(tc.OnDelete))
		}
		if tc.OnUpdate != "" && tc.OnUpdate != ir.ActionUnspecified {
			sb.WriteString(" ON UPDATE ")
			sb.WriteString(string(tc.OnUpdate))
		}
		return sb.String()
	default:
		return ""
	}
}

func renderColumnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentRaw(c)
	}
	return strings.Join(quoted, ", ")
}

func renderIndex(idx ir.Index) string {
	var sb strings.Builder
	sb.WriteString("CREATE ")
	if idx.Unique {
		sb.WriteString("UNIQUE ")
	}
	sb.WriteString("INDEX ")
	sb.WriteString(quoteIdent(idx.Name))
	sb.WriteString(" ON ")
	sb.WriteString(quoteIdent(idx.Table.Name))
	sb.WriteString(" (")

	keys := make([]string, len(idx.Keys))
	for i, k := range idx.Keys {
		if k.Kind == ir.IndexKeyColumn {
			keys[i] = quoteIdent(k.Column)
		} else {
			keys[i] = renderExpr(k.Expr)
		}
	}
	sb.WriteString(strings.Join(keys, ", "))
	sb.WriteString(")")

	if idx.Where != nil {
		sb.WriteString(" WHERE ")
		sb.WriteString(renderExpr(*idx.Where))
	}
	sb.WriteString(";")

	return sb.String()
}

// renderExpr renders an already-mapped ir.Expr as SQLite expression text.
func renderExpr(e ir.Expr) string {
	switch e.Kind {
	case ir.ExprNull:
		return "NULL"
	case ir.ExprIntLit:
		return strconv.FormatInt(e.IntVal, 10)
	case ir.ExprFloatLit:
		return e.FloatVal
	case ir.ExprStringLit:
		return "'" + strings.ReplaceAll(e.StringVal, "'", "''") + "'"
	case ir.ExprBoolLit:
		if e.BoolVal {
			return "1"
		}
		return "0"
	case ir.ExprColumnRef:
		return quoteIdentRaw(e.ColumnName)
	case ir.ExprUnaryOp:
		return e.UnaryOp + " " + renderOperand(*e.Operand)
	case ir.ExprBinaryOp:
		return renderBinaryOperand(*e.Left, e.BinOp, false) + " " + string(e.BinOp) + " " + renderBinaryOperand(*e.Right, e.BinOp, true)
	case ir.ExprFuncCall:
		args := make([]string, len(e.Args))
		for i, a := range e.Args {
			args[i] = renderExpr(a)
		}
		if len(e.Args) == 0 && isBareSQLFunc(e.FuncName) {
			return strings.ToUpper(e.FuncName)
		}
		return strings.ToUpper(e.FuncName) + "(" + strings.Join(args, ", ") + ")"
	case ir.ExprIn:
		items := make([]string, len(e.InList))
		for i, a := range e.InList {
			items[i] = renderExpr(a)
		}
		return renderOperand(*e.Left) + " IN (" + strings.Join(items, ", ") + ")"
	case ir.ExprBetween:
		return renderOperand(*e.Left) + " BETWEEN " + renderOperand(*e.BetweenLow) + " AND " + renderOperand(*e.BetweenHigh)
	case ir.ExprIsNull:
		return renderOperand(*e.Operand) + " IS NULL"
	case ir.ExprIsNotNull:
		return renderOperand(*e.Operand) + " IS NOT NULL"
	default:
		return ""
	}
}

// renderOperand parenthesizes a binary subexpression appearing where SQL
// grammar would otherwise rebind it (NOT x, x IS NULL, x IN, BETWEEN
// bounds).
func renderOperand(e ir.Expr) string {
	if e.Kind == ir.ExprBinaryOp {
		return "(" + renderExpr(e) + ")"
	}
	return renderExpr(e)
}

// renderBinaryOperand parenthesizes a nested binary expression when its
// operator binds looser than the parent's, or on the right side at equal
// precedence (subtraction and division are left-associative).
func renderBinaryOperand(e ir.Expr, parent ir.BinaryOperator, right bool) string {
	if e.Kind == ir.ExprBinaryOp {
		cp, pp := binOpPrecedence(e.BinOp), binOpPrecedence(parent)
		if cp < pp || (cp == pp && right) {
			return "(" + renderExpr(e) + ")"
		}
	}
	return renderExpr(e)
}

func binOpPrecedence(op ir.BinaryOperator) int {
	switch op {
	case ir.OpOr:
		return 1
	case ir.OpAnd:
		return 2
	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte:
		return 3
	case ir.OpAdd, ir.OpSub, ir.OpConcat:
		return 4
	case ir.OpMul, ir.OpDiv:
		return 5
	default:
		return 0
	}
}

func isBareSQLFunc(name string) bool {
	switch name {
	case "current_timestamp", "current_date", "current_time":
		return true
	default:
		return false
	}
}

// quoteIdent applies the quoting rule to an already-folded Identifier.
func quoteIdent(id ir.Identifier) string {
	return quoteIdentRaw(id.Normalized)
}

// quoteIdentRaw applies the quoting rule directly to a name string: a
// double-quoted, doubled-internal-quote form when ir.NeedsQuoting reports
// true (empty, a leading digit, or any character other than a lowercase
// ASCII letter, digit, or underscore) or the name is a SQLite reserved
// keyword; otherwise the bare name.
func quoteIdentRaw(name string) string {
	if ir.NeedsQuoting(name) || keyword.IsReserved(strings.ToLower(name)) {
		return "\"" + strings.ReplaceAll(name, "\"", "\"\"") + "\""
	}
	return name
}
