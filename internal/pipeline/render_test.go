package pipeline

import (
	"strings"
	"testing"

	"github.com/pg2lite/pg2lite/internal/ir"
)

func TestQuoteIdentRaw(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"users", "users"},
		{"order_items", "order_items"},
		{"Users", `"Users"`},
		{"2fast", `"2fast"`},
		{"order-items", `"order-items"`},
		{"select", `"select"`}, // SQLite reserved keyword
		{"table", `"table"`},
		{"email", "email"},
	}
	for _, tt := range tests {
		if got := quoteIdentRaw(tt.name); got != tt.want {
			t.Errorf("quoteIdentRaw(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestQuoteIdentRawDoublesInternalQuotes(t *testing.T) {
	got := quoteIdentRaw(`we"ird`)
	want := `"we""ird"`
	if got != want {
		t.Errorf("quoteIdentRaw = %q, want %q", got, want)
	}
}

func TestOrderConstraintsFixedSequence(t *testing.T) {
	cs := []ir.TableConstraint{
		{Kind: ir.ConstraintForeignKey, Columns: []string{"user_id"}},
		{Kind: ir.ConstraintCheck, Check: &ir.Expr{Kind: ir.ExprNull}},
		{Kind: ir.ConstraintUnique, Columns: []string{"email"}},
		{Kind: ir.ConstraintPrimaryKey, Columns: []string{"id"}},
	}
	ordered := orderConstraints(cs)
	wantKinds := []ir.ConstraintKind{
		ir.ConstraintPrimaryKey, ir.ConstraintUnique, ir.ConstraintCheck, ir.ConstraintForeignKey,
	}
	for i, k := range wantKinds {
		if ordered[i].Kind != k {
			t.Errorf("ordered[%d].Kind = %v, want %v", i, ordered[i].Kind, k)
		}
	}
}

func TestOrderConstraintsPreservesRelativeOrderWithinKind(t *testing.T) {
	cs := []ir.TableConstraint{
		{Kind: ir.ConstraintUnique, Columns: []string{"a"}},
		{Kind: ir.ConstraintUnique, Columns: []string{"b"}},
	}
	ordered := orderConstraints(cs)
	if ordered[0].Columns[0] != "a" || ordered[1].Columns[0] != "b" {
		t.Errorf("relative source order not preserved: %+v", ordered)
	}
}

func TestRenderDefaultExprParenthesizesBareFunctionDefaults(t *testing.T) {
	tests := []struct {
		name string
		expr ir.Expr
		want string
	}{
		{"current_timestamp", ir.Expr{Kind: ir.ExprFuncCall, FuncName: "current_timestamp"}, "(CURRENT_TIMESTAMP)"},
		{"current_date", ir.Expr{Kind: ir.ExprFuncCall, FuncName: "current_date"}, "(CURRENT_DATE)"},
		{"int literal", ir.Expr{Kind: ir.ExprIntLit, IntVal: 1}, "1"},
		{"func with args", ir.Expr{Kind: ir.ExprFuncCall, FuncName: "lower", Args: []ir.Expr{{Kind: ir.ExprStringLit, StringVal: "x"}}}, "LOWER('x')"},
	}
	for _, tt := range tests {
		if got := renderDefaultExpr(tt.expr); got != tt.want {
			t.Errorf("renderDefaultExpr(%s) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRenderExprStringLitEscapesQuotes(t *testing.T) {
	e := ir.Expr{Kind: ir.ExprStringLit, StringVal: "it's"}
	if got, want := renderExpr(e), "'it''s'"; got != want {
		t.Errorf("renderExpr = %q, want %q", got, want)
	}
}

func TestRenderExprBoolLitAsInteger(t *testing.T) {
	if got := renderExpr(ir.Expr{Kind: ir.ExprBoolLit, BoolVal: true}); got != "1" {
		t.Errorf("renderExpr(true) = %q, want \"1\"", got)
	}
	if got := renderExpr(ir.Expr{Kind: ir.ExprBoolLit, BoolVal: false}); got != "0" {
		t.Errorf("renderExpr(false) = %q, want \"0\"", got)
	}
}

func TestRenderIndexWithWhereClause(t *testing.T) {
	idx := ir.Index{
		Name:  ir.NewIdentifier("idx_active_users", false),
		Table: qname("users"),
		Keys:  []ir.IndexKey{{Kind: ir.IndexKeyColumn, Column: ir.NewIdentifier("email", false)}},
		Where: &ir.Expr{Kind: ir.ExprIsNotNull, Operand: &ir.Expr{Kind: ir.ExprColumnRef, ColumnName: "email"}},
	}
	got := renderIndex(idx)
	want := `CREATE INDEX idx_active_users ON users (email) WHERE email IS NOT NULL;`
	if got != want {
		t.Errorf("renderIndex = %q, want %q", got, want)
	}
}

func TestRenderIndexUnique(t *testing.T) {
	idx := ir.Index{
		Name:   ir.NewIdentifier("idx_u", false),
		Table:  qname("users"),
		Keys:   []ir.IndexKey{{Kind: ir.IndexKeyColumn, Column: ir.NewIdentifier("email", false)}},
		Unique: true,
	}
	got := renderIndex(idx)
	if !strings.HasPrefix(got, "CREATE UNIQUE INDEX ") {
		t.Errorf("renderIndex = %q, want UNIQUE prefix", got)
	}
}

func TestRenderTableConstraintForeignKeyWithActions(t *testing.T) {
	tc := ir.TableConstraint{
		Kind:       ir.ConstraintForeignKey,
		Columns:    []string{"user_id"},
		RefTable:   qname("users"),
		RefColumns: []string{"id"},
		OnDelete:   ir.ActionCascade,
		OnUpdate:   ir.ActionSetNull,
	}
	got := renderTableConstraint(tc)
	want := "FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE ON UPDATE SET NULL"
	if got != want {
		t.Errorf("renderTableConstraint = %q, want %q", got, want)
	}
}
