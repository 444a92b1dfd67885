package pipeline

import (
	"strings"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// ExprMode selects which of the four expression contexts governs what
// happens when a rewrite hits something unsupported.
type ExprMode int

const (
	ModeDefaultExpr ExprMode = iota
	ModeCheckExpr
	ModeIndexWhere
	ModeIndexExpr
)

// MapDefaults rewrites column defaults: every surviving column
// DEFAULT (Plan already cleared the ones it consumed into a rowid-alias or
// dropped as SERIAL_NOT_PRIMARY_KEY/IDENTITY_CLAUSE_DROPPED) is rewritten
// through the same mode-indexed transformer CheckExpr/IndexWhere/IndexExpr
// use; one that doesn't survive is dropped with DEFAULT_UNSUPPORTED (or
// UUID_DEFAULT_REMOVED).
func MapDefaults(model *ir.SchemaModel) {
	for i := range model.Tables {
		table := &model.Tables[i]
		for j := range table.Columns {
			col := &table.Columns[j]
			if col.Default == nil {
				continue
			}
			object := table.Name.Key() + "." + col.Name.Normalized
			out, ok := MapExpr(model, *col.Default, ModeDefaultExpr, object)
			if !ok {
				col.Default = nil
				continue
			}
			col.Default = &out
		}
	}
}

// passthroughFuncs is the accepted SQLite-compatible function whitelist.
var passthroughFuncs = map[string]bool{
	"lower": true, "upper": true, "length": true, "abs": true,
	"coalesce": true, "nullif": true,
}

// MapExpr rewrites e into the accepted SQLite-compatible subset and
// returns the result plus whether the expression survived (false means:
// drop the default/check/index per the mode-specific outcome, and a
// warning of the mode's code has already been appended to model under
// object).
func MapExpr(model *ir.SchemaModel, e ir.Expr, mode ExprMode, object string) (ir.Expr, bool) {
	out, ok := rewriteExpr(e)
	if !ok {
		emitUnsupported(model, mode, object, e)
		return ir.Expr{}, false
	}
	if containsCast(e) {
		model.AddWarning(diagnostic.New(diagnostic.CodeCastRemoved, "explicit cast has no effect under SQLite's dynamic typing; removed", object, ir.SourceSpan{}))
	}
	if mode == ModeDefaultExpr && containsBoolLit(e) {
		model.AddWarning(diagnostic.New(diagnostic.CodeBooleanAsInteger, "boolean default is stored as 0/1 integer", object, ir.SourceSpan{}))
	}
	return out, true
}

// containsBoolLit reports whether e (before rewriting) contains a boolean
// literal anywhere in its tree, for DefaultExpr mode's BOOLEAN_AS_INTEGER
// notice.
func containsBoolLit(e ir.Expr) bool {
	if e.Kind == ir.ExprBoolLit {
		return true
	}
	if e.Operand != nil && containsBoolLit(*e.Operand) {
		return true
	}
	if e.Left != nil && containsBoolLit(*e.Left) {
		return true
	}
	if e.Right != nil && containsBoolLit(*e.Right) {
		return true
	}
	if e.BetweenLow != nil && containsBoolLit(*e.BetweenLow) {
		return true
	}
	if e.BetweenHigh != nil && containsBoolLit(*e.BetweenHigh) {
		return true
	}
	for _, a := range e.Args {
		if containsBoolLit(a) {
			return true
		}
	}
	for _, a := range e.InList {
		if containsBoolLit(a) {
			return true
		}
	}
	return false
}

// containsCast reports whether e (before rewriting) contains a Cast(e, t)
// node anywhere in its tree, for the CAST_REMOVED notice.
func containsCast(e ir.Expr) bool {
	if e.Kind == ir.ExprCast {
		return true
	}
	if e.Operand != nil && containsCast(*e.Operand) {
		return true
	}
	if e.Left != nil && containsCast(*e.Left) {
		return true
	}
	if e.Right != nil && containsCast(*e.Right) {
		return true
	}
	if e.BetweenLow != nil && containsCast(*e.BetweenLow) {
		return true
	}
	if e.BetweenHigh != nil && containsCast(*e.BetweenHigh) {
		return true
	}
	for _, a := range e.Args {
		if containsCast(a) {
			return true
		}
	}
	for _, a := range e.InList {
		if containsCast(a) {
			return true
		}
	}
	return false
}

func emitUnsupported(model *ir.SchemaModel, mode ExprMode, object string, original ir.Expr) {
	switch mode {
	case ModeDefaultExpr:
		code := diagnostic.CodeDefaultUnsupported
		msg := "default expression is not in the accepted SQLite-compatible subset; dropped"
		if isUUIDGenFunc(original) {
			code = diagnostic.CodeUUIDDefaultRemoved
			msg = "uuid_generate_v* default has no SQLite equivalent; dropped"
		} else if original.Kind == ir.ExprNextVal {
			code = diagnostic.CodeNextvalRemoved
			msg = "nextval() default references a sequence SQLite cannot provide; dropped"
		}
		model.AddWarning(diagnostic.New(code, msg, object, ir.SourceSpan{}))
	case ModeCheckExpr:
		model.AddWarning(diagnostic.New(diagnostic.CodeCheckExpressionUnsup, "CHECK expression is not in the accepted SQLite-compatible subset; constraint dropped", object, ir.SourceSpan{}))
	case ModeIndexWhere:
		model.AddWarning(diagnostic.New(diagnostic.CodePartialIndexUnsup, "partial index WHERE clause is not in the accepted SQLite-compatible subset; index dropped", object, ir.SourceSpan{}))
	case ModeIndexExpr:
		model.AddWarning(diagnostic.New(diagnostic.CodeExpressionIndexUnsup, "expression index key is not in the accepted SQLite-compatible subset; index dropped", object, ir.SourceSpan{}))
	}
}

// isUUIDGenFunc reports whether e is (or wraps, via cast-removal) a call to
// a function named uuid_generate_v*, for the UUID_DEFAULT_REMOVED
// distinction in DefaultExpr mode.
func isUUIDGenFunc(e ir.Expr) bool {
	cur := e
	for cur.Kind == ir.ExprCast && cur.Operand != nil {
		cur = *cur.Operand
	}
	return cur.Kind == ir.ExprFuncCall && strings.HasPrefix(cur.FuncName, "uuid_generate_v")
}

// rewriteExpr applies the uniform rewrite rules shared by all four modes;
// parenthesization of function-like defaults is re-derived structurally by
// the renderer.
func rewriteExpr(e ir.Expr) (ir.Expr, bool) {
	switch e.Kind {
	case ir.ExprNull, ir.ExprIntLit, ir.ExprFloatLit, ir.ExprStringLit:
		return e, true

	case ir.ExprBoolLit:
		// true/false become 1/0 in every mode; SQLite has no boolean
		// literal before 3.23 and stores 0/1 regardless.
		v := int64(0)
		if e.BoolVal {
			v = 1
		}
		return ir.Expr{Kind: ir.ExprIntLit, IntVal: v}, true

	case ir.ExprColumnRef:
		return e, true

	case ir.ExprCast:
		// Cast(e, t) is replaced by e; CAST_REMOVED is emitted once per
		// surviving top-level expression by MapExpr, not here, since a
		// single tree can contain nested casts.
		if e.Operand == nil {
			return ir.Expr{Kind: ir.ExprUnsupported}, false
		}
		return rewriteExpr(*e.Operand)

	case ir.ExprBinaryOp:
		if e.Left == nil || e.Right == nil {
			return ir.Expr{}, false
		}
		// `a = ANY(ARRAY[lit1, lit2, ...])` arrives from astconv.go as a
		// BinaryOp "=" whose right side is the ARRAY[...] literal
		// (astconv.go's Node_AArrayExpr case); rewrite it to `a IN (...)`.
		// A non-literal array member forces "unsupported".
		if e.BinOp == ir.OpEq && e.Right.Kind == ir.ExprFuncCall && e.Right.FuncName == "ARRAY" {
			return rewriteAnyArrayEquality(e)
		}
		if !isAcceptedBinOp(e.BinOp) {
			return ir.Expr{}, false
		}
		left, ok := rewriteExpr(*e.Left)
		if !ok {
			return ir.Expr{}, false
		}
		right, ok := rewriteExpr(*e.Right)
		if !ok {
			return ir.Expr{}, false
		}
		return ir.Expr{Kind: ir.ExprBinaryOp, BinOp: e.BinOp, Left: &left, Right: &right}, true

	case ir.ExprUnaryOp:
		if e.UnaryOp != "NOT" || e.Operand == nil {
			return ir.Expr{}, false
		}
		operand, ok := rewriteExpr(*e.Operand)
		if !ok {
			return ir.Expr{}, false
		}
		return ir.Expr{Kind: ir.ExprUnaryOp, UnaryOp: "NOT", Operand: &operand}, true

	case ir.ExprIsNull, ir.ExprIsNotNull:
		if e.Operand == nil {
			return ir.Expr{}, false
		}
		operand, ok := rewriteExpr(*e.Operand)
		if !ok {
			return ir.Expr{}, false
		}
		return ir.Expr{Kind: e.Kind, Operand: &operand}, true

	case ir.ExprIn:
		items := make([]ir.Expr, 0, len(e.InList))
		for _, item := range e.InList {
			r, ok := rewriteExpr(item)
			if !ok {
				return ir.Expr{}, false
			}
			items = append(items, r)
		}
		out := ir.Expr{Kind: ir.ExprIn, InList: items}
		if e.Left != nil {
			left, ok := rewriteExpr(*e.Left)
			if !ok {
				return ir.Expr{}, false
			}
			out.Left = &left
		}
		return out, true

	case ir.ExprBetween:
		if e.Left == nil || e.BetweenLow == nil || e.BetweenHigh == nil {
			return ir.Expr{}, false
		}
		left, ok := rewriteExpr(*e.Left)
		if !ok {
			return ir.Expr{}, false
		}
		low, ok := rewriteExpr(*e.BetweenLow)
		if !ok {
			return ir.Expr{}, false
		}
		high, ok := rewriteExpr(*e.BetweenHigh)
		if !ok {
			return ir.Expr{}, false
		}
		return ir.Expr{Kind: ir.ExprBetween, Left: &left, BetweenLow: &low, BetweenHigh: &high}, true

	case ir.ExprFuncCall:
		return rewriteFuncCall(e)

	case ir.ExprNextVal:
		// Plan clears any default it consumes via the rowid-alias path
		// before this stage runs, so a NextVal reaching here targets a
		// sequence SQLite cannot provide. Dropped in every mode.
		return ir.Expr{}, false

	default:
		return ir.Expr{}, false
	}
}

// rewriteAnyArrayEquality implements the `a = ANY(ARRAY[...])` -> `a IN
// (...)` rewrite. Every array member must itself be a literal (column refs,
// function calls, etc. inside the array force "unsupported").
func rewriteAnyArrayEquality(e ir.Expr) (ir.Expr, bool) {
	left, ok := rewriteExpr(*e.Left)
	if !ok {
		return ir.Expr{}, false
	}
	items := make([]ir.Expr, 0, len(e.Right.Args))
	for _, a := range e.Right.Args {
		// rewriteExpr already unwraps a top-level Cast(e, t) to e, so an
		// array member written as 'client'::text arrives here the same way
		// a bare 'client' would; only the result's kind, not the source
		// member's kind, decides whether it is literal enough to survive.
		r, ok := rewriteExpr(a)
		if !ok {
			return ir.Expr{}, false
		}
		switch r.Kind {
		case ir.ExprIntLit, ir.ExprFloatLit, ir.ExprStringLit, ir.ExprBoolLit, ir.ExprNull:
			items = append(items, r)
		default:
			return ir.Expr{}, false
		}
	}
	return ir.Expr{Kind: ir.ExprIn, Left: &left, InList: items}, true
}

func isAcceptedBinOp(op ir.BinaryOperator) bool {
	switch op {
	case ir.OpEq, ir.OpNeq, ir.OpLt, ir.OpLte, ir.OpGt, ir.OpGte,
		ir.OpAnd, ir.OpOr, ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpConcat:
		return true
	default:
		return false
	}
}

func rewriteFuncCall(e ir.Expr) (ir.Expr, bool) {
	name := strings.ToLower(e.FuncName)

	// now() and the bare CURRENT_TIMESTAMP token (already normalized to the
	// same ExprFuncCall shape by astconv.go) both become CURRENT_TIMESTAMP.
	if name == "now" || name == "current_timestamp" {
		return ir.Expr{Kind: ir.ExprFuncCall, FuncName: "current_timestamp"}, true
	}
	if name == "current_date" || name == "current_time" {
		return ir.Expr{Kind: ir.ExprFuncCall, FuncName: name}, true
	}

	if name == "array" {
		// a = ANY(ARRAY[...]) is handled by the caller rewriting the
		// enclosing BinaryOp into ExprIn before reaching here (see
		// rewriteAnyArrayEquality); a bare ARRAY[...] literal reaching this
		// point (not inside an ANY()) has no SQLite equivalent.
		return ir.Expr{}, false
	}

	if !passthroughFuncs[name] {
		return ir.Expr{}, false
	}

	args := make([]ir.Expr, 0, len(e.Args))
	for _, a := range e.Args {
		r, ok := rewriteExpr(a)
		if !ok {
			return ir.Expr{}, false
		}
		args = append(args, r)
	}
	return ir.Expr{Kind: ir.ExprFuncCall, FuncName: name, Args: args}, true
}
