package pipeline

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pg2lite/pg2lite/internal/ir"
)

// convertTypeName turns a pg_query TypeName node into a TypeRef. This is
// purely structural; no lossiness decision is made here. That happens in
// Map Types (maptypes.go).
func convertTypeName(tn *pg_query.TypeName) ir.TypeRef {
	if tn == nil {
		return ir.TypeRef{Kind: ir.TypeUnknownKind}
	}

	var parts []string
	for _, n := range tn.Names {
		if s, ok := n.Node.(*pg_query.Node_String_); ok {
			parts = append(parts, s.String_.Sval)
		}
	}
	if len(parts) > 1 && parts[0] == "pg_catalog" {
		parts = parts[1:]
	}
	name := strings.ToLower(strings.Join(parts, "."))

	var tr ir.TypeRef
	switch name {
	case "int2", "smallint":
		tr = ir.TypeRef{Kind: ir.TypeSmallInt}
	case "int4", "int", "integer":
		tr = ir.TypeRef{Kind: ir.TypeInteger}
	case "int8", "bigint":
		tr = ir.TypeRef{Kind: ir.TypeBigInt}
	case "numeric", "decimal":
		tr = ir.TypeRef{Kind: ir.TypeNumeric}
		if p, s, ok := typmods2(tn); ok {
			tr.Precision, tr.Scale, tr.HasPrecision, tr.HasScale = p, s, true, true
		} else if p, ok := typmod1(tn); ok {
			tr.Precision, tr.HasPrecision = p, true
		}
	case "float4", "real":
		tr = ir.TypeRef{Kind: ir.TypeReal}
	case "float8", "double precision", "double":
		tr = ir.TypeRef{Kind: ir.TypeDoublePrecision}
	case "text":
		tr = ir.TypeRef{Kind: ir.TypeText}
	case "varchar", "character varying":
		tr = ir.TypeRef{Kind: ir.TypeVarchar}
		if n, ok := typmod1(tn); ok {
			tr.Length, tr.HasLength = n, true
		}
	case "bpchar", "char", "character":
		tr = ir.TypeRef{Kind: ir.TypeChar}
		if n, ok := typmod1(tn); ok {
			tr.Length, tr.HasLength = n, true
		}
	case "bool", "boolean":
		tr = ir.TypeRef{Kind: ir.TypeBoolean}
	case "date":
		tr = ir.TypeRef{Kind: ir.TypeDate}
	case "time":
		tr = ir.TypeRef{Kind: ir.TypeTime}
	case "timetz", "time with time zone":
		tr = ir.TypeRef{Kind: ir.TypeTimeTZ}
	case "timestamp":
		tr = ir.TypeRef{Kind: ir.TypeTimestamp}
	case "timestamptz", "timestamp with time zone":
		tr = ir.TypeRef{Kind: ir.TypeTimestampTZ}
	case "uuid":
		tr = ir.TypeRef{Kind: ir.TypeUUID}
	case "json":
		tr = ir.TypeRef{Kind: ir.TypeJSON}
	case "jsonb":
		tr = ir.TypeRef{Kind: ir.TypeJSONB}
	case "bytea":
		tr = ir.TypeRef{Kind: ir.TypeBytea}
	case "serial", "serial4":
		tr = ir.TypeRef{Kind: ir.TypeSerial}
	case "serial8", "bigserial":
		tr = ir.TypeRef{Kind: ir.TypeBigSerial}
	case "smallserial", "serial2":
		// Not separately modeled; treat like a small-width serial: SERIAL_TO_ROWID
		// applies the same as serial/bigserial (see Plan step 2).
		tr = ir.TypeRef{Kind: ir.TypeSerial}
	default:
		if len(parts) > 0 {
			// User-defined type reference (enum or domain); the Ref's
			// schema/name are resolved against the symbol tables by Plan.
			ref := ir.QualifiedName{}
			if len(parts) == 2 {
				ref.HasSchema = true
				ref.Schema = ir.NewIdentifierFromAST(parts[0])
				ref.Name = ir.NewIdentifierFromAST(parts[1])
			} else {
				ref.Name = ir.NewIdentifierFromAST(parts[0])
			}
			tr = ir.TypeRef{Kind: ir.TypeUserDefined, Ref: ref, Name: name}
		} else {
			tr = ir.TypeRef{Kind: ir.TypeUnknownName, Name: name}
		}
	}

	if len(tn.ArrayBounds) > 0 {
		elem := tr
		tr = ir.TypeRef{Kind: ir.TypeArray, Elem: &elem}
	}

	return tr
}

// typmod1 extracts a single integer type modifier, e.g. varchar(255).
func typmod1(tn *pg_query.TypeName) (int, bool) {
	if len(tn.Typmods) == 0 {
		return 0, false
	}
	if c, ok := tn.Typmods[0].Node.(*pg_query.Node_AConst); ok {
		if iv := c.AConst.GetIval(); iv != nil {
			return int(iv.Ival), true
		}
	}
	return 0, false
}

// typmods2 extracts a (precision, scale) pair, e.g. numeric(10,2).
func typmods2(tn *pg_query.TypeName) (int, int, bool) {
	if len(tn.Typmods) < 2 {
		return 0, 0, false
	}
	p, ok1 := intConst(tn.Typmods[0])
	s, ok2 := intConst(tn.Typmods[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return p, s, true
}

func intConst(n *pg_query.Node) (int, bool) {
	if c, ok := n.Node.(*pg_query.Node_AConst); ok {
		if iv := c.AConst.GetIval(); iv != nil {
			return int(iv.Ival), true
		}
	}
	return 0, false
}

// typeRefSourceName reconstructs a readable source spelling for an
// unresolved TypeRef, for warning messages.
func typeRefSourceName(tr ir.TypeRef) string {
	switch tr.Kind {
	case ir.TypeUnknownName:
		return tr.Name
	case ir.TypeUserDefined:
		return tr.Name
	default:
		return ""
	}
}

// convertExpr converts a pg_query expression node into an ir.Expr. This is
// the single shared structural conversion used by every DEFAULT, CHECK,
// partial-index WHERE, and expression-index key in the source script; the
// four rewrite modes operate on the resulting ir.Expr, not on pg_query
// nodes.
func convertExpr(node *pg_query.Node) ir.Expr {
	if node == nil || node.Node == nil {
		return ir.Expr{Kind: ir.ExprNull}
	}

	switch n := node.Node.(type) {
	case *pg_query.Node_AConst:
		return convertAConst(n.AConst)

	case *pg_query.Node_ColumnRef:
		return ir.Expr{Kind: ir.ExprColumnRef, ColumnName: columnRefName(n.ColumnRef)}

	case *pg_query.Node_FuncCall:
		return convertFuncCall(n.FuncCall)

	case *pg_query.Node_TypeCast:
		inner := convertExpr(n.TypeCast.Arg)
		if n.TypeCast.TypeName != nil {
			return ir.Expr{Kind: ir.ExprCast, Operand: &inner, CastTarget: convertTypeName(n.TypeCast.TypeName)}
		}
		return inner

	case *pg_query.Node_AExpr:
		return convertAExpr(n.AExpr)

	case *pg_query.Node_BoolExpr:
		return convertBoolExpr(n.BoolExpr)

	case *pg_query.Node_NullTest:
		arg := convertExpr(n.NullTest.Arg)
		if n.NullTest.Nulltesttype == pg_query.NullTestType_IS_NULL {
			return ir.Expr{Kind: ir.ExprIsNull, Operand: &arg}
		}
		return ir.Expr{Kind: ir.ExprIsNotNull, Operand: &arg}

	case *pg_query.Node_SqlvalueFunction:
		return convertSQLValueFunction(n.SqlvalueFunction)

	case *pg_query.Node_AArrayExpr:
		args := make([]ir.Expr, 0, len(n.AArrayExpr.Elements))
		for _, e := range n.AArrayExpr.Elements {
			args = append(args, convertExpr(e))
		}
		return ir.Expr{Kind: ir.ExprFuncCall, FuncName: "ARRAY", Args: args}

	case *pg_query.Node_List:
		args := make([]ir.Expr, 0, len(n.List.Items))
		for _, e := range n.List.Items {
			args = append(args, convertExpr(e))
		}
		return ir.Expr{Kind: ir.ExprIn, InList: args}

	default:
		// Subqueries, window functions, and anything else this module
		// doesn't structurally recognize become a deliberately
		// unrecognizable shape so the rewrite's pass-through whitelist
		// rejects it uniformly instead of special-casing every AST node
		// kind this module chooses not to support.
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
}

func convertAConst(c *pg_query.A_Const) ir.Expr {
	if c == nil || c.Isnull {
		return ir.Expr{Kind: ir.ExprNull}
	}
	if iv := c.GetIval(); iv != nil {
		return ir.Expr{Kind: ir.ExprIntLit, IntVal: int64(iv.Ival)}
	}
	if fv := c.GetFval(); fv != nil {
		return ir.Expr{Kind: ir.ExprFloatLit, FloatVal: fv.Fval}
	}
	if sv := c.GetSval(); sv != nil {
		return ir.Expr{Kind: ir.ExprStringLit, StringVal: sv.Sval}
	}
	if bv := c.GetBoolval(); bv != nil {
		return ir.Expr{Kind: ir.ExprBoolLit, BoolVal: bv.Boolval}
	}
	return ir.Expr{Kind: ir.ExprNull}
}

func columnRefName(cr *pg_query.ColumnRef) string {
	if cr == nil {
		return ""
	}
	var last string
	for _, f := range cr.Fields {
		if f == nil || f.Node == nil {
			continue
		}
		if s, ok := f.Node.(*pg_query.Node_String_); ok {
			last = s.String_.Sval
		}
	}
	return last
}

func funcCallName(fc *pg_query.FuncCall) string {
	if fc == nil || len(fc.Funcname) == 0 {
		return ""
	}
	last := fc.Funcname[len(fc.Funcname)-1]
	if s, ok := last.Node.(*pg_query.Node_String_); ok {
		return s.String_.Sval
	}
	return ""
}

func convertFuncCall(fc *pg_query.FuncCall) ir.Expr {
	name := strings.ToLower(funcCallName(fc))

	// nextval('seq'::regclass) participates in SERIAL/IDENTITY resolution
	// and must be distinguished from a generic call.
	if name == "nextval" && len(fc.Args) == 1 {
		if seq, ok := sequenceNameFromArg(fc.Args[0]); ok {
			return ir.Expr{Kind: ir.ExprNextVal, Sequence: seq}
		}
	}

	args := make([]ir.Expr, 0, len(fc.Args))
	for _, a := range fc.Args {
		args = append(args, convertExpr(a))
	}

	// now() is treated identically to the bare CURRENT_TIMESTAMP token by
	// Map Expressions; both arrive here as ExprFuncCall("now"/
	// "current_timestamp") and are normalized there, not here, to keep
	// the rewrite rule in one place.
	return ir.Expr{Kind: ir.ExprFuncCall, FuncName: name, Args: args}
}

// sequenceNameFromArg extracts a sequence QualifiedName from nextval's
// single argument, which PostgreSQL always represents as a string literal
// (optionally cast to regclass): 'schema.seq'::regclass or 'seq'::regclass.
func sequenceNameFromArg(node *pg_query.Node) (ir.QualifiedName, bool) {
	lit := node
	if tc, ok := node.Node.(*pg_query.Node_TypeCast); ok {
		lit = tc.TypeCast.Arg
	}
	c, ok := lit.Node.(*pg_query.Node_AConst)
	if !ok {
		return ir.QualifiedName{}, false
	}
	sv := c.AConst.GetSval()
	if sv == nil {
		return ir.QualifiedName{}, false
	}
	parts := strings.SplitN(sv.Sval, ".", 2)
	if len(parts) == 2 {
		return ir.QualifiedName{
			HasSchema: true,
			Schema:    ir.NewIdentifierFromAST(parts[0]),
			Name:      ir.NewIdentifierFromAST(parts[1]),
		}, true
	}
	return ir.QualifiedName{Name: ir.NewIdentifierFromAST(parts[0])}, true
}

func convertAExpr(a *pg_query.A_Expr) ir.Expr {
	if a == nil {
		return ir.Expr{Kind: ir.ExprUnsupported}
	}

	opName := aExprOpName(a)

	switch a.Kind {
	case pg_query.A_Expr_Kind_AEXPR_OP:
		left := convertExpr(a.Lexpr)
		right := convertExpr(a.Rexpr)
		return ir.Expr{Kind: ir.ExprBinaryOp, BinOp: binaryOperator(opName), Left: &left, Right: &right}

	case pg_query.A_Expr_Kind_AEXPR_OP_ANY:
		// a = ANY(ARRAY[...]) is rewritten to IN(...) by Map Expressions;
		// surface it
		// structurally here as a binary "=" whose right side is the raw
		// array/list expression, and let mapexpr.go do the rewrite so the
		// "non-literal array member" escape hatch lives in one place.
		left := convertExpr(a.Lexpr)
		right := convertExpr(a.Rexpr)
		return ir.Expr{Kind: ir.ExprBinaryOp, BinOp: binaryOperator(opName), Left: &left, Right: &right}

	case pg_query.A_Expr_Kind_AEXPR_IN:
		left := convertExpr(a.Lexpr)
		list := convertExpr(a.Rexpr)
		return ir.Expr{Kind: ir.ExprIn, Left: &left, InList: list.InList}

	case pg_query.A_Expr_Kind_AEXPR_BETWEEN, pg_query.A_Expr_Kind_AEXPR_NOT_BETWEEN:
		left := convertExpr(a.Lexpr)
		bounds := convertExpr(a.Rexpr)
		if len(bounds.InList) == 2 {
			return ir.Expr{Kind: ir.ExprBetween, Left: &left, BetweenLow: &bounds.InList[0], BetweenHigh: &bounds.InList[1]}
		}
		return ir.Expr{Kind: ir.ExprUnsupported}

	default:
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
}

func aExprOpName(a *pg_query.A_Expr) string {
	if len(a.Name) == 0 {
		return ""
	}
	if s, ok := a.Name[0].Node.(*pg_query.Node_String_); ok {
		return s.String_.Sval
	}
	return ""
}

func binaryOperator(op string) ir.BinaryOperator {
	switch op {
	case "=":
		return ir.OpEq
	case "<>", "!=":
		return ir.OpNeq
	case "<":
		return ir.OpLt
	case "<=":
		return ir.OpLte
	case ">":
		return ir.OpGt
	case ">=":
		return ir.OpGte
	case "+":
		return ir.OpAdd
	case "-":
		return ir.OpSub
	case "*":
		return ir.OpMul
	case "/":
		return ir.OpDiv
	case "||":
		return ir.OpConcat
	default:
		return ir.OpUnknown
	}
}

func convertBoolExpr(b *pg_query.BoolExpr) ir.Expr {
	if b == nil {
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
	switch b.Boolop {
	case pg_query.BoolExprType_AND_EXPR:
		return foldBinary(ir.OpAnd, b.Args)
	case pg_query.BoolExprType_OR_EXPR:
		return foldBinary(ir.OpOr, b.Args)
	case pg_query.BoolExprType_NOT_EXPR:
		if len(b.Args) != 1 {
			return ir.Expr{Kind: ir.ExprUnsupported}
		}
		operand := convertExpr(b.Args[0])
		return ir.Expr{Kind: ir.ExprUnaryOp, UnaryOp: "NOT", Operand: &operand}
	default:
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
}

// foldBinary turns PostgreSQL's n-ary AND/OR arg list into a left-leaning
// binary tree, which is what the rest of this module's Expr shape expects.
func foldBinary(op ir.BinaryOperator, args []*pg_query.Node) ir.Expr {
	if len(args) == 0 {
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
	acc := convertExpr(args[0])
	for _, a := range args[1:] {
		right := convertExpr(a)
		left := acc
		acc = ir.Expr{Kind: ir.ExprBinaryOp, BinOp: op, Left: &left, Right: &right}
	}
	return acc
}

func convertSQLValueFunction(f *pg_query.SQLValueFunction) ir.Expr {
	if f == nil {
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
	switch f.Op {
	case pg_query.SQLValueFunctionOp_SVFOP_CURRENT_DATE:
		return ir.Expr{Kind: ir.ExprFuncCall, FuncName: "current_date"}
	case pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIME, pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIME_N:
		return ir.Expr{Kind: ir.ExprFuncCall, FuncName: "current_time"}
	case pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIMESTAMP, pg_query.SQLValueFunctionOp_SVFOP_CURRENT_TIMESTAMP_N:
		return ir.Expr{Kind: ir.ExprFuncCall, FuncName: "current_timestamp"}
	default:
		// CURRENT_USER, CURRENT_ROLE, SESSION_USER, etc. have no SQLite
		// equivalent and are left unsupported.
		return ir.Expr{Kind: ir.ExprUnsupported}
	}
}
