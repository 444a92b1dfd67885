package pipeline

import (
	"testing"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

func qname(name string) ir.QualifiedName {
	return ir.QualifiedName{Name: ir.NewIdentifier(name, false)}
}

func fkTable(name string, refs ...string) ir.Table {
	t := ir.Table{Name: qname(name)}
	for _, r := range refs {
		t.Constraints = append(t.Constraints, ir.TableConstraint{
			Kind:     ir.ConstraintForeignKey,
			RefTable: qname(r),
		})
	}
	return t
}

func tableNames(tables []ir.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name.Key()
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// TestOrderLexicographicWhenFKDisabled: with FKs disabled, table order is
// purely lexicographic regardless of reference shape.
func TestOrderLexicographicWhenFKDisabled(t *testing.T) {
	model := ir.NewSchemaModel()
	model.Tables = []ir.Table{fkTable("zebra"), fkTable("apple"), fkTable("mango")}

	tables, _ := Order(model, Options{})
	got := tableNames(tables)
	want := []string{"apple", "mango", "zebra"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tables = %v, want %v", got, want)
			break
		}
	}
}

// TestOrderReferencedTableFirst: a referenced table is emitted before
// every table that references it.
func TestOrderReferencedTableFirst(t *testing.T) {
	model := ir.NewSchemaModel()
	model.Tables = []ir.Table{
		fkTable("orders", "users"),
		fkTable("users"),
		fkTable("line_items", "orders", "products"),
		fkTable("products"),
	}

	tables, _ := Order(model, Options{EnableForeignKeys: true})
	names := tableNames(tables)

	if indexOf(names, "users") >= indexOf(names, "orders") {
		t.Errorf("users must precede orders: %v", names)
	}
	if indexOf(names, "orders") >= indexOf(names, "line_items") {
		t.Errorf("orders must precede line_items: %v", names)
	}
	if indexOf(names, "products") >= indexOf(names, "line_items") {
		t.Errorf("products must precede line_items: %v", names)
	}
	if len(model.Warnings) != 0 {
		t.Errorf("expected no warnings for an acyclic graph, got %+v", model.Warnings)
	}
}

// TestOrderCycleFallsBackToLexicographic: a
// reference cycle is unresolvable by topological sort, so the whole table
// list falls back to lexicographic order with FK_CYCLE_FALLBACK recorded.
func TestOrderCycleFallsBackToLexicographic(t *testing.T) {
	model := ir.NewSchemaModel()
	model.Tables = []ir.Table{
		fkTable("b", "a"),
		fkTable("a", "b"),
	}

	tables, _ := Order(model, Options{EnableForeignKeys: true})
	got := tableNames(tables)
	want := []string{"a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tables = %v, want lexicographic fallback %v", got, want)
			break
		}
	}

	found := false
	for _, w := range model.Warnings {
		if w.Code == diagnostic.CodeFKCycleFallback {
			found = true
		}
	}
	if !found {
		t.Errorf("expected FK_CYCLE_FALLBACK warning, got %+v", model.Warnings)
	}
}

// TestOrderIgnoresFKReferencingMissingTable: a FK whose
// referenced table isn't present in the model (already dropped upstream,
// or never existed) must not be treated as a graph edge that blocks the
// referencing table from sorting freely.
func TestOrderIgnoresFKReferencingMissingTable(t *testing.T) {
	model := ir.NewSchemaModel()
	model.Tables = []ir.Table{fkTable("orders", "ghost_users")}

	tables, _ := Order(model, Options{EnableForeignKeys: true})
	if len(tables) != 1 || tables[0].Name.Key() != "orders" {
		t.Errorf("expected orders alone to survive ordering, got %v", tableNames(tables))
	}
}

// TestOrderIndexesByTableThenName: indexes sort by (table, index) name.
func TestOrderIndexesByTableThenName(t *testing.T) {
	model := ir.NewSchemaModel()
	model.Tables = []ir.Table{fkTable("orders"), fkTable("users")}
	model.Indexes = []ir.Index{
		{Name: ir.NewIdentifier("idx_z", false), Table: qname("users")},
		{Name: ir.NewIdentifier("idx_a", false), Table: qname("orders")},
		{Name: ir.NewIdentifier("idx_b", false), Table: qname("orders")},
	}

	_, indexes := Order(model, Options{})
	if len(indexes) != 3 {
		t.Fatalf("len(indexes) = %d, want 3", len(indexes))
	}
	wantOrder := []string{"orders.idx_a", "orders.idx_b", "users.idx_z"}
	for i, idx := range indexes {
		got := idx.Table.Key() + "." + idx.Name.Normalized
		if got != wantOrder[i] {
			t.Errorf("indexes[%d] = %q, want %q", i, got, wantOrder[i])
		}
	}
}
