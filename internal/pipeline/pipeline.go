// Package pipeline implements the transpiler's pure, single-threaded,
// multi-stage conversion from a parsed PostgreSQL DDL script to rendered
// SQLite DDL text: Normalize, Plan, Map Types, Map Expressions, Map
// Constraints, Map Indexes, Resolve Names, Order, Render.
package pipeline

import (
	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// Result is what a successful conversion produces: the rendered SQLite DDL
// text and every warning accumulated along the way.
type Result struct {
	SQLiteText string
	Warnings   []ir.Warning
}

// Convert runs every stage of the pipeline in order over inputText and
// returns the rendered SQLite DDL text plus the accumulated, sorted
// warning list. Mapping stages never abort on a single feature loss; they
// attach warnings and continue. The abortive outcomes are a parse failure,
// structurally impossible DDL, and, in strict mode, a StrictViolation once
// every stage has had a chance to contribute its warnings. A parse failure
// returns a nil Result; on any later abortive outcome the warnings gathered
// up to that point still come back on the Result.
func Convert(inputText string, opts Options) (*Result, error) {
	tree, err := Parse(inputText)
	if err != nil {
		return nil, err
	}

	nr := Normalize(tree, opts)
	model := Plan(nr, opts)

	if err := validateModel(model); err != nil {
		return &Result{Warnings: model.Warnings}, err
	}

	if err := MapTypes(model); err != nil {
		return &Result{Warnings: model.Warnings}, err
	}
	MapDefaults(model)

	existsBeforeResolve := TableExistsSet(model, opts)
	MapConstraints(model, opts, existsBeforeResolve)

	model.Indexes = MapIndexes(model)

	ResolveNames(model, opts)

	tables, indexes := Order(model, opts)

	sqliteText := Render(tables, indexes, opts)

	diagnostic.Sort(model.Warnings)

	if err := diagnostic.CheckStrict(opts.Strict, model.Warnings); err != nil {
		return &Result{Warnings: model.Warnings}, err
	}

	return &Result{SQLiteText: sqliteText, Warnings: model.Warnings}, nil
}
