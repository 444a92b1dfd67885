package pipeline

import (
	"fmt"

	"github.com/pg2lite/pg2lite/internal/ir"
)

// InvalidDdlError reports structurally impossible input, e.g. a PRIMARY
// KEY over a column its table never declares. PostgreSQL's parser accepts
// such a script (the check happens at execution time there), so this is
// caught after Plan, before the mapping stages assume a well-formed model.
type InvalidDdlError struct {
	Object string
	Reason string
}

func (e *InvalidDdlError) Error() string {
	return fmt.Sprintf("invalid DDL at %s: %s", e.Object, e.Reason)
}

// InternalError reports a contract violation inside the pipeline itself.
// It is never triggerable by input; seeing one is a bug in this package.
type InternalError struct {
	Reason string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Reason
}

// validateModel rejects constraints that name columns their table does not
// declare.
func validateModel(model *ir.SchemaModel) error {
	for _, t := range model.Tables {
		declared := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			declared[c.Name.Normalized] = true
		}
		for _, tc := range t.Constraints {
			for _, col := range tc.Columns {
				if !declared[col] {
					return &InvalidDdlError{
						Object: t.Name.Key(),
						Reason: fmt.Sprintf("constraint references undeclared column %q", col),
					}
				}
			}
		}
	}
	return nil
}
