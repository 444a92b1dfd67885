package pipeline

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseError wraps a rejection from the external SQL parser.
type ParseError struct {
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s", e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Parse hands input to github.com/pganalyze/pg_query_go/v6, which wraps
// libpg_query: the same parser PostgreSQL 16 itself builds from.
func Parse(inputText string) (*pg_query.ParseResult, error) {
	tree, err := pg_query.Parse(inputText)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	return tree, nil
}
