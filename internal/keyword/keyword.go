// Package keyword holds the closed set of SQLite reserved keywords used by
// the renderer's quoting decision: a package-level map populated once,
// looked up by lowercase spelling.
package keyword

var reserved map[string]bool

func init() {
	reserved = map[string]bool{}
	for _, w := range []string{
		"abort", "action", "add", "after", "all", "alter", "always",
		"analyze", "and", "as", "asc", "attach", "autoincrement", "before",
		"begin", "between", "by", "cascade", "case", "cast", "check",
		"collate", "column", "commit", "conflict", "constraint", "create",
		"cross", "current", "current_date", "current_time",
		"current_timestamp", "database", "default", "deferrable",
		"deferred", "delete", "desc", "detach", "distinct", "do", "drop",
		"each", "else", "end", "escape", "except", "exclusive", "exists",
		"explain", "fail", "filter", "first", "following", "for", "foreign",
		"from", "full", "generated", "glob", "group", "groups", "having",
		"if", "ignore", "immediate", "in", "index", "indexed", "initially",
		"inner", "insert", "instead", "intersect", "into", "is", "isnull",
		"join", "key", "last", "left", "like", "limit", "match",
		"materialized", "natural", "no", "not", "nothing", "notnull",
		"null", "of", "offset", "on", "or", "order", "others", "outer",
		"over", "partition", "plan", "pragma", "preceding", "primary",
		"query", "raise", "range", "recursive", "references", "regexp",
		"reindex", "release", "rename", "replace", "restrict", "returning",
		"right", "rollback", "row", "rows", "savepoint", "select", "set",
		"table", "temp", "temporary", "then", "ties", "to", "transaction",
		"trigger", "unbounded", "union", "unique", "update", "using",
		"vacuum", "values", "view", "virtual", "when", "where", "window",
		"with", "without",
	} {
		reserved[w] = true
	}
}

// IsReserved reports whether the lowercase spelling of name is a SQLite
// reserved keyword.
func IsReserved(normalized string) bool {
	return reserved[normalized]
}
