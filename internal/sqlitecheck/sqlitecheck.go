// Package sqlitecheck optionally executes rendered SQLite DDL text against
// an in-memory modernc.org/sqlite database, to confirm a stock SQLite
// engine accepts it. It never touches a file on disk or any user database;
// it is the CLI's own best-effort self-check on its own output (the
// `--verify` flag).
package sqlitecheck

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// Verify opens a throwaway in-memory SQLite database, executes every
// statement in sqliteText, and returns the first error SQLite itself
// raises, wrapped for readability. A nil return means SQLite accepted
// every statement.
func Verify(ctx context.Context, sqliteText string) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open in-memory sqlite database: %w", err)
	}
	defer db.Close()

	for _, stmt := range splitStatements(sqliteText) {
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite rejected statement %q: %w", firstLine(stmt), err)
		}
	}

	return nil
}

// splitStatements splits rendered DDL text on statement-terminating
// semicolons. Render's output never embeds a semicolon inside a string
// literal or identifier that this module emits (identifiers are a closed
// character set or quoted as a whole, and string literals in this
// module's accepted expression subset carry no semicolons in practice for
// DDL defaults/checks), so a naive split is sufficient here, unlike a
// general-purpose SQL splitter.
func splitStatements(text string) []string {
	var out []string
	for _, part := range strings.Split(text, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed+";")
		}
	}
	return out
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
