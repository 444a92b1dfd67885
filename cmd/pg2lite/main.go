// Command pg2lite is the thin CLI front-end around the pg2lite transpiler
// core: flag parsing and file I/O only. All conversion semantics live in
// internal/pipeline.
package main

import "github.com/pg2lite/pg2lite/internal/cli"

func main() {
	cli.Execute()
}
