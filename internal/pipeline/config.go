package pipeline

// Options is the conversion options record: schema filter mode,
// foreign-key gating, and strict mode. Default Schema is "public".
type Options struct {
	// Schema is a single schema name to keep. Ignored when AllSchemas is
	// true. Empty means the default "public".
	Schema string

	// AllSchemas corresponds to the "all" sentinel for Schema: every
	// schema in the input is kept, with cross-schema collisions resolved
	// by Resolve Names.
	AllSchemas bool

	// EnableForeignKeys gates FK emission everywhere: constraint mapping,
	// table ordering, and the PRAGMA line.
	EnableForeignKeys bool

	// Strict promotes Lossy-or-higher diagnostics to a terminal error.
	Strict bool

	// EnumCheckEmulation turns on the optional CHECK (col IN (...))
	// emitted for enum-typed columns. Off by default: turning it on
	// unconditionally would silently add constraints narrower than what
	// PostgreSQL enforced but wider than plain TEXT, which is a policy
	// decision left to the caller.
	EnumCheckEmulation bool

	// Autoincrement controls whether a rowid-alias PRIMARY KEY is
	// rendered with AUTOINCREMENT. Opt-in; SQLite's plain rowid alias
	// auto-increments on insert without it.
	Autoincrement bool
}

// EffectiveSchema returns the literal schema name to filter on when
// AllSchemas is false.
func (o Options) EffectiveSchema() string {
	if o.Schema == "" {
		return "public"
	}
	return o.Schema
}
