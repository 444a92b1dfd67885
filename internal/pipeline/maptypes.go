package pipeline

import (
	"fmt"

	"github.com/pg2lite/pg2lite/internal/diagnostic"
	"github.com/pg2lite/pg2lite/internal/ir"
)

// MapTypes translates every column's TypeRef to a SqliteAffinity
// using the closed mapping table, emitting the listed warning exactly once
// per affected column for every non-identity row.
func MapTypes(model *ir.SchemaModel) error {
	for i := range model.Tables {
		table := &model.Tables[i]
		for j := range table.Columns {
			if err := mapColumnType(model, table, &table.Columns[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func mapColumnType(model *ir.SchemaModel, table *ir.Table, col *ir.Column) error {
	object := table.Name.Key() + "." + col.Name.Normalized
	warn := func(code, msg string) {
		model.AddWarning(diagnostic.New(code, msg, object, ir.SourceSpan{}))
	}

	switch col.TypeRef.Kind {
	case ir.TypeSmallInt:
		col.Affinity = ir.AffinityInteger
		warn(diagnostic.CodeTypeWidthIgnored, "smallint width is not enforced by SQLite's INTEGER affinity")

	case ir.TypeInteger, ir.TypeBigInt:
		col.Affinity = ir.AffinityInteger

	case ir.TypeNumeric:
		col.Affinity = ir.AffinityNumeric
		warn(diagnostic.CodeNumericPrecisionLoss, "numeric precision/scale is not enforced by SQLite's NUMERIC affinity")

	case ir.TypeReal, ir.TypeDoublePrecision:
		col.Affinity = ir.AffinityReal

	case ir.TypeText:
		col.Affinity = ir.AffinityText
		// Plan already rewrote enum-ref columns to TypeText
		// and attached EnumValues; that's the only way EnumValues is
		// non-empty here, so this is the enum case from the mapping table,
		// not plain text.
		if len(col.EnumValues) > 0 {
			warn(diagnostic.CodeEnumAsText, "enum value is stored as unconstrained text")
		}

	case ir.TypeVarchar:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeVarcharLengthIgnored, "varchar length is not enforced by SQLite's TEXT affinity")

	case ir.TypeChar:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeCharLengthIgnored, "char length is not enforced by SQLite's TEXT affinity")

	case ir.TypeBoolean:
		col.Affinity = ir.AffinityInteger
		warn(diagnostic.CodeBooleanAsInteger, "boolean is stored as 0/1 integer")

	case ir.TypeDate, ir.TypeTime, ir.TypeTimestamp:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeDatetimeTextStorage, "date/time value is stored as ISO-8601 text, not validated")

	case ir.TypeTimeTZ, ir.TypeTimestampTZ:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeDatetimeTextStorage, "date/time value is stored as ISO-8601 text, not validated")
		warn(diagnostic.CodeTimezoneLoss, "time zone is not preserved by SQLite storage")

	case ir.TypeUUID:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeUUIDAsText, "uuid is stored as text, not validated")

	case ir.TypeJSON:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeJSONAsText, "json is stored as text, not validated")

	case ir.TypeJSONB:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeJSONBLoss, "jsonb's binary canonical form and indexing are not preserved")

	case ir.TypeBytea:
		col.Affinity = ir.AffinityBlob

	case ir.TypeArray:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeArrayLossy, "array values are stored as opaque text, element types and bounds are not enforced")

	case ir.TypeUserDefined:
		// By the time MapTypes runs, Plan has already flattened every
		// domain/enum reference onto the column's TypeRef.
		// A TypeUserDefined surviving to here means the reference didn't
		// resolve against either symbol table.
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeUnknownTypeAsText, fmt.Sprintf("unresolved user-defined type %q stored as text", typeRefSourceName(col.TypeRef)))

	case ir.TypeUnknownName:
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeUnknownTypeAsText, fmt.Sprintf("unrecognized type %q stored as text", typeRefSourceName(col.TypeRef)))

	case ir.TypeUnknownKind:
		// A column whose AST carried no usable type name at all.
		col.Affinity = ir.AffinityText
		warn(diagnostic.CodeUnknownTypeAsText, "column type could not be determined; stored as text")

	case ir.TypeSerial, ir.TypeBigSerial:
		// Plan always rewrites these to TypeInteger before
		// MapTypes runs; this case exists only so the switch is exhaustive
		// against ir.TypeRefKind's full set, and a column that somehow
		// reaches here (e.g. a future caller skipping Plan) still maps
		// sensibly instead of silently falling to affinity "".
		col.Affinity = ir.AffinityInteger

	default:
		return &InternalError{Reason: fmt.Sprintf("unhandled type kind %d on %s", col.TypeRef.Kind, object)}
	}

	col.HasAffinity = true
	return nil
}
