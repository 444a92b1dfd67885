// Package diagnostic owns the closed set of warning codes this module
// emits and the strict-mode policy.
//
// Diagnostics are collected append-only as stages run (ir.Warning values
// live on the ir.SchemaModel) and are only interpreted here, at the end of
// the pipeline: sorted for stable reporting, and — in strict mode —
// escalated into a single terminal error.
package diagnostic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pg2lite/pg2lite/internal/ir"
)

// The closed set of stable warning codes. Every lossy or dropped mapping in
// the pipeline emits one of these; nothing else is ever emitted.
const (
	CodeTypeWidthIgnored          = "TYPE_WIDTH_IGNORED"
	CodeVarcharLengthIgnored      = "VARCHAR_LENGTH_IGNORED"
	CodeCharLengthIgnored         = "CHAR_LENGTH_IGNORED"
	CodeNumericPrecisionLoss      = "NUMERIC_PRECISION_LOSS"
	CodeBooleanAsInteger          = "BOOLEAN_AS_INTEGER"
	CodeDatetimeTextStorage       = "DATETIME_TEXT_STORAGE"
	CodeTimezoneLoss              = "TIMEZONE_LOSS"
	CodeUUIDAsText                = "UUID_AS_TEXT"
	CodeJSONAsText                = "JSON_AS_TEXT"
	CodeJSONBLoss                 = "JSONB_LOSS"
	CodeEnumAsText                = "ENUM_AS_TEXT"
	CodeArrayLossy                = "ARRAY_LOSSY"
	CodeDomainFlattened           = "DOMAIN_FLATTENED"
	CodeSerialToRowid             = "SERIAL_TO_ROWID"
	CodeSerialNotPrimaryKey       = "SERIAL_NOT_PRIMARY_KEY"
	CodeNextvalRemoved            = "NEXTVAL_REMOVED"
	CodeUUIDDefaultRemoved        = "UUID_DEFAULT_REMOVED"
	CodeCastRemoved               = "CAST_REMOVED"
	CodeDefaultUnsupported        = "DEFAULT_UNSUPPORTED"
	CodeCheckExpressionUnsup      = "CHECK_EXPRESSION_UNSUPPORTED"
	CodePartialIndexUnsup         = "PARTIAL_INDEX_UNSUPPORTED"
	CodeExpressionIndexUnsup      = "EXPRESSION_INDEX_UNSUPPORTED"
	CodeIndexMethodIgnored        = "INDEX_METHOD_IGNORED"
	CodeAlterTargetMissing        = "ALTER_TARGET_MISSING"
	CodeFKTargetMissing           = "FK_TARGET_MISSING"
	CodeDeferrableSemanticsChange = "DEFERRABLE_SEMANTICS_CHANGED"
	CodeFKMatchIgnored            = "FK_MATCH_IGNORED"
	CodeSchemaPrefixed            = "SCHEMA_PREFIXED"
	CodeSequenceIgnored           = "SEQUENCE_IGNORED"
	CodeConstraintNameDropped     = "CONSTRAINT_NAME_DROPPED"
	CodeParseSkipped              = "PARSE_SKIPPED"
	CodeFKCycleFallback           = "FK_CYCLE_FALLBACK"
	CodeUnknownTypeAsText         = "UNKNOWN_TYPE_AS_TEXT"

	// GENERATED ALWAYS/BY DEFAULT AS IDENTITY handling.
	CodeIdentityToRowid       = "IDENTITY_TO_ROWID"
	CodeIdentityClauseDropped = "IDENTITY_CLAUSE_DROPPED"
)

// severityOf is the default severity for each code. Map Types/Expressions/
// etc. may construct a Warning with an explicit severity instead (e.g. a
// dropped FK target is Unsupported, not Lossy), but this table documents
// the steady-state mapping used by the pipeline.
var severityOf = map[string]ir.Severity{
	CodeTypeWidthIgnored:          ir.SeverityLossy,
	CodeVarcharLengthIgnored:      ir.SeverityLossy,
	CodeCharLengthIgnored:         ir.SeverityLossy,
	CodeNumericPrecisionLoss:      ir.SeverityLossy,
	CodeBooleanAsInteger:          ir.SeverityLossy,
	CodeDatetimeTextStorage:       ir.SeverityLossy,
	CodeTimezoneLoss:              ir.SeverityLossy,
	CodeUUIDAsText:                ir.SeverityLossy,
	CodeJSONAsText:                ir.SeverityLossy,
	CodeJSONBLoss:                 ir.SeverityLossy,
	CodeEnumAsText:                ir.SeverityLossy,
	CodeArrayLossy:                ir.SeverityLossy,
	CodeDomainFlattened:           ir.SeverityInfo,
	CodeSerialToRowid:             ir.SeverityInfo,
	CodeSerialNotPrimaryKey:       ir.SeverityLossy,
	CodeNextvalRemoved:            ir.SeverityLossy,
	CodeUUIDDefaultRemoved:        ir.SeverityLossy,
	CodeCastRemoved:               ir.SeverityInfo,
	CodeDefaultUnsupported:        ir.SeverityUnsupported,
	CodeCheckExpressionUnsup:      ir.SeverityUnsupported,
	CodePartialIndexUnsup:         ir.SeverityUnsupported,
	CodeExpressionIndexUnsup:      ir.SeverityUnsupported,
	CodeIndexMethodIgnored:        ir.SeverityLossy,
	CodeAlterTargetMissing:        ir.SeverityUnsupported,
	CodeFKTargetMissing:           ir.SeverityUnsupported,
	CodeDeferrableSemanticsChange: ir.SeverityLossy,
	CodeFKMatchIgnored:            ir.SeverityLossy,
	CodeSchemaPrefixed:            ir.SeverityInfo,
	CodeSequenceIgnored:           ir.SeverityInfo,
	CodeConstraintNameDropped:     ir.SeverityInfo,
	CodeParseSkipped:              ir.SeverityInfo,
	CodeFKCycleFallback:           ir.SeverityLossy,
	CodeUnknownTypeAsText:         ir.SeverityLossy,
	CodeIdentityToRowid:           ir.SeverityInfo,
	CodeIdentityClauseDropped:     ir.SeverityInfo,
}

// New builds a Warning with the code's default severity.
func New(code, message, object string, span ir.SourceSpan) ir.Warning {
	sev, ok := severityOf[code]
	if !ok {
		sev = ir.SeverityLossy
	}
	return ir.Warning{Code: code, Severity: sev, Message: message, Object: object, Span: span}
}

// NewWithSeverity builds a Warning overriding the code's default severity.
func NewWithSeverity(code string, sev ir.Severity, message, object string, span ir.SourceSpan) ir.Warning {
	return ir.Warning{Code: code, Severity: sev, Message: message, Object: object, Span: span}
}

// Sort orders warnings for stable reporting by (source span if present,
// object name, code).
func Sort(warnings []ir.Warning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		a, b := warnings[i], warnings[j]
		if a.Span.Valid != b.Span.Valid {
			return a.Span.Valid && !b.Span.Valid
		}
		if a.Span.Valid && b.Span.Valid {
			if a.Span.Line != b.Span.Line {
				return a.Span.Line < b.Span.Line
			}
			if a.Span.Column != b.Span.Column {
				return a.Span.Column < b.Span.Column
			}
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Code < b.Code
	})
}

// StrictViolation is the terminal error returned when strict mode is on and
// at least one Lossy-or-higher diagnostic was produced.
type StrictViolation struct {
	Warnings []ir.Warning
}

func (e *StrictViolation) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "strict mode: %d diagnostic(s) at lossy severity or higher:\n", len(e.Warnings))
	for _, w := range e.Warnings {
		loc := ""
		if w.Object != "" {
			loc = " (" + w.Object + ")"
		}
		fmt.Fprintf(&sb, "  [%s] %s%s: %s\n", w.Severity, w.Code, loc, w.Message)
	}
	return sb.String()
}

// CheckStrict applies strict-mode policy: if strict is true and any warning
// is at SeverityLossy or higher, returns a *StrictViolation listing exactly
// those warnings. Otherwise returns nil.
func CheckStrict(strict bool, warnings []ir.Warning) error {
	if !strict {
		return nil
	}
	var offending []ir.Warning
	for _, w := range warnings {
		if w.Severity >= ir.SeverityLossy {
			offending = append(offending, w)
		}
	}
	if len(offending) == 0 {
		return nil
	}
	Sort(offending)
	return &StrictViolation{Warnings: offending}
}
