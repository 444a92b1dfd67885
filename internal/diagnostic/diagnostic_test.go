package diagnostic

import (
	"errors"
	"testing"

	"github.com/pg2lite/pg2lite/internal/ir"
)

func TestNewUsesDefaultSeverity(t *testing.T) {
	w := New(CodeVarcharLengthIgnored, "length ignored", "users.email", ir.SourceSpan{})
	if w.Severity != ir.SeverityLossy {
		t.Errorf("Severity = %v, want %v", w.Severity, ir.SeverityLossy)
	}
	if w.Code != CodeVarcharLengthIgnored || w.Object != "users.email" {
		t.Errorf("unexpected warning shape: %+v", w)
	}
}

func TestNewFallsBackToLossyForUnknownCode(t *testing.T) {
	w := New("SOME_FUTURE_CODE", "msg", "obj", ir.SourceSpan{})
	if w.Severity != ir.SeverityLossy {
		t.Errorf("Severity = %v, want fallback %v", w.Severity, ir.SeverityLossy)
	}
}

func TestNewWithSeverityOverrides(t *testing.T) {
	w := NewWithSeverity(CodeFKTargetMissing, ir.SeverityUnsupported, "msg", "obj", ir.SourceSpan{})
	if w.Severity != ir.SeverityUnsupported {
		t.Errorf("Severity = %v, want %v", w.Severity, ir.SeverityUnsupported)
	}
}

func TestSortOrdersBySpanThenObjectThenCode(t *testing.T) {
	warnings := []ir.Warning{
		{Code: "Z", Object: "b", Span: ir.SourceSpan{}},
		{Code: "A", Object: "a", Span: ir.SourceSpan{Valid: true, Line: 2, Column: 1}},
		{Code: "B", Object: "a", Span: ir.SourceSpan{Valid: true, Line: 1, Column: 1}},
		{Code: "A", Object: "a", Span: ir.SourceSpan{}},
	}
	Sort(warnings)

	// Valid spans sort before invalid ones; among valid spans, earlier
	// line/column comes first; among equal/absent spans, object then code.
	want := []string{"B", "A", "A", "Z"}
	for i, code := range want {
		if warnings[i].Code != code {
			t.Errorf("warnings[%d].Code = %q, want %q (full order: %+v)", i, warnings[i].Code, code, warnings)
		}
	}
}

func TestCheckStrictNilWhenNotStrict(t *testing.T) {
	warnings := []ir.Warning{{Code: CodeNumericPrecisionLoss, Severity: ir.SeverityLossy}}
	if err := CheckStrict(false, warnings); err != nil {
		t.Errorf("CheckStrict(false, ...) = %v, want nil", err)
	}
}

func TestCheckStrictNilWhenOnlyInfo(t *testing.T) {
	warnings := []ir.Warning{{Code: CodeSerialToRowid, Severity: ir.SeverityInfo}}
	if err := CheckStrict(true, warnings); err != nil {
		t.Errorf("CheckStrict(true, ...) = %v, want nil for info-only warnings", err)
	}
}

func TestCheckStrictReturnsViolationForLossyOrHigher(t *testing.T) {
	warnings := []ir.Warning{
		{Code: CodeSerialToRowid, Severity: ir.SeverityInfo},
		{Code: CodeNumericPrecisionLoss, Severity: ir.SeverityLossy, Object: "orders.total"},
		{Code: CodeFKTargetMissing, Severity: ir.SeverityUnsupported, Object: "orders.user_id"},
	}
	err := CheckStrict(true, warnings)
	if err == nil {
		t.Fatal("CheckStrict(true, ...) = nil, want a *StrictViolation")
	}
	var violation *StrictViolation
	if !errors.As(err, &violation) {
		t.Fatalf("CheckStrict error is not a *StrictViolation: %v", err)
	}
	if len(violation.Warnings) != 2 {
		t.Fatalf("violation lists %d warnings, want exactly the 2 at lossy-or-higher: %+v", len(violation.Warnings), violation.Warnings)
	}
	for _, w := range violation.Warnings {
		if w.Severity < ir.SeverityLossy {
			t.Errorf("violation includes a sub-lossy warning: %+v", w)
		}
	}
	if violation.Error() == "" {
		t.Error("Error() returned empty string")
	}
}
