package gather

import (
	"context"
	"errors"
	"testing"

	"pharos/internal/errs"
)

func TestReduceLastDefinedValueWins(t *testing.T) {
	rs := newResultSet()
	rs.append("g", Outcome{})                 // beforePass: absent
	rs.append("g", Outcome{Value: "payload"}) // pass: defined
	rs.append("g", Outcome{})                 // afterPass: absent

	artifacts, _, err := reduce(context.Background(), rs)
	if err != nil {
		t.Fatalf("reduce() error = %v", err)
	}
	if got := artifacts["g"].Value; got != "payload" {
		t.Fatalf("artifact = %v, want payload", got)
	}
}

func TestReduceLaterValueSupersedesEarlier(t *testing.T) {
	rs := newResultSet()
	rs.append("g", Outcome{Value: "early"})
	rs.append("g", Outcome{Value: "late"})
	rs.append("g", Outcome{})

	artifacts, _, err := reduce(context.Background(), rs)
	if err != nil {
		t.Fatalf("reduce() error = %v", err)
	}
	if got := artifacts["g"].Value; got != "late" {
		t.Fatalf("artifact = %v, want late", got)
	}
}

func TestReduceFailureBecomesArtifact(t *testing.T) {
	boom := errors.New("boom")
	rs := newResultSet()
	rs.append("g", Outcome{})
	rs.append("g", Outcome{Err: boom})
	rs.append("g", Outcome{})

	artifacts, _, err := reduce(context.Background(), rs)
	if err != nil {
		t.Fatalf("reduce() error = %v", err)
	}
	if !errors.Is(artifacts["g"].Err, boom) {
		t.Fatalf("artifact error = %v, want boom", artifacts["g"].Err)
	}
	if artifacts["g"].Value != nil {
		t.Fatalf("artifact value = %v, want nil", artifacts["g"].Value)
	}
}

func TestReduceMissingArtifactIsFatal(t *testing.T) {
	rs := newResultSet()
	rs.append("g", Outcome{})
	rs.append("g", Outcome{})
	rs.append("g", Outcome{})

	_, _, err := reduce(context.Background(), rs)
	if err == nil {
		t.Fatal("reduce() expected error for gatherer with no outcomes")
	}
	if !errs.IsFatal(err) {
		t.Fatalf("reduce() error = %v, want fatal", err)
	}
	var ce *errs.Error
	if !errors.As(err, &ce) || ce.Code != errs.MissingArtifact {
		t.Fatalf("reduce() error code = %v, want MISSING_ARTIFACT", err)
	}
}

func TestReduceWarningsDedupedInFirstSeenOrder(t *testing.T) {
	rs := newResultSet()
	rs.addWarning("A")
	rs.addWarning("B")
	rs.addWarning("A")
	rs.append("g", Outcome{Value: 1})

	_, warnings, err := reduce(context.Background(), rs)
	if err != nil {
		t.Fatalf("reduce() error = %v", err)
	}
	if len(warnings) != 2 || warnings[0] != "A" || warnings[1] != "B" {
		t.Fatalf("warnings = %v, want [A B]", warnings)
	}
}

func TestReducePageLoadFailureThreshold(t *testing.T) {
	loadErr := errs.New(errs.NoDocumentRequest, "no document request")

	// 2 of 3 page-load failures crosses the >50% threshold.
	rs := newResultSet()
	rs.append("a", Outcome{Err: loadErr})
	rs.append("b", Outcome{Err: loadErr})
	rs.append("c", Outcome{Value: "ok"})

	_, _, err := reduce(context.Background(), rs)
	if err == nil {
		t.Fatal("reduce() expected threshold failure")
	}
	var ce *errs.Error
	if !errors.As(err, &ce) || ce.Code != errs.NoDocumentRequest {
		t.Fatalf("reduce() error = %v, want first page-load failure", err)
	}

	// Exactly half does not cross it.
	rs = newResultSet()
	rs.append("a", Outcome{Err: loadErr})
	rs.append("b", Outcome{Err: loadErr})
	rs.append("c", Outcome{Value: "ok"})
	rs.append("d", Outcome{Value: "ok"})

	artifacts, _, err := reduce(context.Background(), rs)
	if err != nil {
		t.Fatalf("reduce() error = %v, want success at exactly half", err)
	}
	if len(artifacts) != 4 {
		t.Fatalf("artifacts = %d entries, want 4", len(artifacts))
	}
}

func TestReduceNonPageLoadErrorsDoNotCountTowardThreshold(t *testing.T) {
	rs := newResultSet()
	rs.append("a", Outcome{Err: errors.New("gatherer-local failure")})
	rs.append("b", Outcome{Err: errors.New("another local failure")})
	rs.append("c", Outcome{Value: "ok"})

	artifacts, _, err := reduce(context.Background(), rs)
	if err != nil {
		t.Fatalf("reduce() error = %v", err)
	}
	if artifacts["a"].Err == nil || artifacts["b"].Err == nil {
		t.Fatal("expected local failures kept as artifacts")
	}
}
