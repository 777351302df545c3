package repository

import (
	"errors"
	"fmt"
	"testing"

	"activation_backend/platform/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapWriteError(t *testing.T) {
	exclusion := fmt.Errorf("failed to create activation meeting: %w", &pgconn.PgError{Code: "23P01", ConstraintName: "activation_meetings_no_overlap"})
	if got := apperr.GetCode(mapWriteError(exclusion)); got != apperr.CodeSlotConflict {
		t.Fatalf("expected slot conflict code, got %q", got)
	}

	openLead := &pgconn.PgError{Code: "23505", ConstraintName: openPipelineIndex}
	if got := apperr.GetCode(mapWriteError(openLead)); got != apperr.CodePipelineExists {
		t.Fatalf("expected pipeline exists code, got %q", got)
	}

	otherUnique := &pgconn.PgError{Code: "23505", ConstraintName: "profiles_pkey"}
	if !errors.Is(mapWriteError(otherUnique), otherUnique) {
		t.Fatal("unrelated unique violations must pass through")
	}

	plain := errors.New("connection reset")
	if mapWriteError(plain) != plain {
		t.Fatal("non-postgres errors must pass through")
	}
}

func TestAddFilter(t *testing.T) {
	query := "FROM activation_meetings WHERE organization_id = $1"
	args := []any{"org"}
	idx := 2

	addFilter(&query, &args, &idx, true, " AND status = $%d", "scheduled")
	addFilter(&query, &args, &idx, false, " AND activator_user_id = $%d", "ignored")
	addFilter(&query, &args, &idx, true, " AND scheduled_start_at >= $%d", "2026-03-02")

	want := "FROM activation_meetings WHERE organization_id = $1 AND status = $2 AND scheduled_start_at >= $3"
	if query != want {
		t.Fatalf("unexpected query:\n%s", query)
	}
	if len(args) != 3 || idx != 4 {
		t.Fatalf("unexpected args %v idx %d", args, idx)
	}
}
