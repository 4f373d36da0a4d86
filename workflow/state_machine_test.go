package workflow

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCanTransition_Table(t *testing.T) {
	allowed := []struct{ from, to models.UnitStatus }{
		{models.UnitStatusPending, models.UnitStatusAutoMatched},
		{models.UnitStatusPending, models.UnitStatusManualReview},
		{models.UnitStatusAutoMatched, models.UnitStatusCompleted},
		{models.UnitStatusAutoMatched, models.UnitStatusFailed},
		{models.UnitStatusAutoMatched, models.UnitStatusManualReview},
		{models.UnitStatusManualReview, models.UnitStatusCompleted},
		{models.UnitStatusManualReview, models.UnitStatusDisputed},
		{models.UnitStatusManualReview, models.UnitStatusFailed},
		{models.UnitStatusManualReview, models.UnitStatusAutoMatched},
		{models.UnitStatusDisputed, models.UnitStatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to models.UnitStatus }{
		{models.UnitStatusPending, models.UnitStatusCompleted},
		{models.UnitStatusPending, models.UnitStatusDisputed},
		{models.UnitStatusPending, models.UnitStatusFailed},
		{models.UnitStatusAutoMatched, models.UnitStatusDisputed},
		{models.UnitStatusDisputed, models.UnitStatusManualReview},
		{models.UnitStatusDisputed, models.UnitStatusFailed},
	}
	for _, tc := range forbidden {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransition_TerminalImmutability(t *testing.T) {
	all := []models.UnitStatus{
		models.UnitStatusPending, models.UnitStatusAutoMatched, models.UnitStatusManualReview,
		models.UnitStatusCompleted, models.UnitStatusDisputed, models.UnitStatusFailed,
	}
	for _, from := range []models.UnitStatus{models.UnitStatusCompleted, models.UnitStatusFailed} {
		if !from.IsTerminal() {
			t.Fatalf("%s must report terminal", from)
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal %s -> %s must be rejected", from, to)
			}
		}
	}
	// Disputed is terminal for the base machine, but keeps its single
	// documented exit through dispute resolution.
	if !models.UnitStatusDisputed.IsTerminal() {
		t.Fatal("disputed must report terminal")
	}
	if !CanTransition(models.UnitStatusDisputed, models.UnitStatusCompleted) {
		t.Fatal("disputed -> completed via resolution must stay allowed")
	}
}

// Guard failures return before any row is touched, so they are testable
// without a database.

func TestTransition_IllegalMoveRejected(t *testing.T) {
	unit := &models.ReconciliationUnit{ID: 1, Status: models.UnitStatusPending, Version: 1}
	err := Transition(nil, unit, models.UnitStatusCompleted, TransitionOptions{})
	if !errors.Is(err, utils.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if unit.Status != models.UnitStatusPending || unit.Version != 1 {
		t.Fatalf("rejected transition must not mutate the unit: %+v", unit)
	}
}

func TestTransition_DisputedRequiresResolution(t *testing.T) {
	unit := &models.ReconciliationUnit{ID: 1, Status: models.UnitStatusDisputed, Version: 3}
	err := Transition(nil, unit, models.UnitStatusCompleted, TransitionOptions{Note: "operator shortcut"})
	if !errors.Is(err, utils.ErrInvalidTransition) {
		t.Fatalf("disputed units complete only through dispute resolution, got %v", err)
	}
	if unit.Status != models.UnitStatusDisputed {
		t.Fatalf("unit mutated on rejected transition: %+v", unit)
	}
}

func TestTransition_CompleteNeedsResolvedOrAcceptedDifference(t *testing.T) {
	unit := &models.ReconciliationUnit{
		ID:             1,
		Status:         models.UnitStatusManualReview,
		Version:        2,
		PlatformAmount: decimal.RequireFromString("180000"),
		EntityAmount:   decimal.RequireFromString("182400"),
		Difference:     decimal.RequireFromString("-2400"),
	}
	err := Transition(nil, unit, models.UnitStatusCompleted, TransitionOptions{})
	if !errors.Is(err, utils.ErrDifferenceNotAccepted) {
		t.Fatalf("expected ErrDifferenceNotAccepted, got %v", err)
	}
	if unit.Status != models.UnitStatusManualReview || unit.Version != 2 {
		t.Fatalf("unit mutated on rejected transition: %+v", unit)
	}
}

func TestRecomputeCommit_RejectsTerminalUnits(t *testing.T) {
	for _, status := range []models.UnitStatus{models.UnitStatusCompleted, models.UnitStatusFailed} {
		unit := &models.ReconciliationUnit{ID: 1, Status: status, Version: 5}
		err := RecomputeCommit(nil, unit, "late re-run")
		if !errors.Is(err, utils.ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", status, err)
		}
		if unit.Version != 5 {
			t.Fatalf("%s: version mutated on rejected recompute", status)
		}
	}
}
