package storage_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Oxyrus/photoshelf/internal/storage"
)

func TestOutcomeOf(t *testing.T) {
	cases := []struct {
		err  error
		want storage.Outcome
	}{
		{nil, storage.Applied},
		{storage.ErrNotFound, storage.NotFound},
		{fmt.Errorf("sqlite: rename category: %w", storage.ErrConflict), storage.Conflict},
		{storage.ErrInvalid, storage.Invalid},
		{errors.New("disk I/O error"), storage.Faulted},
	}

	for _, tc := range cases {
		if got := storage.OutcomeOf(tc.err); got != tc.want {
			t.Fatalf("OutcomeOf(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestParseDeletePolicy(t *testing.T) {
	got, err := storage.ParseDeletePolicy("")
	if err != nil || got != storage.DeleteReassign {
		t.Fatalf("expected reassign default, got %q (%v)", got, err)
	}

	got, err = storage.ParseDeletePolicy(" Cascade ")
	if err != nil || got != storage.DeleteCascade {
		t.Fatalf("expected cascade, got %q (%v)", got, err)
	}

	if _, err := storage.ParseDeletePolicy("shred"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}

func TestOutcomeMarshalText(t *testing.T) {
	text, err := storage.NotFound.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText returned error: %v", err)
	}
	if string(text) != "not-found" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestValidateCategoryName(t *testing.T) {
	for _, name := range []string{"Travel", " Food ", "2024 Summer", "Scenery.old"} {
		if err := storage.ValidateCategoryName(name); err != nil {
			t.Fatalf("ValidateCategoryName(%q) returned error: %v", name, err)
		}
	}
	for _, name := range []string{"", "   ", ".", "..", "2024/Summer", `Trips\Rome`} {
		if err := storage.ValidateCategoryName(name); !errors.Is(err, storage.ErrInvalid) {
			t.Fatalf("ValidateCategoryName(%q): expected ErrInvalid, got %v", name, err)
		}
	}
}
