package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/getmetherapy/mochat/internal/chatlog"
)

func TestClassifyNewUser(t *testing.T) {
	store := chatlog.NewInMemoryStore()
	c := NewClassifier(store, time.Hour)

	pc, err := c.Classify(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pc.State != StateNewUser {
		t.Fatalf("State = %q, want %q", pc.State, StateNewUser)
	}
	if pc.PriorSummary != nil || len(pc.TrailingTurns) != 0 {
		t.Fatalf("new user context should carry no payload: %+v", pc)
	}
}

func TestClassifyReturningUserWithSummary(t *testing.T) {
	store := chatlog.NewInMemoryStore()
	if err := seedTurns(store, "u1", 2*time.Hour, "hello", "hi there"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := store.UpsertSummary(context.Background(), "u1", "they were stressed about work", time.Now().UTC()); err != nil {
		t.Fatalf("UpsertSummary() error = %v", err)
	}

	c := NewClassifier(store, time.Hour)
	pc, err := c.Classify(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pc.State != StateReturning {
		t.Fatalf("State = %q, want %q", pc.State, StateReturning)
	}
	if pc.PriorSummary == nil || pc.PriorSummary.Summary != "they were stressed about work" {
		t.Fatalf("PriorSummary = %+v, want stored summary", pc.PriorSummary)
	}
}

func TestClassifyReturningUserWithoutSummary(t *testing.T) {
	store := chatlog.NewInMemoryStore()
	if err := seedTurns(store, "u1", 2*time.Hour, "hello", "hi there"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewClassifier(store, time.Hour)
	pc, err := c.Classify(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pc.State != StateReturning {
		t.Fatalf("State = %q, want %q", pc.State, StateReturning)
	}
	if pc.PriorSummary != nil {
		t.Fatalf("PriorSummary = %+v, want nil", pc.PriorSummary)
	}
}

func TestClassifyReturningJustOverWindow(t *testing.T) {
	store := chatlog.NewInMemoryStore()
	// Barely outside the window: still returning, no hysteresis band.
	if err := seedTurns(store, "u1", time.Hour+time.Minute, "hello", "hi"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewClassifier(store, time.Hour)
	pc, err := c.Classify(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pc.State != StateReturning {
		t.Fatalf("State = %q, want %q", pc.State, StateReturning)
	}
}

func TestClassifyOngoing(t *testing.T) {
	store := chatlog.NewInMemoryStore()
	if err := seedTurns(store, "u1", 20*time.Minute, "one", "two", "three"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewClassifier(store, time.Hour)
	pc, err := c.Classify(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if pc.State != StateOngoing {
		t.Fatalf("State = %q, want %q", pc.State, StateOngoing)
	}
	if len(pc.TrailingTurns) != 3 {
		t.Fatalf("len(TrailingTurns) = %d, want 3", len(pc.TrailingTurns))
	}
	for i := 1; i < len(pc.TrailingTurns); i++ {
		if pc.TrailingTurns[i].CreatedAt.Before(pc.TrailingTurns[i-1].CreatedAt) {
			t.Fatalf("trailing turns out of order at %d", i)
		}
	}
}

func TestClassifySummaryFailureDegrades(t *testing.T) {
	store := &brokenStore{InMemoryStore: chatlog.NewInMemoryStore(), failSummary: true}
	if err := seedTurns(store, "u1", 2*time.Hour, "hello", "hi"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := NewClassifier(store, time.Hour)
	pc, err := c.Classify(context.Background(), "u1", time.Now().UTC())
	if err != nil {
		t.Fatalf("Classify() error = %v, want degraded success", err)
	}
	if pc.State != StateReturning || pc.PriorSummary != nil {
		t.Fatalf("context = %+v, want returning with absent summary", pc)
	}
}
