package domain

import (
	"testing"
	"time"
)

func TestNewCardRequiresFront(t *testing.T) {
	if _, err := NewCard("", "back", time.Now()); err != ErrEmptyFront {
		t.Errorf("expected ErrEmptyFront, got %v", err)
	}

	card, err := NewCard("front", "", time.Now())
	if err != nil {
		t.Fatalf("empty back should be allowed: %v", err)
	}
	if card.ID == (CardID{}) {
		t.Error("expected a generated id")
	}
}

func TestNewDeckRequiresName(t *testing.T) {
	if _, err := NewDeck(""); err != ErrEmptyDeckName {
		t.Errorf("expected ErrEmptyDeckName, got %v", err)
	}
}

func TestGradeValidity(t *testing.T) {
	for g := GradeFail; g <= GradeEasy; g++ {
		if !g.Valid() {
			t.Errorf("grade %d should be valid", g)
		}
	}
	for _, g := range []Grade{0, -1, 5} {
		if g.Valid() {
			t.Errorf("grade %d should be invalid", g)
		}
	}
}

func TestGradePassing(t *testing.T) {
	if GradeFail.Passing() {
		t.Error("fail is not a passing grade")
	}
	for _, g := range []Grade{GradeHard, GradeGood, GradeEasy} {
		if !g.Passing() {
			t.Errorf("%s should be a passing grade", g)
		}
	}
}
