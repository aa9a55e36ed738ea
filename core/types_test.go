package core

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestUserSubmit(t *testing.T) {
	u := User{ID: "u1"}
	now := time.Now()
	if prev := u.Submit(42, now); prev != 0 {
		t.Fatalf("previous = %v", prev)
	}
	if prev := u.Submit(10, now); prev != 42 {
		t.Fatalf("previous = %v", prev)
	}
	if u.HighScore != 42 {
		t.Fatalf("high score = %v", u.HighScore)
	}
	if len(u.PastScores) != 2 || u.PastScores[0] != 42 || u.PastScores[1] != 10 {
		t.Fatalf("past scores = %v", u.PastScores)
	}
}

func TestUserSubmitEqualDoesNotReplace(t *testing.T) {
	u := User{ID: "u1", HighScore: 5}
	u.Submit(5, time.Now())
	s := Submission{User: u.ID, Score: 5, HighScore: u.HighScore, Previous: 5}
	if s.Improved() {
		t.Fatal("equal score must not count as an improvement")
	}
}

func TestUserAppend(t *testing.T) {
	u := User{ID: "u1", HighScore: 3}
	u.Append(100, time.Now())
	if u.HighScore != 3 || len(u.PastScores) != 1 {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestCloneIsDeep(t *testing.T) {
	u := User{PastScores: []float64{1, 2}}
	cp := u.Clone()
	cp.PastScores[0] = 9
	if u.PastScores[0] != 1 {
		t.Fatal("clone shares backing array")
	}
	if (User{}).Clone().PastScores == nil {
		t.Fatal("clone should never carry a nil history")
	}
}

func TestNormalizeUserID(t *testing.T) {
	id, err := NormalizeUserID(" Alice ")
	if err != nil || id != "Alice" {
		t.Fatalf("got %v %v", id, err)
	}
	if _, err := NormalizeUserID("   "); err == nil {
		t.Fatalf("expected empty error")
	}
}

func TestValidateUsername(t *testing.T) {
	if err := ValidateUsername("player_1.x"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := ValidateUsername("bad name"); err == nil {
		t.Fatalf("expected invalid username err")
	}
	if err := ValidateUsername(""); err == nil {
		t.Fatalf("expected empty username err")
	}
}

func TestParseScore(t *testing.T) {
	for _, raw := range []string{"42", "-3.5", "0", "1e3"} {
		if _, err := ParseScore(json.RawMessage(raw)); err != nil {
			t.Fatalf("%s: unexpected err %v", raw, err)
		}
	}
	for _, raw := range []string{`"abc"`, `"42"`, "true", "null", "", "{}", "[1]"} {
		_, err := ParseScore(json.RawMessage(raw))
		if err == nil {
			t.Fatalf("%q: expected validation error", raw)
		}
		if !IsValidation(err) {
			t.Fatalf("%q: expected ValidationError, got %T", raw, err)
		}
	}
}

func TestCoerceScore(t *testing.T) {
	cases := map[string]float64{"42": 42, `"42"`: 42, `" 7.5 "`: 7.5, `"-1e2"`: -100}
	for raw, want := range cases {
		got, err := CoerceScore(json.RawMessage(raw))
		if err != nil || got != want {
			t.Fatalf("%s: got %v err %v, want %v", raw, got, err, want)
		}
	}
	for _, raw := range []string{`"abc"`, `""`, `"NaN"`, `"Inf"`, "true", "null", "", "{}"} {
		if _, err := CoerceScore(json.RawMessage(raw)); !IsValidation(err) {
			t.Fatalf("%q: expected ValidationError, got %v", raw, err)
		}
	}
}

func TestHighScoreRule(t *testing.T) {
	rule := HighScoreRule{}
	user := User{ID: "u1", HighScore: 42}
	out := rule.Evaluate(context.Background(), user, NewScoreSubmitted("u1", 42, 42, 10))
	if len(out) != 1 || out[0].Type != EventHighScoreBeaten || out[0].Previous != 10 {
		t.Fatalf("unexpected events %+v", out)
	}
	if out := rule.Evaluate(context.Background(), user, NewScoreSubmitted("u1", 5, 42, 42)); len(out) != 0 {
		t.Fatalf("expected no events, got %+v", out)
	}
}
