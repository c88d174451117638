package score

import (
	"context"
	"errors"
	"testing"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

func triggered(hs []quake.Heuristic, name string) bool {
	for _, h := range hs {
		if h.Name == name {
			return true
		}
	}
	return false
}

func total(hs []quake.Heuristic) float64 {
	var sum float64
	for _, h := range hs {
		sum += h.Weight
	}
	return sum
}

func TestDensity_OrdersByLength(t *testing.T) {
	short := Density("quake!!")
	long := Density("I think maybe there was some kind of shaking here a while ago, or maybe it was a truck passing by, who knows, anyway here is a very long account of it")

	if short >= long {
		t.Errorf("expected short text to be denser-compressed than long: %d vs %d", short, long)
	}
	if short >= 75 {
		t.Errorf("expected a terse post below the very-brief threshold, got %d", short)
	}
}

func TestFeatures_CapsLockAndKeyword(t *testing.T) {
	s := NewScorer(nil)

	hs := s.Features("EARTHQUAKE!!", []string{"en"}, false)

	if !triggered(hs, "caps lock") {
		t.Error("expected caps lock to fire")
	}
	if !triggered(hs, "double exclamation") {
		t.Error("expected double exclamation to fire")
	}
	if triggered(hs, "no keyword") {
		t.Error("no keyword must not fire when 'earthquake' is present")
	}
	if total(hs) <= 0 {
		t.Errorf("expected positive score for an alarmed post, got %v", total(hs))
	}
}

func TestFeatures_NoKeywordPenalty(t *testing.T) {
	s := NewScorer(nil)

	hs := s.Features("having a nice quiet afternoon with tea", []string{"en"}, false)
	if !triggered(hs, "no keyword") {
		t.Error("expected no-keyword penalty to fire")
	}
}

func TestFeatures_Shindo(t *testing.T) {
	s := NewScorer(nil)

	hs := s.Features("地震 震度4", []string{"ja"}, false)
	if !triggered(hs, "shindo") {
		t.Error("expected shindo to fire")
	}
	if triggered(hs, "low shindo") {
		t.Error("low shindo must not fire for 震度4")
	}

	hs = s.Features("震度1 かな", []string{"ja"}, false)
	if !triggered(hs, "low shindo") {
		t.Error("expected low shindo for 震度1")
	}
}

func TestFeatures_Spam(t *testing.T) {
	s := NewScorer(nil)

	hs := s.Features("Messi scored an earthquake of a goal!!", []string{"en"}, false)
	if !triggered(hs, "football player") {
		t.Error("expected spam match on a player name")
	}
}

func TestContained_Languages(t *testing.T) {
	if got := Contained("earthquake", "terremoto in corso", []string{"it"}); got != "terremoto" {
		t.Errorf("expected 'terremoto', got %q", got)
	}
	if got := Contained("earthquake", "nothing here", []string{"en"}); got != "" {
		t.Errorf("expected no match, got %q", got)
	}
	// Missing language falls back to English.
	if got := Contained("earthquake", "big earthquake", []string{"xx"}); got != "earthquake" {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestScorer_UserScoresAndTerms(t *testing.T) {
	s := NewScorer([]string{"quakebot"})

	s.RateUser("alice", 0.3)
	s.RateUser("alice", -0.1)
	s.NoteTerm("terremoto")
	s.NoteTerm("terremoto")
	s.NoteTerm("quake")

	scores := s.UserScores()
	if got := scores["alice"]; got < 0.19 || got > 0.21 {
		t.Errorf("expected alice at 0.2, got %v", got)
	}

	terms := s.CommonTerms()
	if len(terms) != 2 || terms[0].Form != "terremoto" || terms[0].Count != 2 {
		t.Errorf("unexpected term ranking: %+v", terms)
	}

	if !s.Alerter("quakebot") || s.Alerter("alice") {
		t.Error("alerter set mishandled")
	}
}

func TestScorer_Hints(t *testing.T) {
	s := NewScorer(nil)

	if s.KnownLang("el") {
		t.Error("expected no hint before SetHint")
	}
	s.SetHint("el", geo.Coords{Lat: 37.98, Lon: 23.73, Confidence: 0.8})

	hint, ok := s.Hint("el")
	if !ok {
		t.Fatal("expected hint after SetHint")
	}
	if hint.Confidence != 0.4 {
		t.Errorf("expected halved confidence 0.4, got %v", hint.Confidence)
	}
	if !s.KnownLang("el") {
		t.Error("expected language to be known after hint")
	}
}

func TestLearner_AbsorbAndLearned(t *testing.T) {
	l, err := NewLearner(context.Background(), nil)
	if err != nil {
		t.Fatalf("NewLearner failed: %v", err)
	}
	ctx := context.Background()

	good := []quake.Heuristic{{Weight: 0.2, Name: "shindo"}, {Weight: 0.16, Name: "very brief text"}}
	bad := []quake.Heuristic{{Weight: -0.08, Name: "laughter"}}

	l.Absorb(ctx, good, quake.StatusGuessed, true, 1.0)
	l.Absorb(ctx, bad, quake.StatusGuessed, false, 1.0)
	l.Matured(ctx)

	stats := l.Stats()
	if stats["shindo+"] != 1.0 {
		t.Errorf("expected shindo+ 1.0, got %v", stats["shindo+"])
	}
	if stats["laughter-"] != -1.0 {
		t.Errorf("expected laughter- -1.0, got %v", stats["laughter-"])
	}
	if stats["="] != 1 {
		t.Errorf("expected one matured event, got %v", stats["="])
	}

	ranked := l.Learned("=")
	if len(ranked) == 0 {
		t.Fatal("expected ranked features")
	}
	// Credited features outrank blamed ones under the combined sign.
	var shindo, laughter float64
	for _, r := range ranked {
		switch r.Name {
		case "shindo":
			shindo = r.Score
		case "laughter":
			laughter = r.Score
		}
	}
	if shindo <= laughter {
		t.Errorf("expected shindo (%v) above laughter (%v)", shindo, laughter)
	}
}

type brokenCounters struct{}

func (brokenCounters) BumpStat(context.Context, string, float64) error {
	return errors.New("disk full")
}
func (brokenCounters) SetStat(context.Context, string, float64) error {
	return errors.New("disk full")
}
func (brokenCounters) Stats(context.Context) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func TestLearner_KeepsCountingWhenBackingFails(t *testing.T) {
	l, err := NewLearner(context.Background(), brokenCounters{})
	if err != nil {
		t.Fatalf("NewLearner failed: %v", err)
	}
	ctx := context.Background()

	l.Absorb(ctx, []quake.Heuristic{{Weight: 0.2, Name: "shindo"}}, quake.StatusGuessed, true, 1.0)
	l.Matured(ctx)

	stats := l.Stats()
	if stats["shindo+"] != 1.0 {
		t.Errorf("in-memory shindo+ = %v despite store failure, want 1.0", stats["shindo+"])
	}
	if stats["="] != 1 {
		t.Errorf("in-memory matured count = %v, want 1", stats["="])
	}
}

func TestLearner_IgnoresOfficialSources(t *testing.T) {
	l, _ := NewLearner(context.Background(), nil)
	ctx := context.Background()

	l.Absorb(ctx, []quake.Heuristic{{Weight: 0.1, Name: "x"}}, quake.StatusRevised, true, 1.0)
	if len(l.Stats()) != 0 {
		t.Errorf("expected no learning from high-status reports, got %v", l.Stats())
	}
}
