package score

import (
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	cache "github.com/patrickmn/go-cache"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// worried holds the emoji people actually post while the ground is
// still moving.
const worried = "😟😢😧😭😲😐😑😮😔😣😖😬😓😱😨😰😫😳🥺🔴🛑📢⚡🚨⚠"

// textContext is what a feature predicate gets to look at.
type textContext struct {
	text      string
	runes     []rune
	languages []string
	density   int
	alerter   bool
	alerters  map[string]bool
}

// feature is one row of the scoring table: a stable name the learner
// keys on, the weight it contributes, and the predicate that fires it.
type feature struct {
	name   string
	weight float64
	fires  func(c *textContext) bool
}

var features = []feature{
	{"very brief text", +0.16, func(c *textContext) bool { return c.density < 75 }},
	{"brief text", +0.08, func(c *textContext) bool { return c.density < 90 }},
	{"long text", -0.08, func(c *textContext) bool { return c.density > 100 }},
	{"question", -0.05, func(c *textContext) bool { return countAny(c.runes, "?？¿") > 0 }},
	{"exclamation", +0.05, func(c *textContext) bool { return countAny(c.runes, "!！¡") > 0 }},
	{"double question", +0.08, func(c *textContext) bool { return countAny(c.runes, "?？¿") > 1 }},
	{"double exclamation", +0.03, func(c *textContext) bool { return countAny(c.runes, "!！¡") > 1 }},
	{"ellipsis", -0.02, func(c *textContext) bool {
		return strings.Contains(c.text, "...") || strings.Contains(c.text, "…")
	}},
	{"usernames", -0.10, func(c *textContext) bool { return strings.Contains(c.text, "@") }},
	{"multiple hashtags", +0.03, func(c *textContext) bool { return countAny(c.runes, "#") > 1 }},
	{"relevant hashtag", +0.05, hasRelevantHashtag},
	{"short with hashtag", +0.05, func(c *textContext) bool { return c.density < 75 && hasRelevantHashtag(c) }},
	{"agency usernames", -0.05, func(c *textContext) bool {
		for handle := range c.alerters {
			if strings.Contains(c.text, handle) {
				return true
			}
		}
		return false
	}},
	{"final period", -0.04, func(c *textContext) bool {
		if len(c.runes) == 0 {
			return false
		}
		last := c.runes[len(c.runes)-1]
		return last == '.' || last == '。'
	}},
	{"little content", -0.10, func(c *textContext) bool {
		return countClass(c.runes, unicode.IsLetter) < len(c.runes)*4/10
	}},
	{"caps lock", +0.25, func(c *textContext) bool {
		return countClass(c.runes, unicode.IsUpper) > len(c.runes)*8/10
	}},
	{"no spaces", +0.10, func(c *textContext) bool {
		return countClass(c.runes, unicode.IsSpace) == 0
	}},
	{"numbers", -0.03, func(c *textContext) bool {
		return countClass(c.runes, unicode.IsDigit) > 0
	}},
	{"symbols", -0.01, func(c *textContext) bool {
		return countClass(c.runes, func(r rune) bool { return unicode.Is(unicode.So, r) }) > 0
	}},
	{"worried emoji", +0.13, func(c *textContext) bool { return countAny(c.runes, worried) > 0 }},
	{"shindo", +0.20, func(c *textContext) bool { return strings.Contains(c.text, "震度") }},
	{"low shindo", -0.20, func(c *textContext) bool {
		return strings.Contains(c.text, "震度0") || strings.Contains(c.text, "震度1")
	}},
	{"Japanese early warning", +0.20, func(c *textContext) bool {
		return strings.Contains(c.text, "地震情報") || strings.Contains(c.text, "強震モニタ速報")
	}},
	{"no keyword", -0.30, func(c *textContext) bool {
		for _, term := range []string{"earthquake", "alert", "earthquake warning"} {
			if Contained(term, c.text, c.languages) != "" {
				return false
			}
		}
		return true
	}},
	{"intensifier", +0.15, func(c *textContext) bool {
		return Contained("strong", c.text, c.languages) != "" ||
			Contained("very strong", c.text, c.languages) != ""
	}},
	{"laughter", -0.08, func(c *textContext) bool { return Contained("haha", c.text, c.languages) != "" }},
	{"simulation", -0.50, func(c *textContext) bool { return Contained("simulation", c.text, c.languages) != "" }},
	{"alerter account", +0.01, func(c *textContext) bool { return c.alerter }},
	{"other event", +0.02, func(c *textContext) bool {
		return Contained("alert", c.text, c.languages) != "" &&
			Contained("earthquake", c.text, c.languages) == ""
	}},
	{"football player", -0.30, func(c *textContext) bool { return Spam(c.text) }},
}

func hasRelevantHashtag(c *textContext) bool {
	langs := append([]string{"en"}, c.languages...)
	lower := strings.ToLower(c.text)
	for _, term := range []string{"earthquake", "alert"} {
		for _, lang := range langs {
			for _, form := range Keywords(term, lang) {
				if strings.Contains(lower, "#"+strings.ToLower(form)) {
					return true
				}
			}
		}
	}
	return false
}

func countAny(runes []rune, set string) int {
	count := 0
	for _, r := range runes {
		if strings.ContainsRune(set, r) {
			count++
		}
	}
	return count
}

func countClass(runes []rune, class func(rune) bool) int {
	count := 0
	for _, r := range runes {
		if class(r) {
			count++
		}
	}
	return count
}

// Scorer evaluates crowdsourced posts and keeps the cross-post state
// the feature table alone cannot: per-handle running totals, recently
// active languages with their inferred coordinates, and a counter of
// which keyword forms actually show up.
type Scorer struct {
	alerters map[string]bool
	users    *cache.Cache
	hints    *cache.Cache

	mu    sync.Mutex
	terms map[string]int
}

// NewScorer builds a scorer that treats the given handles as known
// alerter accounts.
func NewScorer(alerters []string) *Scorer {
	known := make(map[string]bool, len(alerters))
	for _, handle := range alerters {
		known[handle] = true
	}
	return &Scorer{
		alerters: known,
		users:    cache.New(24*time.Hour, time.Hour),
		hints:    cache.New(20*time.Second, time.Minute),
		terms:    make(map[string]int),
	}
}

// Alerter reports whether handle is a known alerter account.
func (s *Scorer) Alerter(handle string) bool { return s.alerters[handle] }

// Alerters exposes the handle set for the feature predicates.
func (s *Scorer) Alerters() map[string]bool { return s.alerters }

// Features runs the whole table over text and returns the triggered
// rows as heuristics.
func (s *Scorer) Features(text string, languages []string, alerter bool) []quake.Heuristic {
	c := &textContext{
		text:      text,
		runes:     []rune(text),
		languages: languages,
		density:   Density(text),
		alerter:   alerter,
		alerters:  s.alerters,
	}

	var triggered []quake.Heuristic
	for _, f := range features {
		if f.fires(c) {
			triggered = append(triggered, quake.Heuristic{Weight: f.weight, Name: f.name})
		}
	}
	return triggered
}

// RateUser accumulates a handle's running score for diagnostics.
func (s *Scorer) RateUser(handle string, delta float64) {
	current := 0.0
	if hit, ok := s.users.Get(handle); ok {
		current = hit.(float64)
	}
	s.users.Set(handle, current+delta, cache.DefaultExpiration)
}

// UserScores snapshots every handle's running total.
func (s *Scorer) UserScores() map[string]float64 {
	items := s.users.Items()
	scores := make(map[string]float64, len(items))
	for handle, item := range items {
		scores[handle] = item.Object.(float64)
	}
	return scores
}

// NoteTerm counts a keyword form that matched a real post.
func (s *Scorer) NoteTerm(form string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[form]++
}

// TermCount is one keyword form with its observation count.
type TermCount struct {
	Form  string
	Count int
}

// CommonTerms returns the observed keyword forms, most frequent first.
func (s *Scorer) CommonTerms() []TermCount {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TermCount, 0, len(s.terms))
	for form, count := range s.terms {
		out = append(out, TermCount{Form: form, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Form < out[j].Form
	})
	return out
}

// SetHint remembers where posts in a language seem to come from. The
// short TTL means a hint only outlives the burst that produced it by
// seconds.
func (s *Scorer) SetHint(language string, coords geo.Coords) {
	coords.Confidence *= 0.5
	s.hints.Set(language, coords, cache.DefaultExpiration)
}

// Hint returns the cached coordinates for a language, if fresh.
func (s *Scorer) Hint(language string) (geo.Coords, bool) {
	hit, ok := s.hints.Get(language)
	if !ok {
		return geo.Coords{}, false
	}
	return hit.(geo.Coords), true
}

// KnownLang reports whether the language has a fresh hint; used as the
// "we have seen real activity in this language" gate.
func (s *Scorer) KnownLang(language string) bool {
	_, ok := s.hints.Get(language)
	return ok
}
