// Package score turns crowdsourced free text into a credibility score
// through a table of weighted features, and learns better weights from
// confirmed and rejected outcomes.
package score

import "strings"

// keywordTable maps a semantic term to its surface forms per language.
// Lookups fall back to English when a language is missing.
var keywordTable = map[string]map[string][]string{
	"earthquake": {
		"en": {"earthquake", "quake", "tremor", "temblor", "seismic"},
		"es": {"terremoto", "sismo", "temblor"},
		"it": {"terremoto", "scossa"},
		"ja": {"地震", "揺れ"},
		"el": {"σεισμός", "σεισμος", "σεισμό"},
		"tr": {"deprem"},
		"pt": {"terremoto", "tremor", "sismo"},
		"tl": {"lindol"},
		"in": {"gempa"},
		"zh": {"地震"},
		"fr": {"séisme", "tremblement de terre"},
		"ru": {"землетрясение"},
		"ne": {"भूकम्प"},
	},
	"alert": {
		"en": {"air raid", "siren", "alert"},
		"es": {"alerta", "sirena"},
		"it": {"allarme"},
		"ja": {"警報"},
		"el": {"συναγερμός"},
		"tr": {"alarm"},
		"uk": {"тривога", "сирена"},
		"ru": {"тревога", "сирена"},
	},
	"earthquake warning": {
		"en": {"earthquake warning"},
		"ja": {"緊急地震速報"},
		"es": {"alerta sísmica"},
		"it": {"allerta sismica"},
	},
	"possible tsunami": {
		"en": {"possible tsunami", "tsunami"},
		"ja": {"津波"},
		"es": {"posible tsunami", "tsunami"},
		"el": {"τσουνάμι"},
	},
	"strong": {
		"en": {"strong"},
		"es": {"fuerte"},
		"it": {"forte"},
		"ja": {"強い"},
		"el": {"δυνατός"},
		"tr": {"güçlü"},
	},
	"very strong": {
		"en": {"very strong"},
		"es": {"muy fuerte"},
		"it": {"molto forte"},
	},
	"weak": {
		"en": {"weak", "light"},
		"es": {"leve"},
		"it": {"leggera"},
	},
	"destroyed": {
		"en": {"destroyed", "collapsed"},
		"es": {"destruido"},
	},
	"haha": {
		"en": {"haha", "lol", "lmao"},
		"es": {"jaja"},
		"pt": {"kkkk"},
		"in": {"wkwk"},
		"ja": {"笑"},
		"el": {"χαχα"},
		"tr": {"ahahah"},
	},
	"simulation": {
		"en": {"simulation", "drill", "exercise"},
		"es": {"simulacro"},
		"ja": {"訓練"},
		"it": {"esercitazione"},
	},
}

// spamWords catches posts about people who trend for the wrong reasons.
// Matching is substring and case-insensitive, which is aggressive on
// purpose: a fragment of a trending name is still a bad sign.
var spamWords = []string{
	"messi", "ronaldo", "neymar", "mbappe", "haaland", "lewandowski",
	"benzema", "vinicius", "maradona", "lebron", "curry", "beyonce",
	"bieber", "taylor swift", "bts", "kanye", "shakira", "eurovision",
}

// Keywords returns the surface forms of term in the given language,
// falling back to English.
func Keywords(term, language string) []string {
	table, ok := keywordTable[term]
	if !ok {
		return nil
	}
	if forms, ok := table[language]; ok {
		return forms
	}
	return table["en"]
}

// Contained returns the first surface form of term present in text for
// any of the given languages (all languages when none given), or "".
func Contained(term, text string, languages []string) string {
	table, ok := keywordTable[term]
	if !ok {
		return ""
	}
	lower := strings.ToLower(text)

	if len(languages) == 0 {
		for _, forms := range table {
			for _, form := range forms {
				if strings.Contains(lower, strings.ToLower(form)) {
					return form
				}
			}
		}
		return ""
	}

	for _, lang := range languages {
		for _, form := range Keywords(term, lang) {
			if strings.Contains(lower, strings.ToLower(form)) {
				return form
			}
		}
	}
	return ""
}

// Spam reports whether text trips the spam-word list.
func Spam(text string) bool {
	lower := strings.ToLower(text)
	for _, word := range spamWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
