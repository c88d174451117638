package geo

import "strings"

// languageEntries map substrings of region names to the languages worth
// listening for there. Order matters: first match wins, so hyphenated
// border regions come before the plain country names they contain.
var languageEntries = []struct {
	match string
	langs []string
}{
	{"Adriatic Sea", []string{"en", "it"}},
	{"Aegean Sea", []string{"el", "tr", "en"}},
	{"Ionian Sea", []string{"el", "en", "it"}},
	{"Aleutian", []string{"en", "ru"}},
	{"Argentina", []string{"es"}},
	{"Arizona-Sonora", []string{"en", "es"}},
	{"Peru-Brazil", []string{"es", "pt"}},
	{"Brazil", []string{"pt"}},
	{"California-Baja California", []string{"en", "es"}},
	{"California", []string{"en", "es"}},
	{"Chile", []string{"es"}},
	{"Eastern Russia-Northeastern China", []string{"zh", "ru"}},
	{"China", []string{"zh"}},
	{"Colombia", []string{"es"}},
	{"Costa Rica", []string{"es"}},
	{"Cyprus", []string{"el", "tr"}},
	{"Dodecanese Islands", []string{"el", "tr"}},
	{"Greece-Albania", []string{"el", "sq"}},
	{"Greece-Bulgaria", []string{"el", "bg"}},
	{"Greece", []string{"el"}},
	{"Guatemala", []string{"es"}},
	{"Haiti", []string{"fr", "ht"}},
	{"Honshu", []string{"ja"}},
	{"Hokkaido", []string{"ja"}},
	{"Indonesia", []string{"in"}},
	{"Iran", []string{"fa"}},
	{"Italy", []string{"it"}},
	{"Japan", []string{"ja"}},
	{"Mexico", []string{"es"}},
	{"Nepal", []string{"ne", "en"}},
	{"New Zealand", []string{"en", "mi"}},
	{"Pakistan", []string{"ur", "en"}},
	{"Peru", []string{"es"}},
	{"Philippine", []string{"tl", "en", "ceb"}},
	{"Puerto Rico", []string{"es", "en"}},
	{"Russia", []string{"ru"}},
	{"Ryukyu", []string{"ja"}},
	{"Shikoku", []string{"ja"}},
	{"Taiwan", []string{"zh"}},
	{"Turkey", []string{"tr"}},
	{"Vanuatu", []string{"en", "fr", "bi"}},
}

// Languages returns the languages associated with a region name, most
// relevant first, always ending with English as the lingua franca.
func Languages(region string) []string {
	for _, entry := range languageEntries {
		if strings.Contains(region, entry.match) {
			langs := entry.langs
			for _, l := range langs {
				if l == "en" {
					return langs
				}
			}
			return append(append([]string{}, langs...), "en")
		}
	}
	return []string{"en"}
}
