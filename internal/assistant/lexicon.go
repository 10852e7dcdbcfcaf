package assistant

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// namedTerms maps a canonical value to the terms that reveal it. Order matters: first match wins.
type namedTerms struct {
	name  string
	terms []string
}

var osTerms = []namedTerms{
	{"windows", []string{"windows", "win10", "win11", "pc", "laptop"}},
	{"macos", []string{"mac", "macos", "macbook", "imac", "apple"}},
	{"ios", []string{"iphone", "ipad", "ios"}},
	{"android", []string{"android", "samsung", "pixel"}},
	{"linux", []string{"linux", "ubuntu"}},
}

var browserTerms = []namedTerms{
	{"Chrome", []string{"chrome", "google chrome"}},
	{"Edge", []string{"edge", "microsoft edge"}},
	{"Safari", []string{"safari"}},
	{"Firefox", []string{"firefox", "mozilla"}},
}

var applicationTerms = []namedTerms{
	{"Teams", []string{"teams", "microsoft teams"}},
	{"Outlook", []string{"outlook"}},
	{"Word", []string{"word", "word document"}},
	{"Excel", []string{"excel", "spreadsheet", "regneark"}},
	{"PowerPoint", []string{"powerpoint", "ppt", "presentasjon"}},
	{"OneDrive", []string{"onedrive"}},
}

var (
	urgentTerms = []string{
		"haster", "akutt", "kritisk", "nå", "umiddelbart", "snarest", "raskt",
		"deadline", "eksamen", "presentasjon", "møte om", "fort", "emergency", "urgent", "asap",
	}
	frustratedTerms = []string{
		"irritert", "frustrert", "lei", "gir opp", "funker aldri",
		"dritt", "faen", "pokker", "ugh", "argh", "frustrated", "annoying",
	}
	confusedTerms = []string{
		"forstår ikke", "skjønner ikke", "confused", "forvirret",
		"hva mener du", "hva betyr", "hvordan",
	}
	triedTerms = []string{
		"prøvd", "forsøkt", "restartet", "startet på nytt", "tømt cache",
		"logget ut", "reinstallert", "sjekket", "testet", "restarted", "cleared cache", "tested",
	}
	// continuedFailureTerms signal that the previous advice did not help.
	continuedFailureTerms = []string{
		"nei", "fungerer ikke", "virker ikke", "hjelper ikke", "samme feil", "samme problem",
		"fortsatt", "fremdeles", "fungerte ikke", "virket ikke", "hjalp ikke",
		"still not", "still broken", "still the same", "not working", "doesn't work", "didn't help", "didn't work",
	}
	resolvedTerms = []string{
		"takk", "fungerte", "virket", "løst", "fikset", "bra", "perfekt",
		"thanks", "thank you", "it worked", "fixed",
	}
	humanRequestTerms = []string{
		"snakke med", "menneske", "ekte person", "support", "menneskelig",
		"human", "real person",
	}
	stopWords = map[string]struct{}{
		"jeg": {}, "du": {}, "det": {}, "har": {}, "er": {}, "på": {}, "med": {}, "til": {}, "og": {}, "i": {},
	}
)

// shortTermRunes is the length below which a substring term must match a whole word.
const shortTermRunes = 3

// containsTerm is a substring match, except that terms shorter than shortTermRunes only
// match whole words ("pc" must not fire inside "upcoming").
func containsTerm(lowered, term string) bool {
	if utf8.RuneCountInString(term) >= shortTermRunes {
		return strings.Contains(lowered, term)
	}
	return containsWord(lowered, term)
}

// containsWord matches a word or multi-word phrase on word boundaries.
func containsWord(lowered, phrase string) bool {
	padded := " " + strings.Join(words(lowered), " ") + " "
	return strings.Contains(padded, " "+strings.Join(words(phrase), " ")+" ")
}

func anyWord(lowered string, phrases []string) bool {
	for _, phrase := range phrases {
		if containsWord(lowered, phrase) {
			return true
		}
	}
	return false
}

func matchedWords(lowered string, phrases []string) []string {
	var out []string
	for _, phrase := range phrases {
		if containsWord(lowered, phrase) {
			out = append(out, phrase)
		}
	}
	return out
}

func containsAny(lowered string, terms []string) bool {
	for _, term := range terms {
		if containsTerm(lowered, term) {
			return true
		}
	}
	return false
}

func matchedTerms(lowered string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if containsTerm(lowered, term) {
			out = append(out, term)
		}
	}
	return out
}

func firstNamed(lowered string, table []namedTerms) string {
	for _, entry := range table {
		if containsAny(lowered, entry.terms) {
			return entry.name
		}
	}
	return ""
}

// words splits on anything that is not a letter or digit.
func words(lowered string) []string {
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// contentWords returns whitespace tokens longer than two runes that are not stop words.
func contentWords(lowered string) []string {
	fields := strings.Fields(lowered)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if utf8.RuneCountInString(f) <= 2 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SignalsContinuedFailure reports whether a message says earlier advice did not help.
func SignalsContinuedFailure(message string) bool {
	return containsAny(strings.ToLower(message), continuedFailureTerms)
}

// RequestsHuman reports whether a message asks for a person instead of the assistant.
func RequestsHuman(message string) bool {
	return containsAny(strings.ToLower(message), humanRequestTerms)
}

// SignalsResolved reports a thanks/it-worked message that does not also report failure.
func SignalsResolved(message string) bool {
	lowered := strings.ToLower(message)
	return containsAny(lowered, resolvedTerms) && !containsAny(lowered, continuedFailureTerms)
}
