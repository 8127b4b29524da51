package textstat

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var sentenceEnd = regexp.MustCompile(`[.!?]+`)
var lexiconPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}']*`)

// Flesch Reading Ease coefficients.
const (
	fleschBase          = 206.835
	fleschSentenceCoeff = 1.015
	fleschSyllableCoeff = 84.6
)

// WordCount counts whitespace-delimited tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// PeriodFragments splits text on the literal '.' and drops fragments that
// contain no words.
func PeriodFragments(text string) []string {
	parts := strings.Split(text, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(strings.Fields(p)) == 0 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// AverageSentenceWords is the mean word count over the non-empty period
// fragments of text. The denominator is never below one.
func AverageSentenceWords(text string) float64 {
	fragments := PeriodFragments(text)
	total := 0
	for _, f := range fragments {
		total += len(strings.Fields(f))
	}
	return float64(total) / float64(max(1, len(fragments)))
}

// FleschReadingEase scores text with the Flesch Reading Ease formula.
// ok is false when the formula is undefined for text (no lexical words), in
// which case the caller should substitute its own default.
func FleschReadingEase(text string) (score float64, ok bool) {
	words := lexicon(text)
	if len(words) == 0 {
		return 0, false
	}
	syllables := 0
	for _, w := range words {
		syllables += Syllables(w)
	}
	sentences := max(1, SentenceCount(text))

	wordsPerSentence := float64(len(words)) / float64(sentences)
	syllablesPerWord := float64(syllables) / float64(len(words))
	score = fleschBase - fleschSentenceCoeff*wordsPerSentence - fleschSyllableCoeff*syllablesPerWord
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	return math.Round(score*100) / 100, true
}

// SentenceCount counts runs of text terminated by '.', '!' or '?' that
// contain at least one word. Trailing text without a terminator counts too.
func SentenceCount(text string) int {
	count := 0
	for _, s := range sentenceEnd.Split(text, -1) {
		if len(lexicon(s)) > 0 {
			count++
		}
	}
	return count
}

// Syllables estimates the syllable count of a single word by counting vowel
// groups. Every word counts for at least one syllable.
func Syllables(word string) int {
	letters := make([]rune, 0, len(word))
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range letters {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	n := len(letters)
	if n > 2 && letters[n-1] == 'e' && count > 1 {
		// silent final e, except "-le" after a consonant (table, little)
		if !(letters[n-2] == 'l' && !isVowel(letters[n-3])) {
			count--
		}
	}
	if count < 1 {
		return 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y',
		'à', 'á', 'â', 'ä', 'è', 'é', 'ê', 'ë', 'ì', 'í', 'î', 'ï', 'ò', 'ó', 'ô', 'ö', 'ù', 'ú', 'û', 'ü':
		return true
	}
	return false
}

func lexicon(text string) []string {
	return lexiconPattern.FindAllString(text, -1)
}
