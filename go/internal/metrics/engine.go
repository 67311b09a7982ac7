package metrics

import (
	"math"
	"time"
)

// The engine is a set of pure functions mapping a typed prefix plus
// elapsed time onto the live performance figures. Everything here runs
// inside the keystroke handler, so all functions are O(len(typed)) and
// deterministic given their inputs.

const charsPerWord = 5 // fixed unit conversion: 5 characters = 1 word

// RawWPM computes words-per-minute ignoring errors.
func RawWPM(typed string, elapsed time.Duration) int {
	if elapsed == 0 {
		return 0
	}
	words := float64(len([]rune(typed))) / charsPerWord
	minutes := elapsed.Minutes()
	return int(math.Round(words / minutes))
}

// NetWPM computes words-per-minute with an error penalty subtracted.
// Errors are converted to penalty "words" at the same 5:1 ratio. The
// result is never negative.
func NetWPM(typed string, errorCount int, elapsed time.Duration) int {
	if elapsed == 0 {
		return 0
	}
	words := float64(len([]rune(typed))) / charsPerWord
	minutes := elapsed.Minutes()
	rawWpm := words / minutes
	errorPenalty := float64(errorCount) / charsPerWord
	netWpm := math.Max(0, rawWpm-errorPenalty/minutes)
	return int(math.Round(netWpm))
}

// Accuracy is the percentage of typed characters matching the
// reference at the same position. An empty prefix counts as 100.
func Accuracy(typed, reference string) int {
	typedRunes := []rune(typed)
	if len(typedRunes) == 0 {
		return 100
	}
	refRunes := []rune(reference)
	correct := 0
	for i, r := range typedRunes {
		if i < len(refRunes) && r == refRunes[i] {
			correct++
		}
	}
	return int(math.Round(100 * float64(correct) / float64(len(typedRunes))))
}

// ErrorCount counts positions where the typed prefix differs from the
// reference. This is a positional diff, not an edit distance: one
// dropped or inserted character cascades into many counted errors.
// That behavior is load-bearing for metric continuity and must not be
// "fixed" to a smarter diff.
func ErrorCount(typed, reference string) int {
	refRunes := []rune(reference)
	errors := 0
	for i, r := range []rune(typed) {
		if i >= len(refRunes) || r != refRunes[i] {
			errors++
		}
	}
	return errors
}

// Consistency compares nominal vs. error-adjusted WPM. The source
// formula divides by wpm; wpm == 0 returns 0 by convention to avoid
// the division.
func Consistency(wpm int, typed string, errorCount int) int {
	if wpm == 0 {
		return 0
	}
	typedLen := len([]rune(typed))
	if typedLen == 0 {
		return 0
	}
	errorPenalty := float64(errorCount) / float64(typedLen)
	adjustedWpm := float64(wpm) * (1 - errorPenalty)
	consistency := 100 - math.Abs(float64(wpm)-adjustedWpm)/float64(wpm)*100
	return int(math.Max(0, math.Round(consistency)))
}

// Progress is the percentage of the reference covered by the typed
// prefix, in [0,100].
func Progress(typedLen, referenceLen int) float64 {
	if referenceLen == 0 {
		return 0
	}
	return 100 * float64(typedLen) / float64(referenceLen)
}
