package evaluator

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// DefaultScore is the conservative middle-ground score used when no score
// can be parsed from the model's response.
const DefaultScore = 50

// scorePatterns are tried in order. Each has exactly one capture group for
// the integer score; negative values are captured so they clamp to 0 rather
// than matching the adjacent digits.
var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)score:\s*(-?\d+)`),
	regexp.MustCompile(`(?i)score\s*=\s*(-?\d+)`),
	regexp.MustCompile(`(?i)(-?\d+)\s*out\s*of\s*100`),
	regexp.MustCompile(`(?i)score\s+of\s+(-?\d+)`),
}

// scoreContextPattern finds a 1-3 digit number appearing after the word
// "score" on the same line, used when none of the explicit formats matched.
// A number on a later line is left to the last-lines scan instead.
var scoreContextPattern = regexp.MustCompile(`(?i)score.*?(\d{1,3})`)

// barewordNumber matches standalone 1-3 digit numbers for the last-lines
// fallback scan.
var barewordNumber = regexp.MustCompile(`\b(\d{1,3})\b`)

// ParseScore extracts the 0-100 score from a model response. It tries the
// explicit "Score: N" style formats first, then any number near the word
// "score", then standalone 0-100 numbers in the last five lines scanned
// bottom-up. Values outside [0, 100] from the explicit formats are clamped;
// if nothing matches, DefaultScore is returned.
func ParseScore(text string) int {
	for _, pattern := range scorePatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		score, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		return clamp(score)
	}

	if match := scoreContextPattern.FindStringSubmatch(text); match != nil {
		if score, err := strconv.Atoi(match[1]); err == nil && score >= 0 && score <= 100 {
			return score
		}
	}

	lines := strings.Split(text, "\n")
	if len(lines) > 5 {
		lines = lines[len(lines)-5:]
	}
	for i := len(lines) - 1; i >= 0; i-- {
		for _, numStr := range barewordNumber.FindAllString(lines[i], -1) {
			if score, err := strconv.Atoi(numStr); err == nil && score >= 0 && score <= 100 {
				return score
			}
		}
	}

	slog.Warn("could not parse score from model response, using default",
		"default", DefaultScore)
	return DefaultScore
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
