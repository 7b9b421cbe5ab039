package triage

import (
	"regexp"
)

// Transient patterns: queries matching any of these are never worth
// consolidating, whatever the other signals say.
var transientPatterns = []*regexp.Regexp{
	// Greetings and pleasantries.
	regexp.MustCompile(`(?i)^\s*(hi|hey|hello|yo|good (morning|afternoon|evening)|thanks?|thank you|bye|goodbye)\s*[.!?]*\s*$`),
	// Pure time and weather lookups.
	regexp.MustCompile(`(?i)^\s*what('s| is)? the (time|date|weather)\b`),
	regexp.MustCompile(`(?i)^\s*what time is it\b`),
	regexp.MustCompile(`(?i)^\s*(how('s| is) the weather|is it (raining|snowing))\b`),
	// Trivially short questions.
	regexp.MustCompile(`(?i)^\s*\S{1,3}\s*\??\s*$`),
	// Simple factual one-liners.
	regexp.MustCompile(`(?i)^\s*(what day is (it|today)|what('s| is) today('s)? date)\b`),
}

// Technical vocabulary that makes a query worth remembering.
var technicalKeywordRe = regexp.MustCompile(`(?i)\b(api|database|sql|server|deploy|docker|kubernetes|function|algorithm|compile|regex|cache|thread|goroutine|index|query|schema|migration|encrypt|token|latency)\b`)

// Error and debugging language.
var errorLanguageRe = regexp.MustCompile(`(?i)\b(error|exception|traceback|stack trace|panic|segfault|crash|debug|fails?|failing|broken|bug)\b`)

// Code detection, shared thresholds with the salience scorer's notion of
// "code present".
var (
	fencedCodeRe = regexp.MustCompile("```")
	inlineCodeRe = regexp.MustCompile("`[^`]+`")
	codeSyntaxRe = regexp.MustCompile(`(?m)(func\s+\w+\s*\(|def\s+\w+\s*\(|class\s+\w+|import\s+[\w."/]+|=>\s|;\s*$)`)
)

func isTransientQuestion(question string) bool {
	for _, re := range transientPatterns {
		if re.MatchString(question) {
			return true
		}
	}
	return false
}

func containsCode(text string) bool {
	if text == "" {
		return false
	}
	return fencedCodeRe.MatchString(text) ||
		inlineCodeRe.MatchString(text) ||
		codeSyntaxRe.MatchString(text)
}
