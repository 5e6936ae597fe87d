// Package assistant consumes the learning-assistant proxy: a streaming
// chat client plus the post-processing that turns raw third-party model
// output into displayable text. The third-party service gives no format
// guarantees, so the cleaner is a set of defensive heuristics: echoed-text
// deduplication, leaked-JSON stripping, and suggested-question extraction.
package assistant

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"
)

// Result is the cleaned outcome of one finished stream.
type Result struct {
	// Text is the displayable answer body.
	Text string
	// SuggestedQuestions are follow-up questions extracted from the tail
	// of the answer, capped by the cleaner's limit.
	SuggestedQuestions []string
}

// questionLine matches one bullet/numbered line ending in a question mark
// (ASCII or fullwidth).
var questionLine = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)、])\s*(.+[?？])\s*$`)

// questionHeading matches the marker line the proxy emits before follow-up
// suggestions, in either language the platform serves.
var questionHeading = regexp.MustCompile(`(?i)^\s*(?:suggested questions?|you (?:can|could) (?:also )?ask|猜你想问|你可以继续问|相关问题)\s*[:：]?\s*$`)

// Cleaner post-processes one response stream. It is stateful per stream:
// create one Cleaner per chat turn, Feed it every delta, then Flush.
//
// Not safe for concurrent use; a stream is consumed by one goroutine.
type Cleaner struct {
	maxQuestions int
	sanitizer    *bluemonday.Policy
	text         strings.Builder
	questions    []string
}

// NewCleaner creates a Cleaner capping extracted follow-up questions at
// maxQuestions (non-positive means 3).
func NewCleaner(maxQuestions int) *Cleaner {
	if maxQuestions <= 0 {
		maxQuestions = 3
	}

	// Display-side allow-list: the assistant answers render as rich text,
	// so only inert formatting tags survive.
	policy := bluemonday.NewPolicy()
	policy.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowRelativeURLs(false)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	return &Cleaner{
		maxQuestions: maxQuestions,
		sanitizer:    policy,
	}
}

// Feed ingests one stream delta and returns the portion that is new,
// display-safe text. The proxy sometimes re-sends the whole answer so far
// instead of a delta; Feed detects the echo and emits only the suffix.
func (c *Cleaner) Feed(delta string) string {
	if delta == "" {
		return ""
	}

	current := c.text.String()

	// Whole-text echo: delta replays everything already seen.
	if current != "" && strings.HasPrefix(delta, current) {
		delta = delta[len(current):]
		if delta == "" {
			return ""
		}
	}

	// Boundary echo: the delta's head repeats the tail already emitted.
	if overlap := suffixPrefixOverlap(current, delta); overlap > 0 {
		delta = delta[overlap:]
		if delta == "" {
			return ""
		}
	}

	c.text.WriteString(delta)
	return stripJSONFragments(delta)
}

// Flush finishes the stream: strips leaked JSON, collapses duplicated
// lines, splits off the suggested-question block, and returns the cleaned
// result. The Cleaner is spent afterwards.
func (c *Cleaner) Flush() Result {
	raw := c.text.String()

	cleaned, harvested := harvestJSONFragments(raw)
	c.addQuestions(harvested)

	cleaned = dedupeLines(cleaned)

	body, tailQuestions := splitQuestionTail(cleaned)
	c.addQuestions(tailQuestions)

	return Result{
		Text:               strings.TrimSpace(body),
		SuggestedQuestions: c.questions,
	}
}

// Sanitize reduces an HTML rendering of the answer to the display
// allow-list. Idempotent.
func (c *Cleaner) Sanitize(rawHTML string) string {
	return c.sanitizer.Sanitize(rawHTML)
}

func (c *Cleaner) addQuestions(questions []string) {
	for _, q := range questions {
		if len(c.questions) >= c.maxQuestions {
			return
		}
		if q == "" || contains(c.questions, q) {
			continue
		}
		c.questions = append(c.questions, q)
	}
}

// suffixPrefixOverlap returns the longest length k such that the last k
// bytes of text equal the first k bytes of delta. Quadratic in the overlap
// bound, which is capped to keep per-delta work constant.
func suffixPrefixOverlap(text, delta string) int {
	const maxOverlap = 256

	limit := len(delta)
	if len(text) < limit {
		limit = len(text)
	}
	if limit > maxOverlap {
		limit = maxOverlap
	}

	for k := limit; k > 0; k-- {
		if text[len(text)-k:] == delta[:k] {
			return k
		}
	}
	return 0
}

// stripJSONFragments removes leaked metadata objects from a delta without
// harvesting them (harvesting needs the full text; see
// harvestJSONFragments).
func stripJSONFragments(s string) string {
	cleaned, _ := harvestJSONFragments(s)
	return cleaned
}

// harvestJSONFragments finds balanced {...} spans that parse as JSON and
// removes them from the text. Fragments carrying a questions array (the
// proxy's suggestion payload, leaked into the text channel) contribute
// their questions to the harvest.
func harvestJSONFragments(s string) (string, []string) {
	if !strings.ContainsRune(s, '{') {
		return s, nil
	}

	var out strings.Builder
	var questions []string
	i := 0
	for i < len(s) {
		if s[i] != '{' {
			out.WriteByte(s[i])
			i++
			continue
		}

		end, ok := matchBrace(s, i)
		if !ok {
			out.WriteByte(s[i])
			i++
			continue
		}

		fragment := s[i : end+1]
		if !gjson.Valid(fragment) {
			out.WriteByte(s[i])
			i++
			continue
		}

		for _, key := range []string{"questions", "suggested_questions", "suggestions"} {
			arr := gjson.Get(fragment, key)
			if !arr.IsArray() {
				continue
			}
			for _, item := range arr.Array() {
				if q := strings.TrimSpace(item.String()); q != "" {
					questions = append(questions, q)
				}
			}
		}

		i = end + 1
	}

	return out.String(), questions
}

// matchBrace returns the index of the brace closing the one at start,
// honoring JSON string literals and escapes.
func matchBrace(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// dedupeLines collapses consecutive duplicate non-blank lines, a common
// artifact of the proxy replaying its tail across chunk boundaries.
func dedupeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	prev := ""
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && trimmed == prev {
			continue
		}
		out = append(out, line)
		if trimmed != "" {
			prev = trimmed
		}
	}
	return strings.Join(out, "\n")
}

// splitQuestionTail slices a trailing suggestion block off the answer:
// a heading line such as "Suggested questions:" followed by bullet or
// numbered question lines. The block may also appear unheaded as a pure
// run of question bullets at the very end.
func splitQuestionTail(s string) (string, []string) {
	lines := strings.Split(s, "\n")

	// Walk back over trailing blank and question lines.
	end := len(lines)
	for end > 0 && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}

	start := end
	var questions []string
	for start > 0 {
		m := questionLine.FindStringSubmatch(lines[start-1])
		if m == nil {
			break
		}
		questions = append([]string{strings.TrimSpace(m[1])}, questions...)
		start--
	}

	if len(questions) == 0 {
		return s, nil
	}

	// An unheaded single trailing question is just the answer ending with
	// a question; require a heading to claim it.
	headed := start > 0 && questionHeading.MatchString(lines[start-1])
	if headed {
		start--
	} else if len(questions) < 2 {
		return s, nil
	}

	return strings.Join(lines[:start], "\n"), questions
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
