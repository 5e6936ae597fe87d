package assistant

import (
	"strings"
	"testing"
)

func TestFeedPassesThroughPlainDeltas(t *testing.T) {
	c := NewCleaner(3)

	if got := c.Feed("Hello"); got != "Hello" {
		t.Fatalf("unexpected delta: %q", got)
	}
	if got := c.Feed(" world"); got != " world" {
		t.Fatalf("unexpected delta: %q", got)
	}

	res := c.Flush()
	if res.Text != "Hello world" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.SuggestedQuestions) != 0 {
		t.Fatalf("unexpected questions: %v", res.SuggestedQuestions)
	}
}

func TestFeedStripsWholeTextEcho(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("The water cycle")
	// The proxy replays everything so far plus the new tail.
	if got := c.Feed("The water cycle has four stages"); got != " has four stages" {
		t.Fatalf("unexpected delta: %q", got)
	}
	if res := c.Flush(); res.Text != "The water cycle has four stages" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestFeedStripsBoundaryEcho(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("evapora")
	// The new delta re-sends the tail of what was already emitted.
	if got := c.Feed("ration"); got != "tion" {
		t.Fatalf("unexpected delta: %q", got)
	}
	if res := c.Flush(); res.Text != "evaporation" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestFeedExactEchoEmitsNothing(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("same text")
	if got := c.Feed("same text"); got != "" {
		t.Fatalf("an exact echo must emit nothing, got %q", got)
	}
	if got := c.Feed(""); got != "" {
		t.Fatalf("an empty delta must emit nothing, got %q", got)
	}
}

func TestFlushHarvestsLeakedQuestionJSON(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("Photosynthesis converts light into energy.")
	c.Feed(`{"questions":["What is chlorophyll?","Why are leaves green?"]}`)

	res := c.Flush()
	if res.Text != "Photosynthesis converts light into energy." {
		t.Fatalf("leaked JSON must be stripped, got %q", res.Text)
	}
	if len(res.SuggestedQuestions) != 2 {
		t.Fatalf("expected 2 harvested questions, got %v", res.SuggestedQuestions)
	}
	if res.SuggestedQuestions[0] != "What is chlorophyll?" {
		t.Fatalf("unexpected question: %q", res.SuggestedQuestions[0])
	}
}

func TestFeedStripsJSONFromEmittedDelta(t *testing.T) {
	c := NewCleaner(3)

	got := c.Feed(`before {"suggestions":["Q?"]} after`)
	if got != "before  after" {
		t.Fatalf("expected JSON removed from display delta, got %q", got)
	}
}

func TestFlushKeepsNonMetadataJSON(t *testing.T) {
	c := NewCleaner(3)

	// Balanced braces that are not valid JSON stay in the text.
	c.Feed("the set {1, 2, 3} is finite")
	if res := c.Flush(); res.Text != "the set {1, 2, 3} is finite" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestFlushCollapsesConsecutiveDuplicateLines(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("First point.\nFirst point.\nSecond point.")
	if res := c.Flush(); res.Text != "First point.\nSecond point." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestFlushSplitsHeadedQuestionTail(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("Mitosis is cell division.\n\n猜你想问\n- 什么是减数分裂？\n- 细胞为什么要分裂？\n")

	res := c.Flush()
	if res.Text != "Mitosis is cell division." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.SuggestedQuestions) != 2 {
		t.Fatalf("expected 2 questions, got %v", res.SuggestedQuestions)
	}
	if res.SuggestedQuestions[0] != "什么是减数分裂？" {
		t.Fatalf("unexpected question: %q", res.SuggestedQuestions[0])
	}
}

func TestFlushSplitsEnglishHeadedTail(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("Gravity pulls objects together.\nSuggested questions:\n1. What is mass?\n2) Why do objects fall?")

	res := c.Flush()
	if res.Text != "Gravity pulls objects together." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.SuggestedQuestions) != 2 {
		t.Fatalf("expected 2 questions, got %v", res.SuggestedQuestions)
	}
}

func TestFlushUnheadedSingleQuestionStaysInText(t *testing.T) {
	c := NewCleaner(3)

	// An answer ending with one question bullet is just an answer.
	c.Feed("Here is the idea.\n- Does that make sense?")

	res := c.Flush()
	if len(res.SuggestedQuestions) != 0 {
		t.Fatalf("a single unheaded question must not be claimed, got %v", res.SuggestedQuestions)
	}
	if !strings.Contains(res.Text, "Does that make sense?") {
		t.Fatalf("question must stay in the text, got %q", res.Text)
	}
}

func TestFlushUnheadedQuestionRunIsClaimed(t *testing.T) {
	c := NewCleaner(3)

	c.Feed("Answer body.\n- What about X?\n- What about Y?")

	res := c.Flush()
	if res.Text != "Answer body." {
		t.Fatalf("unexpected text: %q", res.Text)
	}
	if len(res.SuggestedQuestions) != 2 {
		t.Fatalf("expected 2 questions, got %v", res.SuggestedQuestions)
	}
}

func TestQuestionCapAndDedupe(t *testing.T) {
	c := NewCleaner(2)

	c.Feed(`{"questions":["A?","A?","B?","C?"]}`)

	res := c.Flush()
	if len(res.SuggestedQuestions) != 2 {
		t.Fatalf("expected the cap honored, got %v", res.SuggestedQuestions)
	}
	if res.SuggestedQuestions[0] != "A?" || res.SuggestedQuestions[1] != "B?" {
		t.Fatalf("unexpected questions: %v", res.SuggestedQuestions)
	}
}

func TestNewCleanerDefaultsCap(t *testing.T) {
	c := NewCleaner(0)
	if c.maxQuestions != 3 {
		t.Fatalf("expected default cap 3, got %d", c.maxQuestions)
	}
}

func TestSanitizeStripsActiveContent(t *testing.T) {
	c := NewCleaner(3)

	got := c.Sanitize(`<p>Hi <script>alert(1)</script><strong>there</strong></p>`)
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Fatalf("script must be stripped, got %q", got)
	}
	if !strings.Contains(got, "<strong>there</strong>") {
		t.Fatalf("formatting must survive, got %q", got)
	}
}

func TestSanitizeHardensLinks(t *testing.T) {
	c := NewCleaner(3)

	got := c.Sanitize(`<a href="https://example.com">ref</a>`)
	if !strings.Contains(got, `target="_blank"`) {
		t.Fatalf("expected target blank on external links, got %q", got)
	}
	if !strings.Contains(got, "noreferrer") {
		t.Fatalf("expected noreferrer on links, got %q", got)
	}
}

func TestSuffixPrefixOverlap(t *testing.T) {
	cases := []struct {
		text, delta string
		want        int
	}{
		{"", "abc", 0},
		{"abc", "", 0},
		{"hello wor", "world", 3},
		{"abc", "abc", 3},
		{"abc", "xyz", 0},
		{"aaa", "aab", 2},
	}
	for _, tc := range cases {
		if got := suffixPrefixOverlap(tc.text, tc.delta); got != tc.want {
			t.Fatalf("suffixPrefixOverlap(%q, %q) = %d, want %d", tc.text, tc.delta, got, tc.want)
		}
	}
}

func TestMatchBraceHonorsStrings(t *testing.T) {
	s := `{"a":"}"} tail`
	end, ok := matchBrace(s, 0)
	if !ok {
		t.Fatal("expected a balanced brace")
	}
	if s[:end+1] != `{"a":"}"}` {
		t.Fatalf("unexpected span: %q", s[:end+1])
	}

	if _, ok := matchBrace("{unclosed", 0); ok {
		t.Fatal("expected no match for an unclosed brace")
	}
}
