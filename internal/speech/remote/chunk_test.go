package remote

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
)

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	text := "  Save first. Spend later!  "
	got := Split(text, 200)
	if diff := cmp.Diff([]string{text}, got); diff != "" {
		t.Fatalf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitBlank(t *testing.T) {
	if got := Split(" \n\t", 200); got != nil {
		t.Fatalf("Split(blank) = %q, want nil", got)
	}
}

func TestSplitPacksSentences(t *testing.T) {
	text := "One two. Three four! Five six? Seven."
	got := Split(text, 19)
	want := []string{"One two.", "Three four!", "Five six? Seven."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitDanda(t *testing.T) {
	text := "पैसे बचाना ज़रूरी है। बजट बनाइए। खर्च लिखिए।"
	got := Split(text, 12)
	want := []string{"पैसे बचाना ज़रूरी है।", "बजट बनाइए।", "खर्च लिखिए।"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitKeepsDecimalNumbers(t *testing.T) {
	text := "Your SIP grows to ₹1.5 lakh in ten years. Start early. Returns near 12.0% are rare."
	got := Split(text, 45)
	want := []string{
		"Your SIP grows to ₹1.5 lakh in ten years.",
		"Start early. Returns near 12.0% are rare.",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitOversizedSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("a", 250) + "."
	text := long + " Short one."
	got := Split(text, 200)
	want := []string{long, "Short one."}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitKeepsUnterminatedTail(t *testing.T) {
	text := strings.Repeat("word ", 30) + "end. and a tail without a stop"
	got := Split(text, 100)
	if last := got[len(got)-1]; !strings.HasSuffix(last, "without a stop") {
		t.Fatalf("last chunk = %q, want the unterminated tail", last)
	}
}

func TestSplitRunOfTerminators(t *testing.T) {
	got := sentences("Really?! Yes... ok")
	want := []string{"Really?!", "Yes...", "ok"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sentences mismatch (-want +got):\n%s", diff)
	}
}

func TestSplitInvariants(t *testing.T) {
	texts := []string{
		strings.Repeat("Budgets help you plan. ", 40),
		strings.Repeat("एसआईपी से निवेश करें। ", 30) + "अंत",
		"A. " + strings.Repeat("b", 300) + "! C? D.",
	}

	for _, text := range texts {
		chunks := Split(text, 200)
		if stripSpace(strings.Join(chunks, "")) != stripSpace(text) {
			t.Errorf("chunks do not reproduce the text: %q", chunks)
		}
		for _, c := range chunks {
			if c == "" {
				t.Errorf("empty chunk in %q", chunks)
			}
			// Only a lone sentence may exceed the limit.
			if utf8.RuneCountInString(c) > 200 && len(sentences(c)) != 1 {
				t.Errorf("chunk over limit holds several sentences: %q", c)
			}
		}
	}
}
