package crawler

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestWordCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "empty string",
			text: "",
			want: 0,
		},
		{
			name: "plain sentence",
			text: "The quick brown fox",
			want: 4,
		},
		{
			name: "hyphenated word counts once",
			text: "state-of-the-art design",
			want: 2,
		},
		{
			name: "apostrophe stays inside the word",
			text: "it's Moore's law",
			want: 3,
		},
		{
			name: "standalone number counts",
			text: "released in 2024",
			want: 3,
		},
		{
			name: "punctuation soup counts nothing",
			text: "... --- !!! ###",
			want: 0,
		},
		{
			name: "accented words",
			text: "café naïve résumé",
			want: 3,
		},
		{
			name: "mixed prose and digits",
			text: "Chapter 7: the 2nd part",
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := WordCount(tt.text); got != tt.want {
				t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestTextRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		textLen int
		htmlLen int
		want    float64
	}{
		{name: "empty html", textLen: 100, htmlLen: 0, want: 0},
		{name: "half", textLen: 50, htmlLen: 100, want: 0.5},
		{name: "rounds to four decimals", textLen: 1, htmlLen: 3, want: 0.3333},
		{name: "full text", textLen: 80, htmlLen: 80, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := TextRatio(tt.textLen, tt.htmlLen); got != tt.want {
				t.Errorf("TextRatio(%d, %d) = %v, want %v", tt.textLen, tt.htmlLen, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	t.Run("should return short input unchanged", func(t *testing.T) {
		t.Parallel()

		if got := Excerpt("A short sentence.", 100); got != "A short sentence." {
			t.Errorf("Excerpt() = %q, want input unchanged", got)
		}
	})

	t.Run("should normalize whitespace", func(t *testing.T) {
		t.Parallel()

		if got := Excerpt("spread \n\t across   lines", 100); got != "spread across lines" {
			t.Errorf("Excerpt() = %q, want %q", got, "spread across lines")
		}
	})

	t.Run("should cut at the last sentence boundary", func(t *testing.T) {
		t.Parallel()

		got := Excerpt("First sentence. Second sentence. Third goes past the cut.", 40)
		if got != "First sentence. Second sentence." {
			t.Errorf("Excerpt() = %q, want cut at sentence boundary", got)
		}
	})

	t.Run("should fall back to a word boundary with ellipsis", func(t *testing.T) {
		t.Parallel()

		got := Excerpt("no terminal punctuation anywhere in this text", 20)
		if !strings.HasSuffix(got, "…") {
			t.Errorf("Excerpt() = %q, want ellipsis suffix", got)
		}
		if strings.Contains(got, "punctuation…") {
			t.Errorf("Excerpt() = %q, cut mid-word", got)
		}
	})

	t.Run("should hard cut an unbroken run", func(t *testing.T) {
		t.Parallel()

		got := Excerpt(strings.Repeat("x", 50), 10)
		if got != strings.Repeat("x", 10)+"…" {
			t.Errorf("Excerpt() = %q, want hard cut with ellipsis", got)
		}
	})

	t.Run("should never exceed the limit plus the marker", func(t *testing.T) {
		t.Parallel()

		inputs := []string{
			"Sentence one. Sentence two. Sentence three. Sentence four and some trailing words",
			strings.Repeat("word ", 500),
			strings.Repeat("y", 2000),
			"short",
		}
		for _, input := range inputs {
			for _, limit := range []int{10, 80, ExcerptLimit} {
				got := Excerpt(input, limit)
				if n := utf8.RuneCountInString(got); n > limit+1 {
					t.Errorf("Excerpt(limit=%d) produced %d runes: %q", limit, n, got)
				}
			}
		}
	})
}
