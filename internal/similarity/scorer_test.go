package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "uppercases", input: "my shop", want: "MY SHOP"},
		{name: "collapses whitespace", input: "MY   \t SHOP", want: "MY SHOP"},
		{name: "trims", input: "  netflix  ", want: "NETFLIX"},
		{name: "empty", input: "   ", want: ""},
		{name: "keeps non-ascii", input: "café  crème", want: "CAFÉ CRÈME"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identical strings score one", func(t *testing.T) {
		for _, s := range []string{"A", "NETFLIX", "MY CHICKEN SHOP", "swiggy instamart"} {
			assert.InDelta(t, 1.0, Similarity(s, s), 1e-9, s)
		}
	})

	t.Run("empty side scores zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("NETFLIX", ""))
		assert.Equal(t, 0.0, Similarity("", "NETFLIX"))
		assert.Equal(t, 0.0, Similarity("NETFLIX", "   "))
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("MY  SHOP", "my shop"))
	})

	t.Run("dissimilar strings score low", func(t *testing.T) {
		assert.Less(t, Similarity("MY CHICKEN SHOP", "AMAZON PRIME"), 0.3)
	})

	t.Run("single edit", func(t *testing.T) {
		// one substitution over seven characters
		assert.InDelta(t, 1.0-1.0/7.0, Similarity("NETFLIX", "NETFLIQ"), 1e-9)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, Similarity("SPOTIFY", "SPOTIFY AB"), Similarity("SPOTIFY AB", "SPOTIFY"), 1e-9)
	})

	t.Run("bounded", func(t *testing.T) {
		score := Similarity("ABC", "XYZWVU")
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 1.0)
	})
}

func TestIsSimilar(t *testing.T) {
	assert.True(t, IsSimilar("MY CHICKEN SHOP", "MY CHICKEN STORE", DefaultThreshold))
	assert.False(t, IsSimilar("MY CHICKEN SHOP", "NETFLIX", DefaultThreshold))
	assert.True(t, IsSimilar("netflix", "NETFLIX", 1.0))
}

func TestFindBestMatch(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		candidates []string
		want       string
		wantFound  bool
	}{
		{
			name:       "picks closest candidate",
			query:      "MY CHICKEN SHOP",
			candidates: []string{"CHICKEN CORNER", "MY CHICKEN STORE", "NETFLIX"},
			want:       "MY CHICKEN STORE",
			wantFound:  true,
		},
		{
			name:       "nothing above threshold",
			query:      "MY CHICKEN SHOP",
			candidates: []string{"NETFLIX", "SPOTIFY"},
			wantFound:  false,
		},
		{
			name:       "ties keep first",
			query:      "ABCD",
			candidates: []string{"ABCX", "ABCY"},
			want:       "ABCX",
			wantFound:  true,
		},
		{
			name:      "no candidates",
			query:     "ABCD",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, score, found := FindBestMatch(tt.query, tt.candidates, DefaultThreshold)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
			if found {
				assert.GreaterOrEqual(t, score, DefaultThreshold)
			}
		})
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "kitten", b: "sitting", want: 3},
		{a: "SHOP", b: "SHOP", want: 0},
		{a: "", b: "abcd", want: 4},
		{a: "CAFÉ", b: "CAFE", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshtein([]rune(tt.a), []rune(tt.b)))
			assert.Equal(t, tt.want, levenshtein([]rune(tt.b), []rune(tt.a)))
		})
	}
}
