package engine

import "testing"

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"abcdefgh", 2},
	}
	for _, c := range cases {
		if got := estimateTokens(c.text); got != c.want {
			t.Errorf("estimateTokens(%q) = %d, want %d", c.text, got, c.want)
		}
	}
}

func TestTokensOfHelperAgreesWithEstimateTokens(t *testing.T) {
	for _, n := range []int{0, 1, 5, 40, 120} {
		text := make([]byte, 4*n)
		for i := range text {
			text[i] = 'x'
		}
		if got := estimateTokens(string(text)); got != n {
			t.Errorf("estimateTokens(%d chars of x) = %d, want %d", 4*n, got, n)
		}
	}
}
