package rouge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	t.Run("lowercases and strips punctuation", func(t *testing.T) {
		toks := Tokenize("Back-propagation, trains Neural networks!")
		require.Equal(t, []string{"back", "propagation", "trains", "neural", "networks"}, toks)
	})

	t.Run("empty input", func(t *testing.T) {
		require.Empty(t, Tokenize(""))
		require.Empty(t, Tokenize("  ...  "))
	})
}

func TestRouge1(t *testing.T) {
	t.Run("identical texts score 1", func(t *testing.T) {
		require.InDelta(t, 1.0, Rouge1("the cat sat", "the cat sat"), 1e-9)
	})

	t.Run("disjoint texts score 0", func(t *testing.T) {
		require.Zero(t, Rouge1("alpha beta", "gamma delta"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// candidate: {the, cat}; reference: {the, dog}; overlap 1.
		// precision 0.5, recall 0.5 -> F1 0.5
		require.InDelta(t, 0.5, Rouge1("the cat", "the dog"), 1e-9)
	})

	t.Run("repeated tokens are clipped", func(t *testing.T) {
		// "the the the" can only match the single "the" in the reference.
		// precision 1/3, recall 1/2 -> F1 0.4
		require.InDelta(t, 0.4, Rouge1("the the the", "the cat"), 1e-9)
	})

	t.Run("empty inputs score 0", func(t *testing.T) {
		require.Zero(t, Rouge1("", "reference"))
		require.Zero(t, Rouge1("candidate", ""))
	})
}

func TestRougeL(t *testing.T) {
	t.Run("identical texts score 1", func(t *testing.T) {
		require.InDelta(t, 1.0, RougeL("a b c d", "a b c d"), 1e-9)
	})

	t.Run("order matters", func(t *testing.T) {
		// Same unigrams, different order: ROUGE-1 is 1.0 but the LCS is
		// shorter than the full sequence.
		r1 := Rouge1("the sat cat", "the cat sat")
		rl := RougeL("the sat cat", "the cat sat")
		require.InDelta(t, 1.0, r1, 1e-9)
		require.Less(t, rl, r1)
	})

	t.Run("subsequence match", func(t *testing.T) {
		// LCS("a b c", "a x b y c") = 3; precision 1, recall 3/5 -> F1 0.75
		require.InDelta(t, 0.75, RougeL("a b c", "a x b y c"), 1e-9)
	})

	t.Run("empty inputs score 0", func(t *testing.T) {
		require.Zero(t, RougeL("", ""))
	})
}

func TestCompute(t *testing.T) {
	s := Compute("neural networks learn", "neural networks learn from data")
	require.Greater(t, s.Rouge1, 0.0)
	require.Greater(t, s.RougeL, 0.0)
	require.LessOrEqual(t, s.Rouge1, 1.0)
	require.LessOrEqual(t, s.RougeL, 1.0)
}
