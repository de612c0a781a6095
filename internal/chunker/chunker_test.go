package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadlaws/legalbot/internal/port"
)

func TestNew_RejectsBadParameters(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 15},
		{"negative overlap", 10, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.size, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, port.ErrInvalidChunking)
		})
	}
}

func TestSplit_EmptyText(t *testing.T) {
	c, err := New(100, 10)
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplit_SingleChunkWhenTextFits(t *testing.T) {
	c, err := New(10, 2)
	require.NoError(t, err)

	chunks := c.Split("the quick brown fox")
	require.Len(t, chunks, 1)
	assert.Equal(t, "the quick brown fox", chunks[0])
}

func TestSplit_OverlapAndStride(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	chunks := c.Split("w0 w1 w2 w3 w4 w5 w6 w7 w8 w9")
	require.Equal(t, []string{
		"w0 w1 w2 w3",
		"w3 w4 w5 w6",
		"w6 w7 w8 w9",
	}, chunks)
}

func TestSplit_ThreeWordDocument(t *testing.T) {
	c, err := New(2, 0)
	require.NoError(t, err)

	chunks := c.Split("A B C")
	assert.Equal(t, []string{"A B", "C"}, chunks)
}

func TestSplit_CoversEveryWord(t *testing.T) {
	for _, tc := range []struct{ n, size, overlap int }{
		{1, 5, 0},
		{7, 3, 1},
		{50, 8, 3},
		{100, 10, 9},
		{101, 10, 0},
	} {
		t.Run(fmt.Sprintf("n=%d size=%d overlap=%d", tc.n, tc.size, tc.overlap), func(t *testing.T) {
			words := make([]string, tc.n)
			for i := range words {
				words[i] = fmt.Sprintf("w%d", i)
			}
			c, err := New(tc.size, tc.overlap)
			require.NoError(t, err)

			chunks := c.Split(strings.Join(words, " "))

			seen := map[string]bool{}
			for _, chunk := range chunks {
				for _, w := range strings.Fields(chunk) {
					seen[w] = true
				}
			}
			for _, w := range words {
				assert.True(t, seen[w], "word %s not covered", w)
			}

			// Boundary-adjusted chunk count: ceil((n - overlap) / stride).
			stride := tc.size - tc.overlap
			want := (tc.n - tc.overlap + stride - 1) / stride
			if tc.n <= tc.size {
				want = 1
			}
			assert.Len(t, chunks, want)
		})
	}
}

func TestSplit_LastChunkMayBeShort(t *testing.T) {
	c, err := New(3, 0)
	require.NoError(t, err)

	chunks := c.Split("a b c d")
	require.Len(t, chunks, 2)
	assert.Equal(t, "a b c", chunks[0])
	assert.Equal(t, "d", chunks[1])
}

func TestSplit_Deterministic(t *testing.T) {
	c, err := New(5, 2)
	require.NoError(t, err)

	text := "one two three four five six seven eight nine ten"
	assert.Equal(t, c.Split(text), c.Split(text))
}
