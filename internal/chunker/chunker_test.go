package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/JeremiasMeza/IA-Rag/internal/errors"
)

func makeWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

func TestNewRejectsInvalidParams(t *testing.T) {
	cases := []struct {
		name       string
		windowSize int
		overlap    int
	}{
		{"zero window", 0, 0},
		{"negative window", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals window", 100, 100},
		{"overlap exceeds window", 100, 150},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.windowSize, tc.overlap)
			require.Error(t, err)
			appErr := apperrors.GetAppError(err)
			assert.Equal(t, apperrors.ErrCodeInvalidChunking, appErr.Code)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestSplitWindowBoundaries(t *testing.T) {
	c, err := New(400, 100)
	require.NoError(t, err)

	chunks := c.Split(makeWords(1000))
	require.Len(t, chunks, 4)

	// 窗口起点按步长300前进：[0,400) [300,700) [600,1000) [900,1000)
	assert.Equal(t, "w0", strings.Fields(chunks[0])[0])
	assert.Len(t, strings.Fields(chunks[0]), 400)
	assert.Equal(t, "w300", strings.Fields(chunks[1])[0])
	assert.Len(t, strings.Fields(chunks[1]), 400)
	assert.Equal(t, "w600", strings.Fields(chunks[2])[0])
	assert.Len(t, strings.Fields(chunks[2]), 400)
	assert.Equal(t, "w900", strings.Fields(chunks[3])[0])
	assert.Len(t, strings.Fields(chunks[3]), 100)
}

func TestSplitShortInput(t *testing.T) {
	c, err := New(400, 100)
	require.NoError(t, err)

	chunks := c.Split("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplitEmptyInput(t *testing.T) {
	c, err := New(400, 100)
	require.NoError(t, err)

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplitCoversEveryWord(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	total := 537
	chunks := c.Split(makeWords(total))

	seen := make(map[string]bool)
	for _, chunk := range chunks {
		for _, w := range strings.Fields(chunk) {
			seen[w] = true
		}
	}
	// 每个词元至少出现在一个块中
	assert.Len(t, seen, total)
}

func TestSplitOverlapSharedBetweenNeighbors(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	chunks := c.Split(makeWords(20))
	require.True(t, len(chunks) >= 2)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	// 第一个窗口的最后3个词元与第二个窗口的前3个相同
	assert.Equal(t, first[len(first)-3:], second[:3])
}

func TestSplitZeroOverlap(t *testing.T) {
	c, err := New(5, 0)
	require.NoError(t, err)

	chunks := c.Split(makeWords(12))
	require.Len(t, chunks, 3)
	assert.Len(t, strings.Fields(chunks[2]), 2)
}
