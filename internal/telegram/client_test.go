package telegram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"halo"}, splitByBytes("halo", 4096))

	text := strings.Repeat("é", 10)
	parts := splitByBytes(text, 5)
	require.Len(t, parts, 5)
	for _, p := range parts {
		assert.True(t, utf8.ValidString(p))
		assert.LessOrEqual(t, len(p), 5)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "abc", truncateByBytes("abc", 10))
	assert.Equal(t, "éé", truncateByBytes("ééé", 5))
}

func TestToMarkup(t *testing.T) {
	_, ok := toMarkup(nil)
	assert.False(t, ok)

	markup, ok := toMarkup(Keyboard{
		{{Text: "A", Data: "a"}, {Text: "B", Data: "b"}},
		{},
		{{Text: "C", Data: "c"}},
	})
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	require.NotNil(t, markup.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, "c", *markup.InlineKeyboard[1][0].CallbackData)
}

func TestNewValidates(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Token: "123:abc"})
	assert.Error(t, err)
}
