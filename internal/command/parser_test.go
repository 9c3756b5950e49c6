package command

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParse_Empty(t *testing.T) {
	result, err := Parse("   ")
	require.NoError(t, err)
	assert.Equal(t, "", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_SingleWord(t *testing.T) {
	result, err := Parse("presets")
	require.NoError(t, err)
	assert.Equal(t, "presets", result.Command)
	assert.Nil(t, result.Args)
}

func TestParse_Lowercase(t *testing.T) {
	result, err := Parse("ROLL 1D20")
	require.NoError(t, err)
	assert.Equal(t, "roll", result.Command)
	assert.Equal(t, []string{"1D20"}, result.Args)
}

func TestParse_ExtraWhitespace(t *testing.T) {
	result, err := Parse("  roll \t  4d6dl1   ")
	require.NoError(t, err)
	assert.Equal(t, "roll", result.Command)
	assert.Equal(t, []string{"4d6dl1"}, result.Args)
}

func TestParse_Quotes(t *testing.T) {
	result, err := Parse(`roll -note "sneak attack, flanking" -label 'Short Sword' 1d6+3`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-note", "sneak attack, flanking", "-label", "Short Sword", "1d6+3"}, result.Args)

	result, err = Parse(`roll -note "" 1d6`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-note", "", "1d6"}, result.Args)

	result, err = Parse(`roll -note "it's" d4`)
	require.NoError(t, err)
	assert.Equal(t, []string{"-note", "it's", "d4"}, result.Args)
}

func TestParse_UnterminatedQuote(t *testing.T) {
	_, err := Parse(`roll -note "oops 1d6`)
	assert.Error(t, err)
}

func TestPropertyParseAlwaysLowercasesCommand(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		word := rapid.StringMatching(`[A-Za-z]{1,20}`).Draw(t, "word")
		result, err := Parse(word)
		if err != nil {
			t.Fatalf("Parse(%q): %v", word, err)
		}
		if result.Command != strings.ToLower(word) {
			t.Fatalf("Parse(%q).Command = %q", word, result.Command)
		}
	})
}

func TestPropertyParseUnquotedMatchesFields(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		words := rapid.SliceOfN(rapid.StringMatching(`[a-z0-9+\-]{1,8}`), 1, 6).Draw(t, "words")
		result, err := Parse(strings.Join(words, "  "))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		assert.Equal(t, words[0], result.Command)
		if len(words) > 1 {
			assert.Equal(t, words[1:], result.Args)
		} else {
			assert.Nil(t, result.Args)
		}
	})
}
