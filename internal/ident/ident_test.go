package ident

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidName(t *testing.T) {
	ref, err := New("prompt_history", nil)
	require.NoError(t, err)
	assert.Equal(t, "prompt_history", ref.Name())
	assert.Equal(t, `"prompt_history"`, ref.Quote())
}

func TestNew_RejectsMetaCharacters(t *testing.T) {
	for _, name := range []string{
		`users"; DROP TABLE users; --`,
		"users;delete",
		"users'",
		"users name",
		"users.name",
	} {
		_, err := New(name, nil)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, "name %q", name)
	}
}

func TestNew_RejectsGrammarViolations(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"uppercase":     "Users",
		"leading digit": "1users",
		"too long":      strings.Repeat("a", 64),
	}
	for label, name := range cases {
		_, err := New(name, nil)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, label)
	}
}

func TestNew_RejectsReservedWords(t *testing.T) {
	_, err := New("select", nil)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestNew_AllowList(t *testing.T) {
	allowed := []string{"feedback", "prompt_history"}

	ref, err := New("feedback", allowed)
	require.NoError(t, err)
	assert.Equal(t, "feedback", ref.Name())

	_, err = New("user_profiles", allowed)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestQuote_EscapesEmbeddedQuotes(t *testing.T) {
	// The grammar forbids quotes, so exercise Quote directly.
	r := Ref{name: `bad"name`}
	assert.Equal(t, `"bad""name"`, r.Quote())
}
