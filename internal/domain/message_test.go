package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_Validation(t *testing.T) {
	_, err := NewMessage(UserAuthor("u1"), "", "", 0, nil, 100)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewMessage(UserAuthor("u1"), "   ", "", 0, nil, 100)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewMessage(UserAuthor("u1"), "aaaaaa", "", 0, nil, 5)
	assert.ErrorIs(t, err, ErrValidation)

	msg, err := NewMessage(UserAuthor("u1"), "smoky nose", "nose", 0, []string{"peat"}, 100)
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "smoky nose", msg.Content)
	assert.True(t, msg.Author.Is("u1"))
	assert.False(t, msg.Author.System)
}

func TestScanSpoilers(t *testing.T) {
	assert.Empty(t, ScanSpoilers("no spoilers here"))

	ranges := ScanSpoilers("I got ||vanilla|| on the nose")
	require.Len(t, ranges, 1)
	assert.Equal(t, "vanilla", "I got ||vanilla|| on the nose"[ranges[0].Start:ranges[0].End])

	content := "||a|| and ||bb||"
	ranges = ScanSpoilers(content)
	require.Len(t, ranges, 2)
	assert.Equal(t, "a", content[ranges[0].Start:ranges[0].End])
	assert.Equal(t, "bb", content[ranges[1].Start:ranges[1].End])

	// Unpaired trailing delimiter is plain text.
	assert.Empty(t, ScanSpoilers("half ||open"))
	assert.Len(t, ScanSpoilers("||x|| then ||open"), 1)
}

func TestMessageContentRoundTrip(t *testing.T) {
	raw := "the finish is ||long and ashy||, honestly"
	msg, err := NewMessage(UserAuthor("u1"), raw, "finish", 0, nil, 0)
	require.NoError(t, err)

	// Raw delimited text round-trips exactly; ranges are derived.
	assert.Equal(t, raw, msg.Content)
	require.Len(t, msg.Spoilers, 1)
	assert.Equal(t, "long and ashy", raw[msg.Spoilers[0].Start:msg.Spoilers[0].End])

	edited := "the finish is ||short||"
	require.NoError(t, msg.SetContent(edited, 0))
	assert.Equal(t, edited, msg.Content)
	require.Len(t, msg.Spoilers, 1)
	assert.Equal(t, "short", edited[msg.Spoilers[0].Start:msg.Spoilers[0].End])
}

func TestParseGrade(t *testing.T) {
	g, err := ParseGrade("steal")
	require.NoError(t, err)
	assert.Equal(t, GradeSteal, g)

	_, err = ParseGrade("amazing")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidPhase(t *testing.T) {
	assert.True(t, ValidPhase("", nil))
	assert.True(t, ValidPhase("nose", nil))
	assert.False(t, ValidPhase("decant", nil))
	assert.True(t, ValidPhase("decant", []string{"decant"}))
}

func TestValidRating(t *testing.T) {
	assert.True(t, ValidRating(0))
	assert.True(t, ValidRating(100))
	assert.False(t, ValidRating(-1))
	assert.False(t, ValidRating(100.5))
}
