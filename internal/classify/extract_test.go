package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBareArray(t *testing.T) {
	t.Parallel()

	arr, err := extractJSONArray(`[{"id":1},{"id":2}]`)
	require.NoError(t, err)
	assert.Len(t, arr, 2)
}

func TestExtractFencedBlock(t *testing.T) {
	t.Parallel()

	response := "Here are the scores:\n```json\n[{\"id\": 1, \"relevance_score\": 4}]\n```\nLet me know if you need more."
	arr, err := extractJSONArray(response)
	require.NoError(t, err)
	require.Len(t, arr, 1)

	// Fence without a language hint also works.
	response = "```\n[{\"id\": 2}]\n```"
	arr, err = extractJSONArray(response)
	require.NoError(t, err)
	assert.Len(t, arr, 1)
}

func TestExtractEmbeddedInProse(t *testing.T) {
	t.Parallel()

	response := `After reviewing the articles, my assessment is [{"id": 3, "relevance_score": 2, "narrative_tags": ["quiet-tape"]}] as requested.`
	arr, err := extractJSONArray(response)
	require.NoError(t, err)
	assert.Len(t, arr, 1)
}

func TestExtractNothingUsable(t *testing.T) {
	t.Parallel()

	_, err := extractJSONArray("I could not score these articles.")
	assert.ErrorIs(t, err, errNoJSONArray)

	_, err = extractJSONArray(`{"id": 1}`)
	assert.ErrorIs(t, err, errNoJSONArray)
}
