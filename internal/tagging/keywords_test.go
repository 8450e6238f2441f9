package tagging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreCrypto(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	tags := tagger.Score("Bitcoin hits 100k", "BTC surges past all-time high")
	assert.Contains(t, tags, "crypto")
}

func TestScoreAI(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	tags := tagger.Score("OpenAI releases GPT-5", "The new LLM model...")
	assert.Contains(t, tags, "ai")
}

func TestScoreMacro(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	tags := tagger.Score("Fed cuts rates by 25bp", "Interest rate decision")
	assert.Contains(t, tags, "macro")
}

func TestScoreIdeographicKeywords(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	tags := tagger.Score("美联储降息25基点", "利率决议后美股大涨")
	assert.Contains(t, tags, "macro")
	assert.Contains(t, tags, "us-market")

	tags = tagger.Score("大模型最新进展", "人工智能在金融领域的应用")
	assert.Contains(t, tags, "ai")
}

func TestScoreMultipleTags(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	tags := tagger.Score("NVIDIA earnings beat", "GPU demand fueled by AI training")
	assert.Contains(t, tags, "sector/tech")
	assert.Contains(t, tags, "ai")
	assert.Contains(t, tags, "earnings")
}

func TestScoreTokenBoundaries(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	// "air" must not match the "ai" keyword, "bethany" must not match "eth".
	tags := tagger.Score("Air quality report for Bethany", "nothing about markets")
	assert.NotContains(t, tags, "ai")
	assert.NotContains(t, tags, "crypto")
}

func TestScoreEmptyInput(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	assert.Empty(t, tagger.Score("", ""))
}

func TestScoreMaxTags(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(2)
	text := "bitcoin fed nvidia gold trading earnings bank oil tariff nasdaq"
	tags := tagger.Score(text, text)
	assert.Len(t, tags, 2)
}

func TestScoreTitleWeighting(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	// One title mention (x3) must outrank two body mentions.
	tags := tagger.Score("bitcoin", "fed says fed")
	assert.Equal(t, []string{"crypto", "macro"}, tags)
}

func TestScoreBodyTruncation(t *testing.T) {
	t.Parallel()

	tagger := NewKeywordTagger(0)
	padding := strings.Repeat("x ", 1100) // pushes the keyword past 2000 chars
	tags := tagger.Score("", padding+"bitcoin")
	assert.NotContains(t, tags, "crypto")
}
