package classify

import (
	"fmt"
	"strings"

	"ContentRadar/internal/domain"
)

const contentPromptLimit = 1000

const systemPrompt = `You are a trading analyst assistant. For each article, you must:

1. Rate its **relevance_score** (1-5) for an active multi-market trader:
   - 5: Directly actionable — earnings surprise, policy change, major breakout
   - 4: High relevance — sector trend, significant macro data, important KOL thesis
   - 3: Moderate — general market commentary, industry news
   - 2: Low — tangentially related to markets
   - 1: Noise — not useful for trading decisions

2. Generate **narrative_tags** — short descriptive phrases (2-4 words each) capturing the article's trading-relevant narrative. Examples: "nvidia-earnings-beat", "fed-rate-pause", "btc-etf-inflows", "china-stimulus-hope".

Respond with a JSON array. Each element must have:
- "id": the article id (integer)
- "relevance_score": integer 1-5
- "narrative_tags": list of 1-3 short narrative tag strings

Example response:
[
  {"id": 1, "relevance_score": 4, "narrative_tags": ["nvidia-earnings-beat", "ai-capex-growth"]},
  {"id": 2, "relevance_score": 2, "narrative_tags": ["general-market-commentary"]}
]

Respond ONLY with the JSON array, no other text.`

// buildPrompt renders the batch into the instruction template. The response
// format contract lives in the template, so prompt shape changes require
// matching changes in validation.
func buildPrompt(batch []domain.ContentRecord) string {
	parts := make([]string, 0, len(batch))
	for _, rec := range batch {
		title := rec.Title
		if title == "" {
			title = "(no title)"
		}
		source := rec.Source
		if source == "" {
			source = "unknown"
		}
		content := truncateRunes(rec.Body, contentPromptLimit)
		parts = append(parts, fmt.Sprintf("[Article ID=%d, source=%s]\nTitle: %s\nContent: %s\n",
			rec.ID, source, title, content))
	}

	return systemPrompt + "\n\nHere are the articles to score:\n\n" + strings.Join(parts, "\n---\n")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
