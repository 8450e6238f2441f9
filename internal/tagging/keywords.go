package tagging

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

const (
	defaultMaxTags = 5
	bodyScanLimit  = 2000
	titleWeight    = 3
)

// rawRules maps tag -> keyword/phrase patterns, in declaration order.
// Declaration order breaks score ties, so this stays a slice.
var rawRules = []struct {
	tag      string
	keywords []string
}{
	{"ai", []string{
		"ai", "llm", "gpt", "openai", "anthropic", "deepseek", "claude",
		"gemini", "machine learning", "deep learning", "neural network",
		"transformer", "大模型", "人工智能", "chatgpt",
	}},
	{"crypto", []string{
		"bitcoin", "btc", "ethereum", "eth", "blockchain", "web3",
		"defi", "nft", "solana", "加密", "比特币", "币圈", "crypto",
	}},
	{"macro", []string{
		"fed", "federal reserve", "interest rate", "inflation", "gdp",
		"cpi", "ppi", "treasury", "yield curve", "recession",
		"宏观", "美联储", "利率", "通胀", "降息", "加息",
	}},
	{"geopolitics", []string{
		"sanctions", "tariff", "trade war", "geopolitic",
		"制裁", "关税", "贸易战", "台海", "地缘",
	}},
	{"china-market", []string{
		"a-share", "a股", "沪深", "港股", "北向资金", "中概",
		"上证", "深证", "恒生", "hsi", "hang seng",
	}},
	{"us-market", []string{
		"s&p 500", "s&p500", "nasdaq", "dow jones", "美股",
		"纳斯达克", "标普", "wall street", "nyse",
	}},
	{"sector/tech", []string{
		"semiconductor", "nvidia", "chip", "gpu", "tsmc", "asml",
		"芯片", "半导体", "台积电",
	}},
	{"sector/finance", []string{
		"bank", "fintech", "insurance", "银行", "金融", "保险",
	}},
	{"sector/energy", []string{
		"oil", "solar", "lithium", "ev ", "electric vehicle",
		"能源", "新能源", "电池", "光伏", "石油",
	}},
	{"trading", []string{
		"trading", "quant", "options", "futures", "hedge fund",
		"交易", "量化", "期权", "期货", "对冲",
	}},
	{"regulation", []string{
		"sec ", "compliance", "antitrust", "regulation",
		"监管", "合规", "反垄断",
	}},
	{"earnings", []string{
		"earnings", "revenue", "eps", "quarterly results", "guidance",
		"财报", "营收", "业绩", "净利润",
	}},
	{"commodities", []string{
		"gold", "silver", "copper", "iron ore", "crude oil",
		"黄金", "白银", "大宗商品", "原油",
	}},
}

type compiledRule struct {
	tag        string
	patterns   []*regexp.Regexp
	substrings []string
}

// KeywordTagger is a deterministic, rule-based topic scorer. It is a pure
// first-pass filter ahead of the external classifier: no I/O, no failure
// modes, absent input yields an empty result.
type KeywordTagger struct {
	rules   []compiledRule
	maxTags int
}

// NewKeywordTagger compiles the built-in rule table. maxTags <= 0 selects
// the default of 5.
func NewKeywordTagger(maxTags int) *KeywordTagger {
	if maxTags <= 0 {
		maxTags = defaultMaxTags
	}

	rules := make([]compiledRule, 0, len(rawRules))
	for _, raw := range rawRules {
		rule := compiledRule{tag: raw.tag}
		for _, kw := range raw.keywords {
			// Ideographic keywords have no word boundaries; match by substring.
			if containsIdeographic(kw) {
				rule.substrings = append(rule.substrings, strings.ToLower(kw))
				continue
			}
			rule.patterns = append(rule.patterns, compileKeyword(kw))
		}
		rules = append(rules, rule)
	}

	return &KeywordTagger{rules: rules, maxTags: maxTags}
}

// Score returns up to maxTags tags for the given title and body, sorted by
// descending weighted score with ties broken by rule declaration order.
// Title matches weigh 3x; only the first 2000 characters of the body are
// scanned to bound cost.
func (k *KeywordTagger) Score(title, body string) []string {
	title = strings.TrimSpace(title)
	body = truncateRunes(strings.TrimSpace(body), bodyScanLimit)

	titleLower := strings.ToLower(title)
	bodyLower := strings.ToLower(body)

	type scored struct {
		tag   string
		score int
		order int
	}

	var qualified []scored
	for i, rule := range k.rules {
		total := 0
		for _, pattern := range rule.patterns {
			total += len(pattern.FindAllStringIndex(title, -1)) * titleWeight
			total += len(pattern.FindAllStringIndex(body, -1))
		}
		for _, sub := range rule.substrings {
			total += strings.Count(titleLower, sub) * titleWeight
			total += strings.Count(bodyLower, sub)
		}
		if total > 0 {
			qualified = append(qualified, scored{tag: rule.tag, score: total, order: i})
		}
	}

	sort.Slice(qualified, func(a, b int) bool {
		if qualified[a].score != qualified[b].score {
			return qualified[a].score > qualified[b].score
		}
		return qualified[a].order < qualified[b].order
	})

	if len(qualified) > k.maxTags {
		qualified = qualified[:k.maxTags]
	}

	tags := make([]string, 0, len(qualified))
	for _, q := range qualified {
		tags = append(tags, q.tag)
	}
	return tags
}

// compileKeyword anchors a keyword at token boundaries, case-insensitive.
// Boundaries apply only where the keyword starts/ends with a word rune.
func compileKeyword(kw string) *regexp.Regexp {
	expr := regexp.QuoteMeta(kw)
	runes := []rune(kw)
	if isWordRune(runes[0]) {
		expr = `\b` + expr
	}
	if isWordRune(runes[len(runes)-1]) {
		expr += `\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func containsIdeographic(s string) bool {
	for _, r := range s {
		if r >= 0x4e00 && r <= 0x9fff {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
