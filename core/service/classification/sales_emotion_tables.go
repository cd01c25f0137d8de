package classification

import (
	"regexp"

	"sales_server/core/domain"
)

// =============================================================================
// Classification tables
// =============================================================================

const (
	// buyingIntentWeight is added once when any buying-intent pattern hits.
	buyingIntentWeight = 10
	// defaultPhraseWeight is the category score for a phrase hit.
	defaultPhraseWeight = 5
)

// emotionCategory is one row of the phrase table.
type emotionCategory struct {
	emotion domain.Emotion
	phrases []string
	weight  int
}

// buyingIntentPatterns are verb+object patterns, evaluated in order.
var buyingIntentPatterns = compileAll(
	`(i want to|i need to|i'll|i will|gonna|going to).*(buy|purchase|get|order)`,
	`(how do i|where can i).*(buy|purchase|order|get)`,
	`(ready to|want to|need to).*(buy|purchase|order)`,
	`(add to cart|checkout|place order|make purchase)`,
)

// emotionTable lists every category in the order its hits are reported.
var emotionTable = []emotionCategory{
	{emotion: domain.EmotionReadyToBuy, phrases: []string{
		"i'll take it", "i want to buy", "ready to purchase", "let's do this",
		"sign me up", "sold", "count me in", "i'm convinced", "i'll get it",
	}},
	{emotion: domain.EmotionPriceShopping, phrases: []string{
		"how much", "what's the price", "cost", "expensive", "affordable",
		"budget", "cheap", "deals", "discount", "sale price", "worth it",
	}},
	{emotion: domain.EmotionComparing, phrases: []string{
		"vs", "compared to", "better than", "difference between", "which one",
		"alternatives", "options", "other choices", "similar products",
	}},
	{emotion: domain.EmotionExcitedInterest, phrases: []string{
		"love this", "perfect", "exactly what i need", "amazing", "awesome",
		"this looks great", "i like this", "impressive", "wonderful",
	}},
	{emotion: domain.EmotionHesitant, phrases: []string{
		"not sure", "maybe", "thinking about it", "let me think", "hmm",
		"i don't know", "uncertain", "on the fence", "torn",
	}},
	{emotion: domain.EmotionObjection, phrases: []string{
		"too expensive", "don't like", "not what i want", "not interested",
		"not for me", "doesn't fit", "wrong size", "wrong color",
	}},
	{emotion: domain.EmotionConfused, phrases: []string{
		"confused", "don't understand", "unclear", "what do you mean",
		"explain", "huh", "i don't get it", "can you clarify",
	}},
	{emotion: domain.EmotionTrustBuilding, phrases: []string{
		"reviews", "testimonials", "guarantee", "warranty", "return policy",
		"others say", "recommendations", "trustworthy", "reliable",
	}},
	{emotion: domain.EmotionUrgency, phrases: []string{
		"need it now", "asap", "urgent", "quickly", "today", "right away",
		"immediately", "can't wait", "time sensitive",
	}},
	{emotion: domain.EmotionCasualBrowsing, phrases: []string{
		"just looking", "browsing", "window shopping", "checking out",
		"seeing what's available", "not buying today",
	}},
}

// primaryPriority resolves the primary label. Ties between matched
// categories always resolve by this order, never by score.
var primaryPriority = []domain.Emotion{
	domain.EmotionReadyToBuy,
	domain.EmotionPriceShopping,
	domain.EmotionObjection,
	domain.EmotionExcitedInterest,
	domain.EmotionComparing,
	domain.EmotionTrustBuilding,
	domain.EmotionUrgency,
	domain.EmotionConfused,
	domain.EmotionHesitant,
	domain.EmotionCasualBrowsing,
}

var formalIndicators = compileAll(
	`\b(please|thank you|could you|would you|may i|sir|madam)\b`,
	`(good morning|good afternoon|good evening)`,
)

var casualIndicators = compileAll(
	`\b(hey|hi|sup|yo|yeah|yep|nah|ok|cool|awesome|lol|omg)\b`,
	`\b(gonna|wanna|gotta|kinda|sorta|dunno)\b`,
)

// phraseMatcher is a compiled word-boundary phrase.
type phraseMatcher struct {
	phrase string
	re     *regexp.Regexp
}

type compiledCategory struct {
	emotion  domain.Emotion
	weight   int
	matchers []phraseMatcher
}

var compiledTable = compileTable(emotionTable)

func compileTable(table []emotionCategory) []compiledCategory {
	out := make([]compiledCategory, 0, len(table))
	for _, cat := range table {
		weight := cat.weight
		if weight == 0 {
			weight = defaultPhraseWeight
		}
		cc := compiledCategory{emotion: cat.emotion, weight: weight}
		for _, phrase := range cat.phrases {
			cc.matchers = append(cc.matchers, phraseMatcher{
				phrase: phrase,
				re:     regexp.MustCompile(`\b` + regexp.QuoteMeta(phrase) + `\b`),
			})
		}
		out = append(out, cc)
	}
	return out
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}
