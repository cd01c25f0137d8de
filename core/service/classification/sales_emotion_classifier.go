// Package classification implements the rule-based emotion/intent classifier.
//
// Classification is deterministic keyword/pattern matching over a single
// message:
//
//	1. Buying-intent patterns  → +10, forces ready_to_buy
//	2. Emotion phrase table    → word-boundary hits, one per category
//	3. Fixed priority order    → primary label
//	4. Formal / casual markers → tone (casual wins)
package classification

import (
	"strings"

	"sales_server/core/domain"
)

// Classifier maps a message to an EmotionResult. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a new classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify never fails: unmatched or empty input resolves to a neutral result.
func (c *Classifier) Classify(text string) domain.EmotionResult {
	t := strings.ToLower(strings.TrimSpace(text))

	result := domain.EmotionResult{
		Primary:          domain.EmotionNeutral,
		AllEmotions:      []domain.Emotion{},
		Tone:             domain.ToneNeutral,
		ConfidenceScores: make(map[domain.Emotion]int, len(compiledTable)),
		MessageLength:    len(strings.Fields(text)),
	}

	for _, cat := range compiledTable {
		result.ConfidenceScores[cat.emotion] = 0
	}
	if t == "" {
		return result
	}

	// 1. Buying intent
	for _, re := range buyingIntentPatterns {
		if re.MatchString(t) {
			result.BuyingIntentScore += buyingIntentWeight
			result.AllEmotions = append(result.AllEmotions, domain.EmotionReadyToBuy)
			break
		}
	}

	// 2. Phrase table, first matching phrase per category wins
	for _, cat := range compiledTable {
		for _, m := range cat.matchers {
			if !m.re.MatchString(t) {
				continue
			}
			result.ConfidenceScores[cat.emotion] = cat.weight
			if !result.HasEmotion(cat.emotion) {
				result.AllEmotions = append(result.AllEmotions, cat.emotion)
			}
			break
		}
	}

	// 3. Primary
	result.Primary = resolvePrimary(result)

	// 4. Tone
	result.Tone = detectTone(t)

	return result
}

// MatchedPhrases returns, per matched category, the phrase that hit.
// Used by the classify CLI command for debugging.
func (c *Classifier) MatchedPhrases(text string) map[domain.Emotion]string {
	t := strings.ToLower(strings.TrimSpace(text))
	hits := make(map[domain.Emotion]string)
	if t == "" {
		return hits
	}
	for _, cat := range compiledTable {
		for _, m := range cat.matchers {
			if m.re.MatchString(t) {
				hits[cat.emotion] = m.phrase
				break
			}
		}
	}
	return hits
}

func resolvePrimary(r domain.EmotionResult) domain.Emotion {
	if r.BuyingIntentScore > 0 {
		return domain.EmotionReadyToBuy
	}
	for _, e := range primaryPriority {
		if r.HasEmotion(e) {
			return e
		}
	}
	return domain.EmotionNeutral
}

func detectTone(t string) domain.Tone {
	tone := domain.ToneNeutral
	for _, re := range formalIndicators {
		if re.MatchString(t) {
			tone = domain.ToneFormal
			break
		}
	}
	// Casual overrides formal when both are present.
	for _, re := range casualIndicators {
		if re.MatchString(t) {
			tone = domain.ToneCasual
			break
		}
	}
	return tone
}
