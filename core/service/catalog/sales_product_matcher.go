// Package catalog resolves a business's active product list and scores it
// against customer messages.
package catalog

import (
	"strings"

	"sales_server/core/domain"
)

// Scoring weights.
const (
	scoreFullName     = 20
	scoreNameWord     = 10
	scoreDescWord     = 5
	scoreTag          = 8
	scoreBuyingWord   = 3
	minNameWordLength = 3 // words must be longer than 2
	minDescWordLength = 4 // words must be longer than 3

	// MinMatchScore is the threshold below which no product is returned.
	MinMatchScore = 5
)

// buyingWords add a one-off boost when any of them appears.
var buyingWords = []string{"buy", "purchase", "get", "want", "need", "order", "looking for"}

// generalInquiries mark "what do you sell" style questions.
var generalInquiries = []string{
	"what do you sell", "what products", "what do you have",
	"show me products", "what's available", "your products",
	"what can i buy", "what items", "catalog", "menu",
}

// Matcher scores products against a message. It is stateless.
type Matcher struct{}

// NewMatcher creates a new product matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match returns the highest scoring product, or nil when no product reaches
// MinMatchScore. Ties keep the first product in catalog order.
func (m *Matcher) Match(products []domain.Product, text string) *domain.MatchResult {
	msg := strings.ToLower(strings.TrimSpace(text))
	if msg == "" || len(products) == 0 {
		return nil
	}

	var best *domain.MatchResult
	for _, p := range products {
		score := m.Score(p, msg)
		if score < MinMatchScore {
			continue
		}
		if best == nil || score > best.Score {
			best = &domain.MatchResult{Product: p, Score: score}
		}
	}
	return best
}

// Score computes the additive score of one product for a lower-cased message.
func (m *Matcher) Score(p domain.Product, msg string) int {
	score := 0
	name := strings.ToLower(strings.TrimSpace(p.Name))
	desc := strings.ToLower(p.Description)

	if name != "" && strings.Contains(msg, name) {
		score += scoreFullName
	}

	for _, word := range strings.Fields(name) {
		if len(word) >= minNameWordLength && strings.Contains(msg, word) {
			score += scoreNameWord
		}
	}

	for _, word := range strings.Fields(desc) {
		if len(word) >= minDescWordLength && strings.Contains(msg, word) {
			score += scoreDescWord
		}
	}

	for _, tag := range p.TagList() {
		if strings.Contains(msg, strings.ToLower(tag)) {
			score += scoreTag
		}
	}

	for _, w := range buyingWords {
		if strings.Contains(msg, w) {
			score += scoreBuyingWord
			break
		}
	}

	return score
}

// ListCatalog returns the listing shape of every named product, in order.
func (m *Matcher) ListCatalog(products []domain.Product) []domain.ProductSummary {
	summaries := make([]domain.ProductSummary, 0, len(products))
	for _, p := range products {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		summaries = append(summaries, domain.ProductSummary{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			ImageURL:    p.ImageURL,
		})
	}
	return summaries
}

// IsGeneralInquiry reports whether the message asks about the catalog as a whole.
func (m *Matcher) IsGeneralInquiry(text string) bool {
	msg := strings.ToLower(text)
	for _, q := range generalInquiries {
		if strings.Contains(msg, q) {
			return true
		}
	}
	return false
}
