package chat

import (
	"fmt"
	"strconv"
	"strings"

	"sales_server/core/domain"
)

const (
	// StrongIntentThreshold is the buying intent score above which contact
	// channels are disclosed and the model is told to close.
	StrongIntentThreshold = 5
	// maxPromptProducts caps the catalog entries embedded in the directive.
	maxPromptProducts = 5

	defaultUserName = "valued customer"
	genericFallback = "I'm here to help you find the perfect product! What are you looking for today?"
	strongIntentTag = "[USER SHOWS STRONG BUYING INTENT - Provide contact details and guide to purchase]"
)

const systemPromptTemplate = `You are an emotionally aware, persuasive human sales expert for %s.
- Never admit you are an AI.
- Always address the user by name if available: "%s"
- Detect user emotion: %s (%s)
- Adjust your tone to %s. If informal, use filler words, slang, and sound natural.
- Use storytelling, humor, or empathy when appropriate, especially for objections, mood swings, sarcasm, or confusion.
- If the user is sarcastic, respond with humor or lightheartedness.
- If the user is confused, clarify gently.
- If the user objects, use empathy, distraction, or gentle redirection.
- If the user is hesitant, use a friendly nudge or gentle social proof if relevant.
- Only show social proof ("A lot of people love this!") if the product is popular AND user is hesitant or objecting.
- Match user queries to products by phrase/tag/color/style.
- If user says "I want to buy", "how to order", or shows strong buying intent, show the WhatsApp number (%s) and/or phone (%s) for instant order, and present a product image/video URL if available.
- When user shows product interest, include the product's image or video URL in your message.
- Move conversations through sales stages: rapport, discovery, solution, close.
- Always sound like a real human, never robotic, never reveal inner logic.`

// buyingSignals are the primary labels that disclose contact channels on
// their own.
var buyingSignals = map[domain.Emotion]bool{
	domain.EmotionReadyToBuy:     true,
	domain.EmotionBuyingInterest: true,
}

var toneOverrides = map[domain.Emotion]domain.Tone{
	domain.EmotionFrustrated: domain.ToneEmpathetic,
	domain.EmotionExcited:    domain.ToneEnthusiastic,
	domain.EmotionConfused:   domain.TonePatient,
	domain.EmotionSarcasm:    domain.ToneLighthearted,
}

// PromptInput carries everything the directive and context messages embed.
type PromptInput struct {
	Config   *domain.BusinessConfig
	Catalog  []domain.Product
	UserName string
	Emotion  domain.EmotionResult
	Tone     domain.Tone
	Match    *domain.MatchResult
	Memory   string
	Message  string
}

// ToneFor applies the emotion overrides on top of the classifier tone.
func ToneFor(r domain.EmotionResult) domain.Tone {
	if tone, ok := toneOverrides[r.Primary]; ok {
		return tone
	}
	if r.Tone == "" {
		return domain.ToneNeutral
	}
	return r.Tone
}

// BuildPrompt assembles the system directive, the optional context message
// and the customer message, in that order.
func BuildPrompt(in PromptInput) []domain.PromptMessage {
	messages := []domain.PromptMessage{
		{Role: domain.RoleSystem, Content: systemPrompt(in)},
	}
	if ctx := contextBlock(in); ctx != "" {
		messages = append(messages, domain.PromptMessage{
			Role:    domain.RoleAssistant,
			Content: "[Context: " + ctx + "]",
		})
	}
	return append(messages, domain.PromptMessage{Role: domain.RoleUser, Content: in.Message})
}

func systemPrompt(in PromptInput) string {
	cfg := in.Config
	if cfg == nil {
		cfg = &domain.BusinessConfig{}
	}

	businessName := cfg.Name
	if businessName == "" {
		businessName = "Business"
	}
	userName := in.UserName
	if userName == "" {
		userName = defaultUserName
	}
	all := "neutral"
	if len(in.Emotion.AllEmotions) > 0 {
		labels := make([]string, len(in.Emotion.AllEmotions))
		for i, e := range in.Emotion.AllEmotions {
			labels[i] = string(e)
		}
		all = strings.Join(labels, ", ")
	}
	primary := in.Emotion.Primary
	if primary == "" {
		primary = domain.EmotionNeutral
	}
	tone := in.Tone
	if tone == "" {
		tone = domain.ToneNeutral
	}

	prompt := fmt.Sprintf(systemPromptTemplate,
		businessName, userName, primary, all, tone, cfg.WhatsApp, cfg.Phone)

	catalog := in.Catalog
	if len(catalog) > maxPromptProducts {
		catalog = catalog[:maxPromptProducts]
	}
	if len(catalog) > 0 {
		lines := make([]string, len(catalog))
		for i, p := range catalog {
			lines[i] = fmt.Sprintf("- %s: %s ($%s)", p.Name, p.Description, formatPrice(p.Price))
		}
		prompt += "\n\nAvailable products:\n" + strings.Join(lines, "\n")
	}
	return prompt
}

func contextBlock(in PromptInput) string {
	var b strings.Builder
	if in.Memory != "" {
		b.WriteString(in.Memory)
		b.WriteString("\n")
	}
	if in.Match != nil {
		p := in.Match.Product
		fmt.Fprintf(&b, "\nUser is interested in: %s - %s ($%s)\n", p.Name, p.Description, formatPrice(p.Price))
		if visual := p.Visual(); visual != "" {
			fmt.Fprintf(&b, "Product visual available: %s\n", visual)
		}
	}
	if in.Emotion.BuyingIntentScore > StrongIntentThreshold {
		b.WriteString("\n" + strongIntentTag + "\n")
	}
	return b.String()
}

// ContactDecision reports whether contact channels should be disclosed.
func ContactDecision(r domain.EmotionResult) bool {
	return r.BuyingIntentScore > StrongIntentThreshold || buyingSignals[r.Primary]
}

// SalesStage derives the funnel label of a single message.
func SalesStage(r domain.EmotionResult, match *domain.MatchResult) domain.SalesStage {
	switch {
	case r.Primary == domain.EmotionReadyToBuy:
		return domain.StageClosing
	case r.Primary == domain.EmotionBuyingInterest, r.Primary == domain.EmotionStrongInterest:
		return domain.StageConsideration
	case match != nil:
		return domain.StageProductDiscussion
	case r.Primary == domain.EmotionCurious, r.Primary == domain.EmotionExcitedInterest:
		return domain.StageDiscovery
	case r.Primary == domain.EmotionHesitant,
		r.Primary == domain.EmotionPriceConscious,
		r.Primary == domain.EmotionComparing:
		return domain.StageObjectionHandling
	default:
		return domain.StageRapportBuilding
	}
}

// EnsureContact appends each configured channel that the reply does not
// already mention. Applying it twice yields the same text.
func EnsureContact(reply string, contact domain.ContactInfo) string {
	if contact.WhatsApp != "" && !strings.Contains(reply, contact.WhatsApp) {
		reply += "\n\nOrder on WhatsApp: " + contact.WhatsApp
	}
	if contact.Phone != "" && !strings.Contains(reply, contact.Phone) {
		reply += "\nCall us: " + contact.Phone
	}
	return reply
}

// FallbackReply is used when the language model is unavailable.
func FallbackReply(match *domain.MatchResult) string {
	if match == nil {
		return genericFallback
	}
	p := match.Product
	reply := fmt.Sprintf("Great choice! %s is %s. ", p.Name, strings.TrimRight(p.Description, "."))
	if p.Price != nil && *p.Price > 0 {
		reply += fmt.Sprintf("It's available for $%s. ", formatPrice(p.Price))
	}
	return reply + "Would you like to know more about it?"
}

func formatPrice(price *float64) string {
	if price == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*price, 'f', -1, 64)
}
