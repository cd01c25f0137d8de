package domain

// Emotion is a label produced by the emotion/intent classifier.
type Emotion string

const (
	EmotionReadyToBuy      Emotion = "ready_to_buy"
	EmotionPriceShopping   Emotion = "price_shopping"
	EmotionComparing       Emotion = "comparing"
	EmotionExcitedInterest Emotion = "excited_interest"
	EmotionHesitant        Emotion = "hesitant"
	EmotionObjection       Emotion = "objection"
	EmotionConfused        Emotion = "confused"
	EmotionTrustBuilding   Emotion = "trust_building"
	EmotionUrgency         Emotion = "urgency"
	EmotionCasualBrowsing  Emotion = "casual_browsing"
	EmotionNeutral         Emotion = "neutral"

	// Labels of the older general-purpose emotion vocabulary. The classifier
	// never emits them, but stored chats and the tone/stage tables still
	// recognise them.
	EmotionBuyingInterest Emotion = "buying_interest"
	EmotionStrongInterest Emotion = "strong_interest"
	EmotionCurious        Emotion = "curious"
	EmotionPriceConscious Emotion = "price_conscious"
	EmotionFrustrated     Emotion = "frustrated"
	EmotionExcited        Emotion = "excited"
	EmotionSarcasm        Emotion = "sarcasm"
)

// Tone is the register the customer writes in, or the register the reply
// should take after emotion overrides.
type Tone string

const (
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneNeutral      Tone = "neutral"
	ToneEmpathetic   Tone = "empathetic"
	ToneEnthusiastic Tone = "enthusiastic"
	TonePatient      Tone = "patient"
	ToneLighthearted Tone = "lighthearted"
)

// EmotionResult is the structured output of classifying a single message.
//
// Primary is always set; it is EmotionNeutral when nothing matched and
// EmotionReadyToBuy whenever BuyingIntentScore > 0.
type EmotionResult struct {
	Primary           Emotion         `json:"primary"`
	AllEmotions       []Emotion       `json:"all_emotions"`
	Tone              Tone            `json:"tone"`
	BuyingIntentScore int             `json:"buying_intent_score"`
	ConfidenceScores  map[Emotion]int `json:"confidence_scores"`
	MessageLength     int             `json:"message_length"`
}

// HasEmotion reports whether e was matched for this message.
func (r EmotionResult) HasEmotion(e Emotion) bool {
	for _, got := range r.AllEmotions {
		if got == e {
			return true
		}
	}
	return false
}

// SalesStage is a discrete funnel label derived per message.
type SalesStage string

const (
	StageRapportBuilding   SalesStage = "rapport_building"
	StageDiscovery         SalesStage = "discovery"
	StageProductDiscussion SalesStage = "product_discussion"
	StageObjectionHandling SalesStage = "objection_handling"
	StageConsideration     SalesStage = "consideration"
	StageClosing           SalesStage = "closing"
)
