// Package chat runs a customer message through the sales pipeline:
// ledger gate, classification, catalog matching, memory, prompt assembly,
// the language model and the best-effort side effects that follow.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"sales_server/core/domain"
	"sales_server/core/port/in"
	"sales_server/core/port/out"
	"sales_server/core/service/catalog"
	"sales_server/core/service/classification"
	"sales_server/core/service/memory"
	"sales_server/pkg/apperr"
	"sales_server/pkg/logger"
	"sales_server/pkg/metrics"

	"github.com/google/uuid"
)

const (
	// MaxMessageLength is the rune limit applied to inbound messages.
	MaxMessageLength = 2000
	// DefaultHistoryLimit is the page size of the history listing.
	DefaultHistoryLimit = 50

	demoUserName  = "Friend"
	ledgerExcerpt = 50
)

// CatalogResolver returns the active catalog of a business.
type CatalogResolver interface {
	Resolve(ctx context.Context, businessID int64) ([]domain.Product, error)
}

// Options tunes costs and limits of a chat turn.
type Options struct {
	ChatCost    int64
	LeadCost    int64
	MemoryLimit int
	LLMTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.ChatCost < 0 {
		o.ChatCost = 0
	}
	if o.LeadCost < 0 {
		o.LeadCost = 0
	}
	if o.MemoryLimit <= 0 {
		o.MemoryLimit = memory.DefaultLimit
	}
	if o.LLMTimeout <= 0 {
		o.LLMTimeout = 30 * time.Second
	}
	return o
}

type Service struct {
	userRepo     out.UserRepository
	businessRepo out.BusinessRepository
	historyRepo  out.ChatHistoryRepository
	ledger       out.Ledger
	leadRepo     out.LeadRepository
	llm          out.LLMGateway
	events       out.EventPublisher

	catalog    CatalogResolver
	classifier *classification.Classifier
	matcher    *catalog.Matcher
	memory     *memory.Manager

	opts Options
}

var _ in.ChatService = (*Service)(nil)

func NewService(
	userRepo out.UserRepository,
	businessRepo out.BusinessRepository,
	historyRepo out.ChatHistoryRepository,
	ledger out.Ledger,
	leadRepo out.LeadRepository,
	llm out.LLMGateway,
	resolver CatalogResolver,
	memoryManager *memory.Manager,
	opts Options,
) *Service {
	return &Service{
		userRepo:     userRepo,
		businessRepo: businessRepo,
		historyRepo:  historyRepo,
		ledger:       ledger,
		leadRepo:     leadRepo,
		llm:          llm,
		catalog:      resolver,
		classifier:   classification.NewClassifier(),
		matcher:      catalog.NewMatcher(),
		memory:       memoryManager,
		opts:         opts.withDefaults(),
	}
}

// WithEvents publishes lead and purchase-intent events. Publishing is best
// effort and never fails a turn.
func (s *Service) WithEvents(events out.EventPublisher) *Service {
	s.events = events
	return s
}

// turn is the per-request state shared by the pipeline steps.
type turn struct {
	message  string
	demo     bool
	user     *domain.User
	config   *domain.BusinessConfig
	products []domain.Product
	balance  int64
}

// HandleMessage processes one chat turn. Only input errors, a refused debit
// and failures to load the account are returned; everything after the
// debit degrades instead of failing.
func (s *Service) HandleMessage(ctx context.Context, req *in.ChatRequest) (*in.ChatReply, error) {
	message := truncate(strings.TrimSpace(req.Message), MaxMessageLength)
	if message == "" {
		return nil, apperr.MissingField("message")
	}

	t := &turn{message: message, demo: req.DemoMode}
	if t.demo {
		t.config = catalog.DemoConfig()
		t.products = t.config.Products
	} else if err := s.prepare(ctx, req.UserID, t); err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx).WithField("demo", t.demo)

	emotion := s.classifier.Classify(message)

	reply := &in.ChatReply{
		Emotion: emotion.Primary,
	}

	var match *domain.MatchResult
	if s.matcher.IsGeneralInquiry(message) {
		reply.Products = s.matcher.ListCatalog(t.products)
	} else if match = s.matcher.Match(t.products, message); match != nil {
		summary := domain.ProductSummary{
			Name:        match.Product.Name,
			Description: match.Product.Description,
			Price:       match.Product.Price,
			ImageURL:    match.Product.ImageURL,
		}
		reply.MatchedProduct = &summary
		reply.VisualURL = match.Product.Visual()
	}

	var memoryText string
	if !t.demo {
		entries, cleanup, err := s.memory.LoadRecent(ctx, t.user.BusinessID, s.opts.MemoryLimit)
		if err != nil {
			log.WithError(err).Warn("[ChatService.HandleMessage] memory unavailable")
		} else {
			memoryText = memory.Format(entries)
			reply.CleanupPerformed = cleanup
			if cleanup {
				metrics.MemoryPruned()
			}
		}
	}

	userName := demoUserName
	if t.user != nil {
		userName = t.user.FirstName()
	}
	tone := ToneFor(emotion)
	reply.Tone = tone

	prompt := BuildPrompt(PromptInput{
		Config:   t.config,
		Catalog:  t.products,
		UserName: userName,
		Emotion:  emotion,
		Tone:     tone,
		Match:    match,
		Memory:   memoryText,
		Message:  message,
	})

	reply.Response, reply.Fallback = s.complete(ctx, prompt, match)

	if ContactDecision(emotion) {
		contact := t.config.Contact()
		reply.ShowContact = true
		reply.ContactWhatsApp = contact.WhatsApp
		reply.ContactPhone = contact.Phone
		reply.Response = EnsureContact(reply.Response, contact)
	}
	reply.SalesStage = SalesStage(emotion, match)

	if !t.demo {
		s.persist(ctx, t, emotion, reply)
		if emotion.Primary == domain.EmotionReadyToBuy {
			payload := map[string]any{"message": t.message, "score": emotion.BuyingIntentScore}
			if reply.MatchedProduct != nil {
				payload["product"] = reply.MatchedProduct.Name
			}
			s.publish(ctx, domain.NewEvent(domain.EventReadyToBuy, t.user.BusinessID, t.user.ID, payload))
		}
		if t.config.EnableLeadCapture {
			s.captureLead(ctx, t)
		}
		balance := t.balance
		reply.TokensRemaining = &balance
	}

	metrics.ChatTurn(t.demo, string(emotion.Primary), string(reply.SalesStage))
	log.WithFields(map[string]any{
		"emotion":  emotion.Primary,
		"stage":    reply.SalesStage,
		"fallback": reply.Fallback,
	}).Debug("[ChatService.HandleMessage] turn complete")

	return reply, nil
}

// prepare loads the account, the business configuration and the catalog,
// and charges the turn. Nothing else runs when the charge is refused.
func (s *Service) prepare(ctx context.Context, userID uuid.UUID, t *turn) error {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return err
	}
	t.user = user

	business, err := s.businessRepo.GetByID(ctx, user.BusinessID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("business")
		}
		return apperr.DatabaseError("get business", err)
	}
	cfg, err := catalog.ConfigFor(business)
	if err != nil {
		logger.WithField("business_id", business.ID).Warn("[ChatService.prepare] stored config ignored: %v", err)
	}
	t.config = cfg

	balance, err := s.ledger.Debit(ctx, user.ID, s.opts.ChatCost, domain.TxChat, "Chat message: "+truncate(t.message, ledgerExcerpt))
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientTokens) {
			metrics.PaymentRequired(domain.TxChat)
			return apperr.PaymentRequired(domain.TxChat, err)
		}
		return apperr.DatabaseError("debit tokens", err)
	}
	t.balance = balance
	metrics.TokensDebited(domain.TxChat, s.opts.ChatCost)

	products, err := s.catalog.Resolve(ctx, user.BusinessID)
	if err != nil {
		logger.WithError(err).Warn("[ChatService.prepare] catalog unavailable for business %d", user.BusinessID)
		products = nil
	}
	t.products = products
	return nil
}

func (s *Service) complete(ctx context.Context, prompt []domain.PromptMessage, match *domain.MatchResult) (string, bool) {
	llmCtx, cancel := context.WithTimeout(ctx, s.opts.LLMTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.llm.Complete(llmCtx, prompt)
	metrics.LLMCall(time.Since(start), err)

	if err == nil && strings.TrimSpace(text) != "" {
		return text, false
	}
	if err == nil {
		err = errors.New("empty completion")
	}
	logger.WithContext(ctx).WithError(err).Error("[ChatService.complete] language model failed, using fallback")
	metrics.LLMFallback()
	return FallbackReply(match), true
}

func (s *Service) persist(ctx context.Context, t *turn, emotion domain.EmotionResult, reply *in.ChatReply) {
	record := &domain.ChatRecord{
		UserID:     t.user.ID,
		BusinessID: t.user.BusinessID,
		Message:    t.message,
		Response:   reply.Response,
		Emotion:    emotion.Primary,
		SalesStage: reply.SalesStage,
		IsSale:     emotion.Primary == domain.EmotionReadyToBuy,
	}
	if err := s.historyRepo.Save(ctx, record); err != nil {
		logger.WithContext(ctx).WithError(err).Error("[ChatService.persist] failed to save chat for business %d", t.user.BusinessID)
	}
}

func (s *Service) captureLead(ctx context.Context, t *turn) {
	info := ExtractLead(t.message)
	if !info.HasContact() {
		return
	}
	name := info.Name
	if name == "" {
		name = "Unknown"
	}
	lead := &domain.Lead{
		UserID:     t.user.ID,
		BusinessID: t.user.BusinessID,
		Name:       name,
		Email:      info.Email,
		Phone:      info.Phone,
		Message:    t.message,
	}

	log := logger.WithContext(ctx).WithField("business_id", t.user.BusinessID)
	if err := s.leadRepo.SaveWithCharge(ctx, lead, s.opts.LeadCost); err != nil {
		if errors.Is(err, domain.ErrInsufficientTokens) {
			metrics.PaymentRequired(domain.TxLeadCapture)
			log.Warn("[ChatService.captureLead] lead dropped: insufficient tokens")
			return
		}
		log.WithError(err).Error("[ChatService.captureLead] lead capture failed")
		return
	}
	t.balance -= s.opts.LeadCost
	metrics.TokensDebited(domain.TxLeadCapture, s.opts.LeadCost)
	metrics.LeadCaptured()

	s.publish(ctx, domain.NewEvent(domain.EventLeadCaptured, lead.BusinessID, lead.UserID, map[string]any{
		"lead_id": lead.ID,
		"name":    lead.Name,
		"email":   lead.Email,
		"phone":   lead.Phone,
	}))
}

func (s *Service) publish(ctx context.Context, event *domain.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("[ChatService.publish] %s event dropped", event.Type)
	}
}

// History lists the most recent chats of the user's business.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ChatRecord, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	records, err := s.historyRepo.ListByBusiness(ctx, user.BusinessID, limit)
	if err != nil {
		return nil, apperr.DatabaseError("list chats", err)
	}
	return records, nil
}

// ClearHistory deletes every stored chat of the user's business.
func (s *Service) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	user, err := s.lookupUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	deleted, err := s.historyRepo.ClearBusiness(ctx, user.BusinessID)
	if err != nil {
		return 0, apperr.DatabaseError("clear chats", err)
	}
	logger.WithField("business_id", user.BusinessID).Info("[ChatService.ClearHistory] deleted %d chats", deleted)
	return deleted, nil
}

func (s *Service) lookupUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.DatabaseError("get user", err)
	}
	return user, nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
