package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"sales_server/core/domain"
	"sales_server/core/port/in"
	"sales_server/core/service/memory"
	"sales_server/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeUsers struct {
	users map[uuid.UUID]*domain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *domain.User) error {
	f.users[u.ID] = u
	return nil
}

type fakeBusinesses struct {
	businesses map[int64]*domain.Business
}

func (f *fakeBusinesses) GetByID(_ context.Context, id int64) (*domain.Business, error) {
	if b, ok := f.businesses[id]; ok {
		return b, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBusinesses) Create(context.Context, string, string) (*domain.Business, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBusinesses) Update(context.Context, int64, string, string) (*domain.Business, error) {
	return nil, errors.New("not implemented")
}

type fakeHistory struct {
	mu      sync.Mutex
	records []domain.ChatRecord
	saveErr error
}

func (f *fakeHistory) RecentExchanges(_ context.Context, businessID int64, count int) ([]domain.Exchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Exchange
	for i := len(f.records) - 1; i >= 0 && len(out) < count; i-- {
		r := f.records[i]
		if r.BusinessID == businessID {
			out = append(out, domain.Exchange{ID: r.ID, Message: r.Message, Response: r.Response})
		}
	}
	return out, nil
}

func (f *fakeHistory) DeleteExceptMostRecent(context.Context, int64, int) (int64, error) {
	return 0, nil
}

func (f *fakeHistory) Save(_ context.Context, r *domain.ChatRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	r.ID = int64(len(f.records) + 1)
	f.records = append(f.records, *r)
	return nil
}

func (f *fakeHistory) ListByBusiness(_ context.Context, businessID int64, limit int) ([]domain.ChatRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ChatRecord
	for i := len(f.records) - 1; i >= 0 && len(out) < limit; i-- {
		if f.records[i].BusinessID == businessID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakeHistory) ClearBusiness(_ context.Context, businessID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.records[:0]
	var deleted int64
	for _, r := range f.records {
		if r.BusinessID == businessID {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return deleted, nil
}

type fakeLedger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	debits   []string
}

func (f *fakeLedger) Debit(_ context.Context, id uuid.UUID, amount int64, txType, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[id] < amount {
		return 0, domain.ErrInsufficientTokens
	}
	f.balances[id] -= amount
	f.debits = append(f.debits, txType)
	return f.balances[id], nil
}

func (f *fakeLedger) Credit(_ context.Context, id uuid.UUID, amount int64, _, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[id] += amount
	return f.balances[id], nil
}

func (f *fakeLedger) Balance(_ context.Context, id uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[id], nil
}

func (f *fakeLedger) Transactions(context.Context, uuid.UUID, int) ([]domain.TokenTransaction, error) {
	return nil, nil
}

type fakeLeads struct {
	ledger *fakeLedger
	leads  []domain.Lead
}

func (f *fakeLeads) SaveWithCharge(ctx context.Context, lead *domain.Lead, cost int64) error {
	if _, err := f.ledger.Debit(ctx, lead.UserID, cost, domain.TxLeadCapture, ""); err != nil {
		return err
	}
	f.leads = append(f.leads, *lead)
	return nil
}

func (f *fakeLeads) ListByBusiness(context.Context, int64) ([]domain.Lead, error) {
	return f.leads, nil
}

type fakeLLM struct {
	reply    string
	err      error
	calls    int
	messages []domain.PromptMessage
}

func (f *fakeLLM) Complete(_ context.Context, messages []domain.PromptMessage) (string, error) {
	f.calls++
	f.messages = messages
	return f.reply, f.err
}

type staticCatalog struct {
	products []domain.Product
	err      error
}

func (s staticCatalog) Resolve(context.Context, int64) ([]domain.Product, error) {
	return s.products, s.err
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	service *Service
	userID  uuid.UUID
	ledger  *fakeLedger
	history *fakeHistory
	leads   *fakeLeads
	llm     *fakeLLM
}

func newFixture(t *testing.T, balance int64, config string, products []domain.Product) *fixture {
	t.Helper()

	userID := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*domain.User{
		userID: {ID: userID, BusinessID: 1, FullName: "Sarah Connor", Tokens: balance},
	}}
	businesses := &fakeBusinesses{businesses: map[int64]*domain.Business{
		1: {ID: 1, Name: "Corner Shop", Config: config, CreatedAt: time.Now()},
	}}
	history := &fakeHistory{}
	ledger := &fakeLedger{balances: map[uuid.UUID]int64{userID: balance}}
	leads := &fakeLeads{ledger: ledger}
	llm := &fakeLLM{reply: "Lovely pick! It is one of our favourites."}

	svc := NewService(users, businesses, history, ledger, leads, llm,
		staticCatalog{products: products},
		memory.NewManager(history, 0),
		Options{ChatCost: 5, LeadCost: 15, MemoryLimit: 10, LLMTimeout: time.Second},
	)

	return &fixture{service: svc, userID: userID, ledger: ledger, history: history, leads: leads, llm: llm}
}

func redDress() domain.Product {
	return domain.Product{
		Name:        "Red Elegant Dress",
		Description: "Elegant red dress perfect for evening events.",
		Price:       price(129.99),
		ImageURL:    "/static/red.jpg",
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestService_BuyingIntentEndToEnd(t *testing.T) {
	f := newFixture(t, 100, `{"whatsapp": "+1234567890"}`, []domain.Product{redDress()})
	f.llm.reply = "The Red Elegant Dress is a stunning choice for tonight."

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		UserID:  f.userID,
		Message: "I want to buy the red dress now",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.EmotionReadyToBuy, reply.Emotion)
	require.NotNil(t, reply.MatchedProduct)
	assert.Equal(t, "Red Elegant Dress", reply.MatchedProduct.Name)
	assert.True(t, reply.ShowContact)
	assert.Equal(t, "+1234567890", reply.ContactWhatsApp)
	assert.Equal(t, 1, strings.Count(reply.Response, "+1234567890"))
	assert.Contains(t, reply.Response, "Red Elegant Dress")
	assert.Equal(t, domain.StageClosing, reply.SalesStage)
	assert.Equal(t, "/static/red.jpg", reply.VisualURL)
	assert.False(t, reply.Fallback)
	require.NotNil(t, reply.TokensRemaining)
	assert.EqualValues(t, 95, *reply.TokensRemaining)

	require.Len(t, f.history.records, 1)
	assert.True(t, f.history.records[0].IsSale)
	assert.Equal(t, domain.StageClosing, f.history.records[0].SalesStage)

	require.Len(t, f.llm.messages, 3)
	assert.Contains(t, f.llm.messages[0].Content, `"Sarah"`)
	assert.Contains(t, f.llm.messages[1].Content, strongIntentTag)
}

func TestService_ModelAlreadyMentionsContact(t *testing.T) {
	f := newFixture(t, 100, `{"whatsapp": "+1234567890"}`, []domain.Product{redDress()})
	f.llm.reply = "Order the Red Elegant Dress on WhatsApp: +1234567890"

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		UserID:  f.userID,
		Message: "I want to buy the red dress now",
	})

	require.NoError(t, err)
	assert.Equal(t, f.llm.reply, reply.Response)
}

func TestService_InsufficientTokens(t *testing.T) {
	f := newFixture(t, 3, "", []domain.Product{redDress()})

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		UserID:  f.userID,
		Message: "I want to buy the red dress now",
	})

	assert.Nil(t, reply)
	appErr := apperr.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 402, appErr.HTTPStatus())
	assert.ErrorIs(t, err, domain.ErrInsufficientTokens)

	assert.Zero(t, f.llm.calls)
	assert.Empty(t, f.history.records)
	assert.EqualValues(t, 3, f.ledger.balances[f.userID])
}

func TestService_LLMFailureFallsBack(t *testing.T) {
	f := newFixture(t, 100, `{"whatsapp": "+1234567890", "phone": "+15551234567"}`, []domain.Product{redDress()})
	f.llm.err = errors.New("502 bad gateway")

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		UserID:  f.userID,
		Message: "I want to buy the red dress now",
	})

	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.True(t, strings.HasPrefix(reply.Response, "Great choice! Red Elegant Dress is"))
	assert.Contains(t, reply.Response, "Order on WhatsApp: +1234567890")
	assert.Contains(t, reply.Response, "Call us: +15551234567")
	require.Len(t, f.history.records, 1)
}

func TestService_EmptyCompletionFallsBack(t *testing.T) {
	f := newFixture(t, 100, "", nil)
	f.llm.reply = "   "

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		UserID:  f.userID,
		Message: "hello there",
	})

	require.NoError(t, err)
	assert.True(t, reply.Fallback)
	assert.Equal(t, genericFallback, reply.Response)
	assert.Equal(t, domain.StageRapportBuilding, reply.SalesStage)
	assert.False(t, reply.ShowContact)
}

func TestService_EmptyMessage(t *testing.T) {
	f := newFixture(t, 100, "", nil)

	_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{UserID: f.userID, Message: "  \n "})

	appErr := apperr.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 400, appErr.HTTPStatus())
	assert.EqualValues(t, 100, f.ledger.balances[f.userID])
}

func TestService_UnknownUser(t *testing.T) {
	f := newFixture(t, 100, "", nil)

	_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{UserID: uuid.New(), Message: "hi"})

	appErr := apperr.AsAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, 404, appErr.HTTPStatus())
}

func TestService_LongMessageIsTruncated(t *testing.T) {
	f := newFixture(t, 100, "", nil)
	long := strings.Repeat("é", MaxMessageLength+500)

	_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{UserID: f.userID, Message: long})

	require.NoError(t, err)
	require.Len(t, f.history.records, 1)
	assert.Equal(t, MaxMessageLength, len([]rune(f.history.records[0].Message)))
}

func TestService_GeneralInquiryListsCatalog(t *testing.T) {
	products := []domain.Product{redDress(), {Name: "Green Urban Jacket", Description: "Trendy"}}
	f := newFixture(t, 100, "", products)

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		UserID:  f.userID,
		Message: "What do you sell?",
	})

	require.NoError(t, err)
	assert.Nil(t, reply.MatchedProduct)
	require.Len(t, reply.Products, 2)
	assert.Equal(t, "Green Urban Jacket", reply.Products[1].Name)
}

func TestService_MemoryFeedsPrompt(t *testing.T) {
	f := newFixture(t, 100, "", nil)
	ctx := context.Background()

	_, err := f.service.HandleMessage(ctx, &in.ChatRequest{UserID: f.userID, Message: "first question"})
	require.NoError(t, err)
	_, err = f.service.HandleMessage(ctx, &in.ChatRequest{UserID: f.userID, Message: "second question"})
	require.NoError(t, err)

	require.Len(t, f.llm.messages, 3)
	assert.Contains(t, f.llm.messages[1].Content, "Customer: first question")
	assert.Contains(t, f.llm.messages[1].Content, "You: "+f.llm.reply)
}

func TestService_LeadCapture(t *testing.T) {
	config := `{"whatsapp": "+1234567890", "enable_lead_capture": true}`

	t.Run("captured and charged", func(t *testing.T) {
		f := newFixture(t, 100, config, nil)

		reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			UserID:  f.userID,
			Message: "I'm Sarah, my email is sarah@example.com",
		})

		require.NoError(t, err)
		require.Len(t, f.leads.leads, 1)
		lead := f.leads.leads[0]
		assert.Equal(t, "Sarah", lead.Name)
		assert.Equal(t, "sarah@example.com", lead.Email)
		assert.EqualValues(t, 1, lead.BusinessID)
		assert.EqualValues(t, 80, *reply.TokensRemaining)
		assert.Equal(t, []string{domain.TxChat, domain.TxLeadCapture}, f.ledger.debits)
	})

	t.Run("unnamed lead", func(t *testing.T) {
		f := newFixture(t, 100, config, nil)

		_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			UserID:  f.userID,
			Message: "text me on +44 7911 123456",
		})

		require.NoError(t, err)
		require.Len(t, f.leads.leads, 1)
		assert.Equal(t, "Unknown", f.leads.leads[0].Name)
	})

	t.Run("insufficient balance keeps the reply", func(t *testing.T) {
		f := newFixture(t, 10, config, nil)

		reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			UserID:  f.userID,
			Message: "reach me at sarah@example.com",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, reply.Response)
		assert.Empty(t, f.leads.leads)
		assert.EqualValues(t, 5, *reply.TokensRemaining)
	})

	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t, 100, `{"enable_lead_capture": false}`, nil)

		_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			UserID:  f.userID,
			Message: "reach me at sarah@example.com",
		})

		require.NoError(t, err)
		assert.Empty(t, f.leads.leads)
	})
}

func TestService_PersistFailureStillReplies(t *testing.T) {
	f := newFixture(t, 100, "", nil)
	f.history.saveErr = errors.New("disk full")

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{UserID: f.userID, Message: "hello"})

	require.NoError(t, err)
	assert.Equal(t, f.llm.reply, reply.Response)
}

func TestService_DemoMode(t *testing.T) {
	f := newFixture(t, 0, "", nil)

	reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
		Message:  "I want to buy the black sporty shoes",
		DemoMode: true,
	})

	require.NoError(t, err)
	require.NotNil(t, reply.MatchedProduct)
	assert.Equal(t, "Black Sporty Shoes", reply.MatchedProduct.Name)
	assert.True(t, reply.ShowContact)
	assert.Equal(t, "+1234567890", reply.ContactWhatsApp)
	assert.Equal(t, "+15551234567", reply.ContactPhone)
	assert.Nil(t, reply.TokensRemaining)

	assert.Empty(t, f.history.records)
	assert.Empty(t, f.ledger.debits)
	assert.Contains(t, f.llm.messages[0].Content, "sales expert for DemoShop")
	assert.Contains(t, f.llm.messages[0].Content, `"Friend"`)
}

func TestService_History(t *testing.T) {
	f := newFixture(t, 100, "", nil)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		_, err := f.service.HandleMessage(ctx, &in.ChatRequest{UserID: f.userID, Message: msg})
		require.NoError(t, err)
	}

	records, err := f.service.History(ctx, f.userID, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "three", records[0].Message)

	deleted, err := f.service.ClearHistory(ctx, f.userID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)

	records, err = f.service.History(ctx, f.userID, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

type fakeEvents struct {
	events []*domain.Event
	err    error
}

func (f *fakeEvents) Publish(_ context.Context, event *domain.Event) error {
	f.events = append(f.events, event)
	return f.err
}

func TestService_PublishesEvents(t *testing.T) {
	config := `{"whatsapp": "+1234567890", "enable_lead_capture": true}`

	t.Run("ready to buy and lead", func(t *testing.T) {
		f := newFixture(t, 100, config, []domain.Product{redDress()})
		events := &fakeEvents{}
		f.service.WithEvents(events)

		_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			UserID:  f.userID,
			Message: "I want to buy the red dress now, I'm Sarah, sarah@example.com",
		})

		require.NoError(t, err)
		require.Len(t, events.events, 2)
		assert.Equal(t, domain.EventReadyToBuy, events.events[0].Type)
		assert.Equal(t, "Red Elegant Dress", events.events[0].Payload["product"])
		assert.Equal(t, domain.EventLeadCaptured, events.events[1].Type)
		assert.Equal(t, "sarah@example.com", events.events[1].Payload["email"])
		assert.Equal(t, f.userID, events.events[1].UserID)
	})

	t.Run("publish failure does not fail the turn", func(t *testing.T) {
		f := newFixture(t, 100, config, nil)
		events := &fakeEvents{err: errors.New("redis down")}
		f.service.WithEvents(events)

		reply, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			UserID:  f.userID,
			Message: "reach me at sarah@example.com",
		})

		require.NoError(t, err)
		assert.Len(t, events.events, 1)
		assert.EqualValues(t, 80, *reply.TokensRemaining)
	})

	t.Run("demo publishes nothing", func(t *testing.T) {
		f := newFixture(t, 100, config, nil)
		events := &fakeEvents{}
		f.service.WithEvents(events)

		_, err := f.service.HandleMessage(context.Background(), &in.ChatRequest{
			Message:  "I want to buy the black sporty shoes, mail me at a@b.co",
			DemoMode: true,
		})

		require.NoError(t, err)
		assert.Empty(t, events.events)
	})
}
