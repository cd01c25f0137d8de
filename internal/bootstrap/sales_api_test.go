package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"sales_server/config"
	"sales_server/core/domain"
	"sales_server/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Complete(_ context.Context, _ []domain.PromptMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.reply, f.err
}

type testServer struct {
	app   *fiber.App
	deps  *Dependencies
	llm   *fakeLLM
	user  *domain.User
	token string
}

func newTestServer(t *testing.T, tokens int64, businessConfig string) *testServer {
	t.Helper()

	cfg := &config.Config{
		Environment:        "test",
		DatabaseURL:        "sqlite::memory:",
		JWTSecret:          testSecret,
		LLMTimeoutSec:      1,
		ChatTokenCost:      5,
		LeadCaptureCost:    15,
		MemoryLimit:        10,
		MemoryMaxBytes:     15 * 1024 * 1024,
		CatalogCacheTTLSec: 60,
		RateLimitPerMin:    1000,
		AllowedOrigins:     []string{"http://localhost:3000"},
	}

	deps, cleanup, err := NewDependencies(cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	llm := &fakeLLM{reply: "Happy to help!"}
	deps.ChatService = newChatService(deps, llm)

	ctx := context.Background()
	biz, err := deps.BusinessRepo.Create(ctx, "Corner Shop", businessConfig)
	require.NoError(t, err)
	user := &domain.User{BusinessID: biz.ID, FullName: "Sarah Connor", Email: "sarah@example.com", Tokens: tokens}
	require.NoError(t, deps.UserRepo.Create(ctx, user))

	token, err := middleware.IssueToken(testSecret, user.ID, user.Email, time.Hour)
	require.NoError(t, err)

	return &testServer{app: NewApp(deps), deps: deps, llm: llm, user: user, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any, auth bool) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "data is not an object: %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestAPI_ChatRequiresAuth(t *testing.T) {
	s := newTestServer(t, 100, "")

	status, body := s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "hi"}, false)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
	assert.Zero(t, s.llm.calls)
}

func TestAPI_ChatTurn(t *testing.T) {
	s := newTestServer(t, 100, `{"whatsapp": "+1234567890"}`)
	ctx := context.Background()
	price := 129.99
	_, err := s.deps.ProductRepo.Create(ctx, s.user.BusinessID, &domain.ProductInput{
		Name:        "Red Elegant Dress",
		Description: "Elegant red dress perfect for evening events.",
		Price:       &price,
		ImageURL:    "/static/red.jpg",
		Tags:        "dress, red, evening",
	})
	require.NoError(t, err)
	s.llm.reply = "The Red Elegant Dress is a stunning choice."

	status, body := s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "I want to buy the red dress now"}, true)
	require.Equal(t, http.StatusOK, status, body)

	reply := data(t, body)
	assert.Equal(t, "ready_to_buy", reply["emotion"])
	assert.Equal(t, "closing", reply["sales_stage"])
	assert.Equal(t, true, reply["show_contact"])
	assert.Equal(t, "/static/red.jpg", reply["visual_url"])
	assert.EqualValues(t, 95, reply["tokens_remaining"])
	assert.Contains(t, reply["response"], "Order on WhatsApp: +1234567890")
	matched, ok := reply["matched_product"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Red Elegant Dress", matched["name"])

	status, body = s.do(t, http.MethodGet, "/api/v1/chat/history", nil, true)
	require.Equal(t, http.StatusOK, status)
	history, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, history, 1)
	assert.Equal(t, "I want to buy the red dress now", history[0].(map[string]any)["message"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tokens/balance", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 95, data(t, body)["tokens"])

	status, body = s.do(t, http.MethodGet, "/api/v1/tokens/transactions", nil, true)
	require.Equal(t, http.StatusOK, status)
	txs, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxChat, txs[0].(map[string]any)["type"])

	status, body = s.do(t, http.MethodDelete, "/api/v1/chat/history", nil, true)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, data(t, body)["deleted"])
}

func TestAPI_InsufficientTokens(t *testing.T) {
	s := newTestServer(t, 3, "")

	status, body := s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "hello"}, true)

	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "INSUFFICIENT_TOKENS", errorCode(body))
	assert.Zero(t, s.llm.calls)

	balance, err := s.deps.Ledger.Balance(context.Background(), s.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, balance)
}

func TestAPI_EmptyMessage(t *testing.T) {
	s := newTestServer(t, 100, "")

	status, body := s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "   "}, true)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "MISSING_FIELD", errorCode(body))
}

func TestAPI_LLMFailureFallsBack(t *testing.T) {
	s := newTestServer(t, 100, "")
	s.llm.err = errors.New("upstream down")

	status, body := s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"message": "hello"}, true)

	require.Equal(t, http.StatusOK, status)
	reply := data(t, body)
	assert.Equal(t, true, reply["fallback"])
	assert.EqualValues(t, 95, reply["tokens_remaining"])
}

func TestAPI_DemoChatIsPublic(t *testing.T) {
	s := newTestServer(t, 100, "")

	status, body := s.do(t, http.MethodPost, "/api/v1/demo/chat", map[string]string{"message": "I want to buy the black sporty shoes"}, false)

	require.Equal(t, http.StatusOK, status, body)
	reply := data(t, body)
	matched, ok := reply["matched_product"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Black Sporty Shoes", matched["name"])
	_, hasBalance := reply["tokens_remaining"]
	assert.False(t, hasBalance)

	balance, err := s.deps.Ledger.Balance(context.Background(), s.user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 100, balance)
}

func TestAPI_ProductsAndBusiness(t *testing.T) {
	s := newTestServer(t, 100, `{"products": [{"name": "Inline Mug", "price": 9}]}`)

	status, body := s.do(t, http.MethodGet, "/api/v1/business", nil, true)
	require.Equal(t, http.StatusOK, status)
	view := data(t, body)
	assert.Equal(t, "Corner Shop", view["name"])
	catalog, ok := view["catalog"].([]any)
	require.True(t, ok)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Inline Mug", catalog[0].(map[string]any)["name"])

	status, body = s.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "Green Urban Jacket", "price": 89.5}, true)
	require.Equal(t, http.StatusCreated, status, body)
	created := data(t, body)
	assert.Equal(t, "Green Urban Jacket", created["name"])
	id := int64(created["id"].(float64))

	// Persisted products replace the inline catalog.
	status, body = s.do(t, http.MethodGet, "/api/v1/business", nil, true)
	require.Equal(t, http.StatusOK, status)
	catalog = data(t, body)["catalog"].([]any)
	require.Len(t, catalog, 1)
	assert.Equal(t, "Green Urban Jacket", catalog[0].(map[string]any)["name"])

	status, body = s.do(t, http.MethodPut, "/api/v1/products/"+itoa(id), map[string]any{"name": "Green Jacket", "price": 79}, true)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "Green Jacket", data(t, body)["name"])

	status, body = s.do(t, http.MethodPost, "/api/v1/products", map[string]any{"name": "", "price": 1}, true)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodPut, "/api/v1/products/abc", map[string]any{"name": "x"}, true)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.do(t, http.MethodDelete, "/api/v1/products/"+itoa(id), nil, true)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = s.do(t, http.MethodDelete, "/api/v1/products/"+itoa(id), nil, true)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = s.do(t, http.MethodPut, "/api/v1/business", map[string]any{"config": "{not json"}, true)
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = s.do(t, http.MethodGet, "/api/v1/leads", nil, true)
	require.Equal(t, http.StatusOK, status)
	leads, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Empty(t, leads)
}

func TestAPI_ContentType(t *testing.T) {
	s := newTestServer(t, 100, "")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/demo/chat", bytes.NewReader([]byte("message=hi")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	s := newTestServer(t, 100, "")

	status, body := s.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = s.do(t, http.MethodGet, "/ready", nil, false)
	assert.Equal(t, http.StatusOK, status)
	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "not configured", checks["redis"])

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "sales_http_requests_total")
}

func itoa(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
