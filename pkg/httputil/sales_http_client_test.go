package httputil

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPooledClient(t *testing.T) {
	client := NewPooledClient(LLMClientConfig(5 * time.Second))

	assert.Equal(t, 5*time.Second, client.Timeout)
	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 32, transport.MaxIdleConnsPerHost)
	assert.Equal(t, 64, transport.MaxConnsPerHost)
}

func TestLLMClientConfig_KeepsDefaultTimeout(t *testing.T) {
	assert.Equal(t, 30*time.Second, LLMClientConfig(0).ResponseTimeout)
	assert.Equal(t, 30*time.Second, NewPooledClient(nil).Timeout)
}
