// Package memory bounds and formats the per-business conversation memory fed
// to the language model.
package memory

import (
	"context"
	"fmt"
	"strings"

	"sales_server/core/domain"
	"sales_server/core/port/out"
	"sales_server/pkg/logger"
)

const (
	// DefaultMaxBytes is the memory ceiling above which history is pruned.
	DefaultMaxBytes = 15 * 1024 * 1024
	// KeepAfterCleanup is the number of exchanges retained by a prune.
	KeepAfterCleanup = 10
	// MaxEntries caps the entries returned to the prompt builder.
	MaxEntries = 20
	// DefaultLimit is the number of exchange pairs requested per turn.
	DefaultLimit = 10
)

// Manager loads recent exchanges and enforces the memory ceiling.
type Manager struct {
	history  out.ChatHistoryRepository
	maxBytes int
}

// NewManager creates a memory manager. A non-positive maxBytes uses DefaultMaxBytes.
func NewManager(history out.ChatHistoryRepository, maxBytes int) *Manager {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Manager{history: history, maxBytes: maxBytes}
}

// LoadRecent returns up to MaxEntries chronological memory entries built from
// the 2*limit most recent exchanges, and whether a prune happened.
//
// Pruning deletes all but the KeepAfterCleanup most recent exchanges. Two
// concurrent turns for the same business may both prune; the result is the
// same retained window.
func (m *Manager) LoadRecent(ctx context.Context, businessID int64, limit int) ([]domain.MemoryEntry, bool, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	exchanges, err := m.history.RecentExchanges(ctx, businessID, 2*limit)
	if err != nil {
		return nil, false, fmt.Errorf("load exchanges: %w", err)
	}

	cleanup := false
	if size(exchanges) > m.maxBytes {
		deleted, err := m.history.DeleteExceptMostRecent(ctx, businessID, KeepAfterCleanup)
		if err != nil {
			return nil, false, fmt.Errorf("prune history: %w", err)
		}
		logger.WithFields(map[string]any{
			"business_id": businessID,
			"deleted":     deleted,
		}).Info("[Manager.LoadRecent] memory ceiling exceeded, history pruned")

		exchanges, err = m.history.RecentExchanges(ctx, businessID, KeepAfterCleanup)
		if err != nil {
			return nil, false, fmt.Errorf("reload exchanges: %w", err)
		}
		cleanup = true
	}

	entries := make([]domain.MemoryEntry, 0, 2*len(exchanges))
	for i := len(exchanges) - 1; i >= 0; i-- {
		ex := exchanges[i]
		entries = append(entries, domain.MemoryEntry{Speaker: domain.SpeakerCustomer, Text: ex.Message})
		if ex.Response != "" {
			entries = append(entries, domain.MemoryEntry{Speaker: domain.SpeakerAssistant, Text: ex.Response})
		}
	}
	if len(entries) > MaxEntries {
		entries = entries[len(entries)-MaxEntries:]
	}
	return entries, cleanup, nil
}

// Format renders entries as the memory block of the context message. It
// returns "" when there is nothing to remember.
func Format(entries []domain.MemoryEntry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.String())
	}
	b.WriteString("\n\n")
	return b.String()
}

func size(exchanges []domain.Exchange) int {
	total := 0
	for _, ex := range exchanges {
		total += len(ex.Message) + len(ex.Response)
	}
	return total
}
