package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/triadhq/assistant/pkg/models"
)

// MemoryClient is the dispatcher's view of the memory agent (C6), reached
// over a fresh connection per call per spec §4.7 steps 1 and 7. Production
// callers use internal/dispatcher/agentwire; tests use an in-process fake.
type MemoryClient interface {
	GetMemories(ctx context.Context, query, conversationContext string) ([]models.ScoredMemoryItem, error)
	StoreTurn(ctx context.Context, turn models.ConversationTurn) error
}

// ToolClient is the dispatcher's view of the tool host (C5), reached over
// its Unix socket. Production callers use internal/dispatcher/hostwire;
// tests use an in-process fake.
type ToolClient interface {
	GetCapabilities(ctx context.Context) ([]models.Capability, error)
	ExecuteTool(ctx context.Context, server, tool string, args json.RawMessage) (json.RawMessage, error)
}
