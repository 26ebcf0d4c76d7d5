// Package toolhost aggregates capabilities across supervised child
// tool-servers, routes tool/resource calls to the right supervisor (or to
// an embedded memory store for the memory-store-mcp virtual server), and
// performs the dot/slash name translation the LLM boundary expects.
// Grounded on the teacher's internal/mcp/manager.go (map[string]*Client
// aggregation under a single RWMutex, per-server lookups) generalized from
// an MCP-client map to a childproc.Supervisor map, plus the spec's §4.5
// contract the teacher has no direct counterpart for (embedded
// memory-store virtual tools, "[From <server>]" description prefixing,
// keyword-based default-server name-translation heuristic).
package toolhost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/triadhq/assistant/internal/childproc"
	"github.com/triadhq/assistant/internal/memstore"
	"github.com/triadhq/assistant/pkg/models"
)

// MemoryServerName is the reserved server name for the embedded memory
// store's virtual tools (spec §4.5).
const MemoryServerName = "memory-store-mcp"

var memoryVirtualTools = []string{
	"store_memory",
	"list_all_memories",
	"retrieve_memory_by_key",
	"retrieve_memory_by_tag",
	"delete_memory_by_key",
	"semantic_search",
}

// Host aggregates tool servers. Holds a map of server-name to supervisor
// handle plus an optional embedded memory store, per spec §4.5.
type Host struct {
	logger *slog.Logger

	mu         sync.RWMutex
	supervised map[string]*childproc.Supervisor
	memory     memstore.Store
	embedder   memstore.Embedder
}

// New creates an empty Host. Attach supervisors with AddServer and
// optionally an embedded memory store with SetMemoryStore.
func New(logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		logger:     logger.With("component", "toolhost"),
		supervised: make(map[string]*childproc.Supervisor),
	}
}

// AddServer registers an already-launched supervisor under name.
func (h *Host) AddServer(name string, sup *childproc.Supervisor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.supervised[name] = sup
}

// SetMemoryStore attaches an embedded memory store, enabling the
// memory-store-mcp virtual server.
func (h *Host) SetMemoryStore(store memstore.Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.memory = store
}

// SetEmbedder attaches the embedder the generate_embedding wire call (spec
// §6) delegates to. The memstore's own semantic scoring does not depend on
// this — it is wired here purely as the "LLM-embedding tool" back-reference
// SPEC_FULL §4.5 describes, constructed after the tool host has finished
// initializing its child servers.
func (h *Host) SetEmbedder(embedder memstore.Embedder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.embedder = embedder
}

// GenerateEmbedding embeds text using the attached embedder. Returns
// ErrNoEmbedder if none was configured via SetEmbedder.
func (h *Host) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	h.mu.RLock()
	embedder := h.embedder
	h.mu.RUnlock()
	if embedder == nil {
		return nil, ErrNoEmbedder
	}
	return embedder.Embed(ctx, text)
}

// GetAllCapabilities returns the union of every server's capabilities with
// names rewritten to "<server>/<name>" and descriptions prefixed with
// "[From <server>]" (spec §4.5). When an embedded memory store is
// attached, the fixed memory-store-mcp virtual tool set is appended.
func (h *Host) GetAllCapabilities() []models.Capability {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []models.Capability
	for name, sup := range h.supervised {
		for _, c := range sup.Capabilities() {
			out = append(out, models.Capability{
				Name:        name + "/" + c.Name,
				Description: fmt.Sprintf("[From %s] %s", name, c.Description),
				Parameters:  c.Parameters,
				Kind:        c.Kind,
			})
		}
	}

	if h.memory != nil {
		for _, tool := range memoryVirtualTools {
			out = append(out, models.Capability{
				Name:        MemoryServerName + "/" + tool,
				Description: fmt.Sprintf("[From %s] %s", MemoryServerName, tool),
				Kind:        models.CapabilityTool,
			})
		}
	}
	return out
}

// ExecuteTool routes a tool invocation. If server is MemoryServerName and
// an embedded store is attached, it is handled in-process; otherwise the
// call is delegated to the matching supervisor after verifying the tool
// was advertised.
func (h *Host) ExecuteTool(ctx context.Context, server, tool string, args json.RawMessage) (json.RawMessage, error) {
	if server == MemoryServerName {
		h.mu.RLock()
		store := h.memory
		h.mu.RUnlock()
		if store != nil {
			return h.executeMemoryTool(ctx, store, tool, args)
		}
	}

	sup, err := h.lookup(server)
	if err != nil {
		return nil, err
	}
	if !advertises(sup.Capabilities(), tool, models.CapabilityTool) {
		return nil, fmt.Errorf("%w: %s/%s", ErrToolNotAdvertised, server, tool)
	}
	return sup.ExecuteTool(ctx, tool, args)
}

// GetResource is symmetric to ExecuteTool, but via the resource method and
// without embedded-store interception (spec §4.5).
func (h *Host) GetResource(ctx context.Context, server, name string, params json.RawMessage) (json.RawMessage, error) {
	sup, err := h.lookup(server)
	if err != nil {
		return nil, err
	}
	if !advertises(sup.Capabilities(), name, models.CapabilityResource) {
		return nil, fmt.Errorf("%w: %s/%s", ErrToolNotAdvertised, server, name)
	}
	return sup.GetResource(ctx, name, params)
}

// Shutdown signals shutdown on every supervisor and clears the handle map.
func (h *Host) Shutdown(ctx context.Context) {
	h.mu.Lock()
	supervised := h.supervised
	h.supervised = make(map[string]*childproc.Supervisor)
	h.mu.Unlock()

	var wg sync.WaitGroup
	for name, sup := range supervised {
		wg.Add(1)
		go func(name string, sup *childproc.Supervisor) {
			defer wg.Done()
			if err := sup.Shutdown(ctx); err != nil {
				h.logger.Warn("supervisor shutdown error", "server", name, "error", err)
			}
		}(name, sup)
	}
	wg.Wait()
}

func (h *Host) lookup(server string) (*childproc.Supervisor, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sup, ok := h.supervised[server]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrServerNotFound, server)
	}
	return sup, nil
}

func advertises(caps []models.Capability, name string, kind models.CapabilityKind) bool {
	for _, c := range caps {
		if c.Name == name && c.Kind == kind {
			return true
		}
	}
	return false
}

// ResolveDefaultServer heuristically maps a separator-less function name to
// a default server by keyword, per spec §4.5. The mapping is best-effort;
// callers should log a warning when it is used.
func ResolveDefaultServer(name string) (server string, ok bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "execute_"):
		return "command", true
	case strings.Contains(lower, "file") || strings.Contains(lower, "directory"):
		return "filesystem", true
	case strings.Contains(lower, "memory"):
		return MemoryServerName, true
	default:
		return "", false
	}
}
