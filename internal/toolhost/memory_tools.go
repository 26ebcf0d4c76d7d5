package toolhost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/triadhq/assistant/internal/memstore"
)

// executeMemoryTool dispatches one of the memory-store-mcp virtual tools
// against an embedded memstore.Store, translating its typed contract into
// the JSON args/result shape tool calls use (spec §4.5).
func (h *Host) executeMemoryTool(ctx context.Context, store memstore.Store, tool string, args json.RawMessage) (json.RawMessage, error) {
	switch tool {
	case "store_memory":
		var req struct {
			Key         string   `json:"key"`
			Value       string   `json:"value"`
			Tags        []string `json:"tags"`
			SessionID   string   `json:"session_id"`
			Source      string   `json:"source"`
			RelatedKeys []string `json:"related_keys"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("toolhost: store_memory args: %w", err)
		}
		err := store.AddMemory(ctx, req.Key, req.Value, req.Tags, memstore.AddOptions{
			SessionID:   req.SessionID,
			Source:      req.Source,
			RelatedKeys: req.RelatedKeys,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"stored": true})

	case "list_all_memories":
		var req struct {
			Namespace string `json:"namespace"`
			Limit     int    `json:"limit"`
		}
		_ = json.Unmarshal(args, &req)
		items, err := store.List(ctx, req.Namespace, req.Limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"memories": items})

	case "retrieve_memory_by_key":
		var req struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("toolhost: retrieve_memory_by_key args: %w", err)
		}
		item, err := store.Get(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"memory": item})

	case "retrieve_memory_by_tag":
		var req struct {
			Tag string `json:"tag"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("toolhost: retrieve_memory_by_tag args: %w", err)
		}
		items, err := store.GetByTag(ctx, req.Tag)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"memories": items})

	case "delete_memory_by_key":
		var req struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("toolhost: delete_memory_by_key args: %w", err)
		}
		n, err := store.Delete(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]int{"deleted": n})

	case "semantic_search":
		var req struct {
			Query     string  `json:"query"`
			Namespace string  `json:"namespace"`
			Limit     int     `json:"limit"`
			MinScore  float64 `json:"min_score"`
		}
		if err := json.Unmarshal(args, &req); err != nil {
			return nil, fmt.Errorf("toolhost: semantic_search args: %w", err)
		}
		results, err := store.QuerySemantic(ctx, req.Query, memstore.QueryOptions{
			Namespace: req.Namespace,
			Limit:     req.Limit,
			MinScore:  req.MinScore,
		})
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"results": results})

	default:
		return nil, fmt.Errorf("%w: %s/%s", ErrToolNotAdvertised, MemoryServerName, tool)
	}
}
