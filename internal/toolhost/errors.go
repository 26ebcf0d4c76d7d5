package toolhost

import "errors"

// Errors returned by Host. Grounded on the teacher's fmt.Errorf-per-call
// idiom in internal/mcp/manager.go, tightened to sentinels per spec §4.5.
var (
	ErrServerNotFound    = errors.New("toolhost: server not found")
	ErrToolNotAdvertised = errors.New("toolhost: tool not advertised by server")
	ErrNoEmbedder        = errors.New("toolhost: no embedder configured")
)
