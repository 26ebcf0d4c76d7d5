package dispatcher

import (
	"strings"

	"github.com/triadhq/assistant/internal/toolhost"
	"github.com/triadhq/assistant/pkg/models"
)

// resolveToolCall maps an LLM-emitted dotted function name back to a
// (server, tool) pair (spec §4.5 name translation). Names without a
// namespace separator fall back to the keyword heuristic in
// toolhost.ResolveDefaultServer; heuristic is true when that fallback
// fired, so the caller can log it as a warning.
func resolveToolCall(dotName string) (server, tool string, heuristic bool) {
	slashName := models.SlashName(dotName)
	if idx := strings.IndexByte(slashName, '/'); idx >= 0 {
		return slashName[:idx], slashName[idx+1:], false
	}
	server, _ = toolhost.ResolveDefaultServer(slashName)
	return server, slashName, true
}
