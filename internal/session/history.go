package session

import (
	"encoding/json"
	"fmt"

	"github.com/triadhq/assistant/pkg/models"
)

// MaxHistoryTurns bounds the turn-parts history carried forward per session
// (spec §3: "bounded to the most recent N turns (default 10)"). Grounded on
// the teacher's compaction.StrategyLastN / StrategyTruncateOld, simplified
// to a fixed cap since the spec names no configurable strategy.
const MaxHistoryTurns = 10

// history is the JSON shape stored under models.HistoryDataKey.
type history struct {
	Turns [][]models.TurnPart `json:"turns"`
}

// LoadHistory decodes the turn-parts history from a session's data map.
// A missing or empty key yields no history rather than an error.
func LoadHistory(s *models.Session) ([][]models.TurnPart, error) {
	if s == nil || s.Data == nil {
		return nil, nil
	}
	raw, ok := s.Data[models.HistoryDataKey]
	if !ok || raw == "" {
		return nil, nil
	}
	var h history
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		return nil, fmt.Errorf("session: decode history: %w", err)
	}
	return h.Turns, nil
}

// AppendHistory appends newTurnParts to the session's history, truncates to
// the most recent MaxHistoryTurns turns, and writes the result back into
// the session's data map.
func AppendHistory(s *models.Session, newTurnParts []models.TurnPart) error {
	turns, err := LoadHistory(s)
	if err != nil {
		return err
	}
	turns = append(turns, newTurnParts)
	if len(turns) > MaxHistoryTurns {
		turns = turns[len(turns)-MaxHistoryTurns:]
	}

	data, err := json.Marshal(history{Turns: turns})
	if err != nil {
		return fmt.Errorf("session: encode history: %w", err)
	}
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[models.HistoryDataKey] = string(data)
	return nil
}

// FlattenHistory concatenates the per-turn part slices into one ordered
// slice, suitable as prior conversation history for the LLM (spec §4.7
// step 3).
func FlattenHistory(turns [][]models.TurnPart) []models.TurnPart {
	var out []models.TurnPart
	for _, t := range turns {
		out = append(out, t...)
	}
	return out
}
