package dispatcher

// State names one step of the per-turn state machine (spec §4.7).
type State string

const (
	StateIdle        State = "idle"
	StateRetrieving  State = "retrieving"
	StatePrompting   State = "prompting"
	StateLLMCalling  State = "llm_calling"
	StateToolLooping State = "tool_looping"
	StateResponding  State = "responding"
	StatePersisting  State = "persisting"
)
