package domain

// EventKind names a progress event on the outbound stream.
type EventKind string

const (
	EventInit     EventKind = "INIT"
	EventProgress EventKind = "PROGRESS"
	EventComplete EventKind = "COMPLETE"
	EventError    EventKind = "ERROR"
)

// Terminal reports whether the kind ends a stream.
func (k EventKind) Terminal() bool {
	return k == EventComplete || k == EventError
}

// Event is one entry of a job's progress stream.
type Event struct {
	Kind    EventKind
	Payload map[string]any
}

func MessageEvent(kind EventKind, message string) Event {
	return Event{Kind: kind, Payload: map[string]any{"message": message}}
}

func CompleteEvent(videoURL, enhancedPrompt string) Event {
	return Event{Kind: EventComplete, Payload: map[string]any{
		"videoUrl":       videoURL,
		"enhancedPrompt": enhancedPrompt,
	}}
}

// Outcome summarizes a finished job for reporting sinks.
type Outcome struct {
	JobID         string `json:"job_id"`
	RequestID     string `json:"request_id,omitempty"`
	Input         string `json:"input"`
	Lucid         bool   `json:"lucid"`
	Category      string `json:"category,omitempty"`
	RefinedPrompt string `json:"refined_prompt,omitempty"`
	VideoRef      string `json:"video_ref,omitempty"`
	UsedFallback  bool   `json:"used_fallback"`
	Phase         Phase  `json:"phase"`
	Error         string `json:"error,omitempty"`
	LatencyMillis int64  `json:"latency_ms"`
	FinishedAt    int64  `json:"finished_at"`
}
