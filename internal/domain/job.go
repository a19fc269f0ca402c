package domain

import (
	"strings"
	"time"
)

// Category is the visual theme chosen by the director.
type Category string

const (
	CategoryFly       Category = "FLY"
	CategoryExplore   Category = "EXPLORE"
	CategoryTransform Category = "TRANSFORM"
	CategoryNightmare Category = "NIGHTMARE"
)

// ParseCategory normalizes a model-provided category. The second result is
// false for anything outside the known set.
func ParseCategory(raw string) (Category, bool) {
	switch c := Category(strings.ToUpper(strings.TrimSpace(raw))); c {
	case CategoryFly, CategoryExplore, CategoryTransform, CategoryNightmare:
		return c, true
	default:
		return "", false
	}
}

// Phase enumerates the orchestrator states of a job.
type Phase string

const (
	PhaseInit        Phase = "INIT"
	PhaseRefining    Phase = "REFINING"
	PhaseGenerating  Phase = "GENERATING"
	PhaseCompleting  Phase = "COMPLETING"
	PhaseFallingBack Phase = "FALLING_BACK"
	PhaseDone        Phase = "DONE"
	PhaseFailed      Phase = "FAILED"
)

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Job holds the state of one dream-video request. It lives only as long as the
// connection that created it.
type Job struct {
	ID             string
	RequestID      string
	Input          string
	IsLucidMode    bool
	StartedAt      time.Time
	Deadline       time.Time
	Category       *Category
	RefinedPrompt  *string
	ResultVideoRef string
	Phase          Phase
	UsedFallback   bool
	ErrorMessage   string
}

// NewJob builds a job from the caller's prompt/action pair. action wins when
// both are present and marks the job as lucid.
func NewJob(id, requestID, prompt, action string, now time.Time, budget time.Duration) (*Job, error) {
	input := strings.TrimSpace(action)
	lucid := input != ""
	if !lucid {
		input = strings.TrimSpace(prompt)
	}
	if input == "" {
		return nil, ErrInvalidInput
	}
	return &Job{
		ID:          id,
		RequestID:   requestID,
		Input:       input,
		IsLucidMode: lucid,
		StartedAt:   now,
		Deadline:    now.Add(budget),
		Phase:       PhaseInit,
	}, nil
}

// CategoryValue returns the category or the empty string before refinement.
func (j *Job) CategoryValue() Category {
	if j.Category == nil {
		return ""
	}
	return *j.Category
}

// RefinedPromptValue returns the refined prompt or the empty string.
func (j *Job) RefinedPromptValue() string {
	if j.RefinedPrompt == nil {
		return ""
	}
	return *j.RefinedPrompt
}

// Remaining is the budget left at now; it is never negative.
func (j *Job) Remaining(now time.Time) time.Duration {
	d := j.Deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
