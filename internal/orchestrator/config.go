package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// Strategy decides what a backend failure does to a job.
type Strategy string

const (
	// StrategyResilient substitutes a fallback result for backend failures.
	StrategyResilient Strategy = "resilient"
	// StrategyStrict reports backend failures as terminal errors.
	StrategyStrict Strategy = "strict"
)

// Mode selects where the video comes from.
type Mode string

const (
	ModeBackend Mode = "backend"
	ModeCanned  Mode = "canned"
)

const (
	DefaultBudget       = 90 * time.Second
	DefaultPollInterval = 5 * time.Second
)

func ParseStrategy(raw string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StrategyResilient, nil
	case StrategyResilient, StrategyStrict:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job strategy %q", raw)
	}
}

func ParseMode(raw string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(raw))); m {
	case "":
		return ModeBackend, nil
	case ModeBackend, ModeCanned:
		return m, nil
	default:
		return "", fmt.Errorf("unknown generation mode %q", raw)
	}
}

// Config is fixed per deployment.
type Config struct {
	Strategy Strategy
	Mode     Mode
	// Budget is the hard wall-clock limit of a job.
	Budget time.Duration
	// SoftBudget, when positive, ends generation early under the resilient
	// strategy.
	SoftBudget   time.Duration
	PollInterval time.Duration
	// StepDelay paces the INIT, theme and canned steps.
	StepDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Strategy == "" {
		c.Strategy = StrategyResilient
	}
	if c.Mode == "" {
		c.Mode = ModeBackend
	}
	if c.Budget <= 0 {
		c.Budget = DefaultBudget
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.SoftBudget < 0 {
		c.SoftBudget = 0
	}
	if c.StepDelay < 0 {
		c.StepDelay = 0
	}
	return c
}
