package director

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"lucidify/internal/domain"
	"lucidify/internal/infra"
)

const (
	DefaultDirectorModel = "gemini-2.0-flash"
	DefaultChatModel     = "gemini-1.5-flash"
)

const cinematicDirectorInstruction = `You are a Cinematic Director. Analyze the provided dream prompt or lucid action.
Determine the visual category: 'FLY', 'EXPLORE', 'TRANSFORM', or 'NIGHTMARE'.
Output MUST be a valid JSON object: { "category": string, "refined_prompt": string }.`

const dreamArchitectInstruction = `You are the Dream Architect, a master of the subconscious. Your goal is to interpret vague dreams into vivid, cinematic video prompts.

When a user describes a dream, you must:
1. Provide a poetic title.
2. Offer a psychological interpretation (Barnum effect style - relatable yet profound).
3. Create a detailed, English video generation prompt optimized for Veo or Runway.
4. Extract relevant keywords.

CRITICAL - Dream Guard:
If the dream contains violence, gore, or disturbing content, do NOT block it. Instead, SANITIZE it using beautiful metaphors. For example, replace 'blood' with 'red rose petals', 'monsters' with 'shifting shadows', 'screams' with 'haunting melodies'. Ensure the final output is PG-13 safe and aesthetically pleasing.

Output MUST be a valid JSON object with the following structure:
{
  "title": "string",
  "insight": "string",
  "video_prompt": "string",
  "keywords": ["string"]
}`

var analysisTuning = Tuning{Temperature: 1, TopP: 0.95, TopK: 40, MaxOutputTokens: 8192}

// Refinement is the director's verdict on a prompt.
type Refinement struct {
	Category      domain.Category
	RefinedPrompt string
}

// DreamAnalysis is the Dream Architect's reading of a dream.
type DreamAnalysis struct {
	Title       string   `json:"title"`
	Insight     string   `json:"insight"`
	VideoPrompt string   `json:"video_prompt"`
	Keywords    []string `json:"keywords"`
}

type refinementPayload struct {
	Category      string `json:"category"`
	RefinedPrompt string `json:"refined_prompt"`
}

type Options struct {
	Model         Model
	DirectorModel string
	ChatModel     string
	Logger        *infra.Logger
}

// Director wraps the text model with the instructions each endpoint needs.
type Director struct {
	model         Model
	directorModel string
	chatModel     string
	logger        *infra.Logger
}

func New(opts Options) (*Director, error) {
	if opts.Model == nil {
		return nil, errors.New("director: model is required")
	}
	directorModel := strings.TrimSpace(opts.DirectorModel)
	if directorModel == "" {
		directorModel = DefaultDirectorModel
	}
	chatModel := strings.TrimSpace(opts.ChatModel)
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Director{
		model:         opts.Model,
		directorModel: directorModel,
		chatModel:     chatModel,
		logger:        logger,
	}, nil
}

// Refine classifies input into a category and rewrites it as a video prompt.
// Every failure wraps domain.ErrRefinement.
func (d *Director) Refine(ctx context.Context, input string) (Refinement, error) {
	text, err := d.model.Generate(ctx, Request{
		Model:  d.directorModel,
		System: cinematicDirectorInstruction,
		Input:  input,
		JSON:   true,
	})
	if err != nil {
		return Refinement{}, fmt.Errorf("%w: %w", domain.ErrRefinement, err)
	}
	payload, err := parseModelPayload[refinementPayload](text)
	if err != nil {
		d.logger.Debug().Str("reply", text).Msg("director: unparsable reply")
		return Refinement{}, fmt.Errorf("%w: malformed director reply: %w", domain.ErrRefinement, err)
	}
	category, ok := domain.ParseCategory(payload.Category)
	if !ok {
		return Refinement{}, fmt.Errorf("%w: unknown category %q", domain.ErrRefinement, payload.Category)
	}
	refined := strings.TrimSpace(payload.RefinedPrompt)
	if refined == "" {
		return Refinement{}, fmt.Errorf("%w: empty refined prompt", domain.ErrRefinement)
	}
	return Refinement{Category: category, RefinedPrompt: refined}, nil
}

func (d *Director) Analyze(ctx context.Context, dream string) (*DreamAnalysis, error) {
	if strings.TrimSpace(dream) == "" {
		return nil, domain.ErrInvalidInput
	}
	tuning := analysisTuning
	text, err := d.model.Generate(ctx, Request{
		Model:   d.directorModel,
		System:  dreamArchitectInstruction,
		Input:   dream,
		JSON:    true,
		Tuning:  &tuning,
		Guarded: true,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := parseModelPayload[DreamAnalysis](text)
	if err != nil {
		return nil, fmt.Errorf("decode dream analysis: %w", err)
	}
	analysis.Title = strings.TrimSpace(analysis.Title)
	analysis.Insight = strings.TrimSpace(analysis.Insight)
	analysis.VideoPrompt = strings.TrimSpace(analysis.VideoPrompt)
	analysis.Keywords = normalizeKeywords(analysis.Keywords)
	return &analysis, nil
}

// Chat forwards a free-form message and returns the plain reply.
func (d *Director) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.ErrInvalidInput
	}
	text, err := d.model.Generate(ctx, Request{Model: d.chatModel, Input: message})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
