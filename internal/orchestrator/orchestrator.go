package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lucidify/internal/domain"
	"lucidify/internal/fallback"
	"lucidify/internal/infra"
	"lucidify/internal/providers/director"
	"lucidify/internal/providers/video"
	"lucidify/internal/stream"
)

const (
	initMessage       = "Establishing Neural Link..."
	unavailableReason = "The Cinematic Director is unavailable"
	reportTimeout     = 5 * time.Second
)

// cannedSteps double as the rotating progress text while the backend renders.
var cannedSteps = []string{
	"Constructing Visuals...",
	"Warping Reality...",
	"Finalizing Dreamscape...",
}

type Refiner interface {
	Refine(ctx context.Context, input string) (director.Refinement, error)
}

type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Reporter receives the outcome of every finished job.
type Reporter interface {
	Report(ctx context.Context, outcome domain.Outcome) error
}

type Options struct {
	Config    Config
	Refiner   Refiner
	Backend   video.Backend
	Selector  *fallback.Selector
	Resolver  Resolver
	Reporters []Reporter
	Logger    *infra.Logger
}

// Orchestrator runs dream-video jobs from prompt to terminal event.
type Orchestrator struct {
	cfg       Config
	refiner   Refiner
	backend   video.Backend
	selector  *fallback.Selector
	resolver  Resolver
	reporters []Reporter
	logger    *infra.Logger
	now       func() time.Time
}

func New(opts Options) (*Orchestrator, error) {
	cfg := opts.Config.withDefaults()
	if opts.Refiner == nil {
		return nil, errors.New("orchestrator: refiner is required")
	}
	if cfg.Mode == ModeBackend && opts.Backend == nil {
		return nil, errors.New("orchestrator: video backend is required in backend mode")
	}
	selector := opts.Selector
	if selector == nil {
		selector = fallback.NewSelector(fallback.DefaultCatalog())
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	reporters := make([]Reporter, 0, len(opts.Reporters))
	for _, r := range opts.Reporters {
		if r != nil {
			reporters = append(reporters, r)
		}
	}
	return &Orchestrator{
		cfg:       cfg,
		refiner:   opts.Refiner,
		backend:   opts.Backend,
		selector:  selector,
		resolver:  opts.Resolver,
		reporters: reporters,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config {
	return o.cfg
}

// NewJob validates the request and starts the job's budget clock.
func (o *Orchestrator) NewJob(requestID, prompt, action string) (*domain.Job, error) {
	return domain.NewJob(uuid.NewString(), requestID, prompt, action, o.now(), o.cfg.Budget)
}

// Run drives job to exactly one terminal event on emit. It never panics and
// never returns an error; every failure after INIT becomes an ERROR event.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job, emit stream.Emitter) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := o.logger.With().Str("job_id", job.ID).Str("request_id", job.RequestID).Logger()
	r := &run{o: o, job: job, emit: emit, cancel: cancel, logger: &logger}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Msg("job panicked")
			r.fail(errors.New(unavailableReason))
		}
		if !job.Phase.Terminal() {
			r.fail(errors.New(unavailableReason))
		}
		o.report(job)
	}()

	r.execute(ctx)
}

type run struct {
	o      *Orchestrator
	job    *domain.Job
	emit   stream.Emitter
	cancel context.CancelFunc
	logger *infra.Logger
}

func (r *run) execute(ctx context.Context) {
	o, job := r.o, r.job
	r.send(domain.MessageEvent(domain.EventInit, initMessage))
	r.pause(ctx)

	r.setPhase(domain.PhaseRefining)
	refineCtx, cancelRefine := context.WithDeadline(ctx, job.Deadline)
	refinement, err := o.refiner.Refine(refineCtx, job.Input)
	cancelRefine()
	if err != nil {
		r.logger.Warn().Err(err).Msg("refinement failed")
		r.fail(err)
		return
	}
	category, refined := refinement.Category, refinement.RefinedPrompt
	job.Category = &category
	job.RefinedPrompt = &refined

	r.setPhase(domain.PhaseGenerating)
	r.send(domain.MessageEvent(domain.EventProgress, fmt.Sprintf("Director selected theme: %s...", category)))
	r.pause(ctx)

	var ref string
	if o.cfg.Mode == ModeCanned {
		ref = r.canned(ctx)
	} else {
		ref, err = r.generate(ctx, refined)
		if err == nil {
			ref, err = r.resolve(ctx, ref)
		}
	}
	if err != nil {
		if o.cfg.Strategy != StrategyResilient || !domain.IsBackendFailure(err) {
			r.logger.Warn().Err(err).Msg("generation failed")
			r.fail(err)
			return
		}
		r.logger.Warn().Err(err).Msg("generation failed, using fallback")
		r.setPhase(domain.PhaseFallingBack)
		job.UsedFallback = true
		ref = r.fallbackRef(ctx)
	} else {
		r.setPhase(domain.PhaseCompleting)
	}
	r.complete(ref)
}

// generate drives the backend session until it yields a reference, the
// budget runs out or the context ends.
func (r *run) generate(ctx context.Context, prompt string) (string, error) {
	o, job := r.o, r.job
	session := o.backend.Begin(prompt)
	for tick := 0; ; tick++ {
		now := o.now()
		if o.cfg.Strategy == StrategyResilient && o.cfg.SoftBudget > 0 && now.Sub(job.StartedAt) >= o.cfg.SoftBudget {
			return "", fmt.Errorf("%w: soft budget of %s reached", domain.ErrTimeout, o.cfg.SoftBudget)
		}
		if job.Remaining(now) <= 0 {
			return "", fmt.Errorf("%w: budget of %s exhausted", domain.ErrTimeout, o.cfg.Budget)
		}

		callCtx, cancel := context.WithDeadline(ctx, job.Deadline)
		res, err := session.Next(callCtx)
		cancel()
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: %w", domain.ErrTimeout, err)
			}
			return "", err
		}
		if res.Ready {
			ref := strings.TrimSpace(res.VideoRef)
			if ref == "" {
				return "", fmt.Errorf("%w: ready without a reference", domain.ErrReferenceNotFound)
			}
			return ref, nil
		}

		msg := res.Progress
		if msg == "" {
			msg = cannedSteps[tick%len(cannedSteps)]
		}
		r.send(domain.MessageEvent(domain.EventProgress, msg))

		wait := min(o.cfg.PollInterval, job.Remaining(o.now()))
		if err := sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func (r *run) canned(ctx context.Context) string {
	for _, step := range cannedSteps {
		r.send(domain.MessageEvent(domain.EventProgress, step))
		r.pause(ctx)
	}
	job := r.job
	return r.staticRef(ctx, r.o.selector.Select(job.CategoryValue(), job.Input, job.IsLucidMode))
}

func (r *run) resolve(ctx context.Context, ref string) (string, error) {
	if r.o.resolver == nil {
		return ref, nil
	}
	resolveCtx, cancel := context.WithDeadline(ctx, r.job.Deadline)
	defer cancel()
	return r.o.resolver.Resolve(resolveCtx, ref)
}

func (r *run) fallbackRef(ctx context.Context) string {
	job := r.job
	return r.staticRef(ctx, r.o.selector.Select(job.CategoryValue(), job.Input, job.IsLucidMode))
}

// staticRef resolves a catalog reference, keeping it as is when resolution
// fails so the job can still complete.
func (r *run) staticRef(ctx context.Context, ref string) string {
	if r.o.resolver == nil {
		return ref
	}
	resolved, err := r.o.resolver.Resolve(context.WithoutCancel(ctx), ref)
	if err != nil {
		r.logger.Warn().Err(err).Str("ref", ref).Msg("fallback reference not resolved")
		return ref
	}
	return resolved
}

func (r *run) complete(ref string) {
	r.job.ResultVideoRef = ref
	r.send(domain.CompleteEvent(ref, r.job.RefinedPromptValue()))
	r.setPhase(domain.PhaseDone)
}

func (r *run) fail(err error) {
	if r.job.Phase.Terminal() {
		return
	}
	msg := domain.UpstreamMessage(err)
	if msg == "" {
		msg = unavailableReason
	}
	r.job.ErrorMessage = msg
	r.send(domain.MessageEvent(domain.EventError, msg))
	r.setPhase(domain.PhaseFailed)
}

func (r *run) send(ev domain.Event) {
	if r.job.Phase.Terminal() {
		return
	}
	if err := r.emit.Emit(ev); err != nil {
		r.logger.Debug().Err(err).Str("event", string(ev.Kind)).Msg("event not delivered, cancelling job")
		r.cancel()
	}
}

func (r *run) setPhase(p domain.Phase) {
	r.job.Phase = p
	r.logger.Info().Str("phase", string(p)).Msg("job phase")
}

func (r *run) pause(ctx context.Context) {
	if d := r.o.cfg.StepDelay; d > 0 {
		_ = sleep(ctx, d)
	}
}

func (o *Orchestrator) report(job *domain.Job) {
	if len(o.reporters) == 0 {
		return
	}
	finished := o.now()
	outcome := domain.Outcome{
		JobID:         job.ID,
		RequestID:     job.RequestID,
		Input:         job.Input,
		Lucid:         job.IsLucidMode,
		Category:      string(job.CategoryValue()),
		RefinedPrompt: job.RefinedPromptValue(),
		VideoRef:      job.ResultVideoRef,
		UsedFallback:  job.UsedFallback,
		Phase:         job.Phase,
		Error:         job.ErrorMessage,
		LatencyMillis: finished.Sub(job.StartedAt).Milliseconds(),
		FinishedAt:    finished.Unix(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	for _, rep := range o.reporters {
		if err := rep.Report(ctx, outcome); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("outcome report failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
