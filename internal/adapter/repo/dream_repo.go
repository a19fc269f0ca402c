package repo

import (
	"context"
	"fmt"

	"lucidify/internal/domain"
	"lucidify/internal/infra"
	"lucidify/internal/sqlinline"
)

// DreamJobRepository records finished jobs in dream_jobs.
type DreamJobRepository struct {
	db infra.SQLExecutor
}

func NewDreamJobRepository(db infra.SQLExecutor) *DreamJobRepository {
	return &DreamJobRepository{db: db}
}

// EnsureSchema creates dream_jobs when it does not exist.
func (r *DreamJobRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QEnsureDreamJobs); err != nil {
		return fmt.Errorf("ensure dream_jobs: %w", err)
	}
	return nil
}

func (r *DreamJobRepository) Report(ctx context.Context, o domain.Outcome) error {
	_, err := r.db.Exec(ctx, sqlinline.QInsertDreamJob,
		o.JobID,
		o.RequestID,
		o.Input,
		o.Lucid,
		o.Category,
		o.RefinedPrompt,
		o.VideoRef,
		o.UsedFallback,
		string(o.Phase),
		o.Error,
		o.LatencyMillis,
		o.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dream job %s: %w", o.JobID, err)
	}
	return nil
}
