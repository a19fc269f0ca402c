package sqlinline

const QEnsureDreamJobs = `--sql 35d94b35-18a5-415e-87ac-958016c1b831
create table if not exists dream_jobs (
  id uuid primary key,
  request_id text not null default '',
  input text not null,
  lucid boolean not null default false,
  category text,
  refined_prompt text,
  video_ref text,
  used_fallback boolean not null default false,
  phase text not null,
  error_message text,
  latency_ms bigint not null,
  finished_at timestamptz not null
);
`

const QInsertDreamJob = `--sql 2eee9084-f606-4334-ad80-6c935e31b491
insert into dream_jobs (
  id, request_id, input, lucid, category, refined_prompt,
  video_ref, used_fallback, phase, error_message, latency_ms, finished_at
)
values (
  $1::uuid, $2, $3, $4, nullif($5, ''), nullif($6, ''),
  nullif($7, ''), $8, $9, nullif($10, ''), $11, to_timestamp($12)
)
on conflict (id) do nothing;
`
