package sqlinline

const QInsertImageJob = `--sql 4105fe08-7b25-4dfd-af91-4645571dd53b
insert into image_jobs (id, recipe_id, prompt, filter_changes, status)
values ($1, $2, $3, $4, 'pending');
`

const QMarkJobGenerating = `--sql de71bbcc-3574-4137-9422-b249481fcda7
update image_jobs
set status = 'generating',
    updated_at = now()
where id = $1
  and status = 'pending'
returning id;
`

const QFinalizeJob = `--sql 93a957b8-fe84-4a2d-8815-b53de8dd6089
update image_jobs
set status = $2,
    image_path = coalesce(nullif($3, ''), image_path),
    correlation_id = coalesce(nullif($4, ''), correlation_id),
    error_message = $5,
    updated_at = now()
where id = $1
  and status in ('pending', 'generating');
`

const QSelectJobStatus = `--sql 221c555e-a253-4ea8-85e7-ec3aeca98740
select status
from image_jobs
where id = $1;
`

const QClearActiveJobs = `--sql c2c50dbc-a103-4415-b8a5-94a2140c309b
update image_jobs
set status = 'failed',
    error_message = $2,
    updated_at = now()
where recipe_id = $1
  and status in ('pending', 'generating');
`

const QSupersedeOtherJobs = `--sql 1164000f-c122-49ea-9a89-39c5aed53d6a
update image_jobs
set status = 'failed',
    error_message = $3,
    updated_at = now()
where recipe_id = $1
  and id <> $2
  and status in ('pending', 'generating');
`

const QSelectJob = `--sql 67fa9e95-2dc0-45b1-89f7-9bd3225491be
select id, recipe_id, prompt, filter_changes, coalesce(correlation_id, ''),
       coalesce(image_path, ''), status, coalesce(error_message, ''),
       created_at, updated_at
from image_jobs
where id = $1;
`

const QListJobsByRecipe = `--sql 1a2f813d-ab3c-4646-975c-42c758ad2ef1
select id, recipe_id, prompt, filter_changes, coalesce(correlation_id, ''),
       coalesce(image_path, ''), status, coalesce(error_message, ''),
       created_at, updated_at
from image_jobs
where recipe_id = $1
order by created_at desc;
`

const QHasActiveJob = `--sql bf752279-adb6-449a-85b0-9f1795cff4a4
select exists (
  select 1
  from image_jobs
  where recipe_id = $1
    and status in ('pending', 'generating')
);
`

const QSweepStaleJobs = `--sql 31bb08d3-9b0d-4993-9f7c-ee2036f2fcc1
update image_jobs
set status = 'failed',
    error_message = $2,
    updated_at = now()
where status in ('pending', 'generating')
  and updated_at < now() - $1::interval;
`
