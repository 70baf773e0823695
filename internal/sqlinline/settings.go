package sqlinline

const QSelectSetting = `--sql 4e1f2d0f-b7d0-4e8c-a2f2-6aa0cf90ed0e
select value
from settings
where key = $1;
`

const QUpsertSetting = `--sql 3f2df697-0557-4195-88b3-bece01ef2e0f
insert into settings (key, value, updated_at)
values ($1, $2, now())
on conflict (key) do update
set value = excluded.value,
    updated_at = now();
`
