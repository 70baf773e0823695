package sqlinline

const QSelectRecipe = `--sql 28e488d5-ebef-4248-b298-32a7f66127ba
select id, name, coalesce(ingredients, '[]'::jsonb), created_at, updated_at
from recipes
where id = $1;
`
