package sqlinline

const QSelectIntegrationToken = `--sql dcf6dbd8-bdd0-4bae-9b9a-245986ab1a86
select token
from integration_tokens
where provider = $1::text
  and btrim(token) <> ''
limit 1;
`

const QUpsertIntegrationToken = `--sql 37418639-bed4-4f49-bcf6-8661fdaebfa9
insert into integration_tokens (id, provider, token, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    token = excluded.token,
    properties = excluded.properties,
    updated_at = now();
`
