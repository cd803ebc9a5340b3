package sqlinline

// QSelectIntegrationToken returns the stored key for a provider; blank keys
// count as missing.
const QSelectIntegrationToken = `--sql e5863ebc-9fc4-4033-af50-923ae52e4425
select token
from integration_tokens
where provider = $1::text
  and btrim(token) <> ''
`

// QUpsertIntegrationToken replaces the key and merges the new properties
// over the old ones.
const QUpsertIntegrationToken = `--sql 517c5f9d-611d-4fd2-95bb-2d34db95759f
insert into integration_tokens (provider, token, properties)
values ($1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb))
on conflict (provider) do update set
  token      = excluded.token,
  properties = integration_tokens.properties || excluded.properties,
  updated_at = now();
`
