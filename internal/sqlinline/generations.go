package sqlinline

const QInsertGeneration = `--sql c5f9a0f2-c466-4dc3-aa59-b41f923c2ecc
insert into generations(
  user_email,
  status,
  cost_in_credits,
  provider,
  model,
  prompt_mode,
  aspect_ratio,
  duration_ms,
  image_url,
  error_message
) values (
  $1::text,
  $2::text,
  $3::int,
  $4::text,
  nullif($5::text, ''),
  nullif($6::text, ''),
  nullif($7::text, ''),
  $8::int,
  nullif($9::text, ''),
  nullif($10::text, '')
);
`

const QListSuccessfulGenerations = `--sql 1a6be068-db5e-4d41-860d-1b233c17ddb2
select
  id,
  user_email,
  status,
  cost_in_credits,
  provider,
  coalesce(model, ''),
  coalesce(prompt_mode, ''),
  coalesce(aspect_ratio, ''),
  duration_ms,
  coalesce(image_url, ''),
  created_at
from generations
where user_email = $1::text
  and status = 'success'
order by created_at desc
limit $2::int;
`
