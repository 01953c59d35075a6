package sqlinline

// QInsertGenerationEvent args: request_id, endpoint, engine, mock, status,
// prompt_count, image_count, elapsed_ms, country, error.
const QInsertGenerationEvent = `--sql 4fb97489-1ea7-4658-b40f-7ac6ab02d531
insert into generation_events(id, request_id, endpoint, engine, mock, status, prompt_count, image_count, elapsed_ms, country, error, created_at)
values (gen_random_uuid(), $1::text, $2::text, nullif($3::text, ''), $4::boolean, $5::int, $6::int, $7::int, $8::int, nullif($9::text, ''), nullif($10::text, ''), now());
`
