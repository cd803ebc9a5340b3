package sqlinline

// QConsumeCredit returns the new balance, or NULL when the balance is zero.
const QConsumeCredit = `--sql c756c655-d070-43c4-88e3-1e78423fcbfe
select consume_credit($1::uuid);
`

const QRefundCredit = `--sql 76ef42c1-e332-412d-8ef1-6f49dd3f1327
select refund_credit($1::uuid);
`

const QGetCreditBalance = `--sql 32355d2a-9304-483e-8dff-ad24690ac115
select coalesce(get_credit_balance($1::uuid), 0);
`

const QGrantCredits = `--sql 233757cb-d8b6-465f-aea8-ac14d13ef1f9
select grant_credits($1::uuid, $2::int);
`
