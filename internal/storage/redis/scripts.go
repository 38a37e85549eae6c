package redis

const (
	// saveDeadlineScript replaces the record so no stale fields survive an upsert
	saveDeadlineScript = `
local deadline_key = KEYS[1]    -- countdown:deadline:{identity}

local deadline_ts_ms = ARGV[1]
local set_at_ms = ARGV[2]

redis.call('DEL', deadline_key)
redis.call('HSET', deadline_key,
  'deadline_ts_ms', deadline_ts_ms,
  'set_at_ms', set_at_ms
)

return 'OK'
`
)
