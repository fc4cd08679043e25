package redis

import goredis "github.com/redis/go-redis/v9"

// claimScript moves due pending jobs with remaining attempts to processing.
// KEYS[1] pending zset; ARGV: now (ms), limit, job key prefix, started_at.
var claimScript = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local limit = tonumber(ARGV[2])
local claimed = {}

for _, member in ipairs(due) do
	if #claimed >= limit then
		break
	end

	local key = ARGV[3] .. member
	local attempts = tonumber(redis.call('HGET', key, 'attempts') or '0')
	local max = tonumber(redis.call('HGET', key, 'max_attempts') or '0')

	if attempts < max then
		redis.call('ZREM', KEYS[1], member)
		redis.call('HSET', key, 'status', 'processing', 'started_at', ARGV[4])
		table.insert(claimed, member)
	end
end

return claimed
`)

// completeScript marks a job completed unless it is already terminal.
// KEYS[1] job hash, KEYS[2] pending zset; ARGV: member, completed_at.
var completeScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end

local status = redis.call('HGET', KEYS[1], 'status')
if status == 'completed' or status == 'failed' then
	return status
end

redis.call('HSET', KEYS[1], 'status', 'completed', 'completed_at', ARGV[2])
redis.call('ZREM', KEYS[2], ARGV[1])

return 'completed'
`)

// failScript counts one attempt and either reschedules or fails the job.
// KEYS[1] job hash, KEYS[2] pending zset; ARGV: member.
var failScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end

local status = redis.call('HGET', KEYS[1], 'status')
if status == 'completed' or status == 'failed' then
	return status
end

local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
local max = tonumber(redis.call('HGET', KEYS[1], 'max_attempts'))

redis.call('HDEL', KEYS[1], 'started_at')

if attempts >= max then
	redis.call('HSET', KEYS[1], 'status', 'failed')
	redis.call('ZREM', KEYS[2], ARGV[1])

	return 'failed'
end

redis.call('HSET', KEYS[1], 'status', 'pending')
redis.call('ZADD', KEYS[2], redis.call('HGET', KEYS[1], 'scheduled_ms'), ARGV[1])

return 'pending'
`)

// purgeScript deletes terminal jobs created before the cutoff.
// KEYS[1] all-jobs zset scored by creation; ARGV: cutoff (ms, exclusive), job key prefix.
var purgeScript = goredis.NewScript(`
local candidates = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
local deleted = 0

for _, member in ipairs(candidates) do
	local key = ARGV[2] .. member
	local status = redis.call('HGET', key, 'status')

	if status == 'completed' or status == 'failed' then
		redis.call('DEL', key)
		redis.call('ZREM', KEYS[1], member)
		deleted = deleted + 1
	end
end

return deleted
`)

// countScript returns alternating status and count values.
// KEYS[1] all-jobs zset; ARGV: job key prefix.
var countScript = goredis.NewScript(`
local counts = {}

for _, member in ipairs(redis.call('ZRANGE', KEYS[1], 0, -1)) do
	local status = redis.call('HGET', ARGV[1] .. member, 'status')
	if status then
		counts[status] = (counts[status] or 0) + 1
	end
end

local out = {}
for status, count in pairs(counts) do
	table.insert(out, status)
	table.insert(out, count)
end

return out
`)
