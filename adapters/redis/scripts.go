package redis

import "github.com/redis/go-redis/v9"

// The tree is stored as one key per scalar plus one set per object listing
// its child segments:
//
//	{prefix}leaf:{path} -> JSON scalar
//	{prefix}kids:{path} -> set of child segments ("" is the root)
//
// Reads and writes both run as scripts, so a read never observes a
// half-replaced subtree.
const luaPrelude = `
local prefix = ARGV[1]
local function leaf(p) return prefix .. 'leaf:' .. p end
local function kids(p) return prefix .. 'kids:' .. p end
local function join(p, s) if p == '' then return s end return p .. '/' .. s end
local function split(p)
	local out = {}
	for s in string.gmatch(p, '[^/]+') do table.insert(out, s) end
	return out
end
local function clear(p)
	redis.call('DEL', leaf(p))
	local ks = redis.call('SMEMBERS', kids(p))
	for _, k in ipairs(ks) do clear(join(p, k)) end
	redis.call('DEL', kids(p))
end
local function link(segs)
	local cur = ''
	for _, s in ipairs(segs) do
		redis.call('DEL', leaf(cur))
		redis.call('SADD', kids(cur), s)
		cur = join(cur, s)
	end
end
local function unlink(segs)
	local i = #segs
	while i >= 1 do
		local parent = table.concat(segs, '/', 1, i - 1)
		redis.call('SREM', kids(parent), segs[i])
		if redis.call('SCARD', kids(parent)) > 0 then return end
		i = i - 1
	end
end
`

// readScript returns the leaves under ARGV[2] as flat (relative path, JSON)
// pairs. A scalar stored at ARGV[2] itself has the relative path "".
var readScript = redis.NewScript(luaPrelude + `
local out = {}
local function walk(p, rel)
	local v = redis.call('GET', leaf(p))
	if v then
		table.insert(out, rel)
		table.insert(out, v)
		return
	end
	for _, k in ipairs(redis.call('SMEMBERS', kids(p))) do
		local r = k
		if rel ~= '' then r = rel .. '/' .. k end
		walk(join(p, k), r)
	end
end
walk(ARGV[2], '')
return out
`)

// writeScript replaces the subtree at ARGV[2] with the leaves given as
// (relative path, JSON) pairs in ARGV[3:]. No pairs means delete.
var writeScript = redis.NewScript(luaPrelude + `
local path = ARGV[2]
local segs = split(path)
clear(path)
local n = (#ARGV - 2) / 2
if n == 0 then
	unlink(segs)
	return 0
end
link(segs)
for i = 0, n - 1 do
	local p = path
	for _, s in ipairs(split(ARGV[3 + 2 * i])) do
		redis.call('SADD', kids(p), s)
		p = join(p, s)
	end
	redis.call('SET', leaf(p), ARGV[4 + 2 * i])
end
return n
`)

// writeIfGreaterScript sets ARGV[2] to the integer ARGV[3] when nothing is
// stored there or the stored value, read as an integer with non-integers
// counting as 0, is smaller. Returns {current, written}.
var writeIfGreaterScript = redis.NewScript(luaPrelude + `
local path = ARGV[2]
local value = tonumber(ARGV[3])
local raw = redis.call('GET', leaf(path))
local present = raw ~= false or redis.call('SCARD', kids(path)) > 0
local current = 0
if raw then
	local text = string.match(raw, '^"(.*)"$') or raw
	if string.match(text, '^%s*-?%d+%s*$') then current = tonumber(text) end
end
if present and value <= current then
	return {current, 0}
end
clear(path)
link(split(path))
redis.call('SET', leaf(path), ARGV[3])
return {value, 1}
`)
