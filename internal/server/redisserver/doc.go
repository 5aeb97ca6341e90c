// Package redisserver exposes the vault device over the Redis RESP protocol.
//
// One connection is one device session. AUTH resolves a principal to a user
// ordinal and opens the session; every KV.* command then acts on that
// session's cursor:
//
//	AUTH <principal> [secret]
//	KV.READ | KV.RREAD          pair at cursor, then step
//	KV.WRITE [key value]        insert, or delete at cursor when empty
//	KV.SEEK <key> <value>       reposition, 1 when found
//	KV.REWIND [FORWARD|REVERSE]
//	KV.GET <key>                every value of key
//	KV.STATS
//	KV.DUMP [FORWARD|REVERSE]
//
// The server listens on TCP, a Unix socket, or both. Domain errors are
// replied as "ERR <code> <message>".
package redisserver
