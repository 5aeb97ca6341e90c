// Package localserver provides the Unix socket server for local management.
//
// The socket speaks a line protocol: one command per line, one reply line
// per command. Successful replies are single-line JSON documents; failures
// are "ERR <code> <message>".
//
//	status                   build info, uptime and open sessions
//	stats <user>             one user's key and pair counters
//	totals                   vault-wide counters
//	dump [forward|reverse]   every non-empty user's pairs
//
// There is no authentication. Access is controlled by the socket file's
// permissions (0600), so only the owner of the server process can connect.
package localserver
