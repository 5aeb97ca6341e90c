// Package connection provides the kvault-cli transports.
//
//   - resp.go: VaultClient, a RESP client bound to one authenticated session
//   - socket.go: SocketClient for the server's local admin socket
//   - http.go: HTTPClient for the health and admin HTTP endpoints
//
// Each client owns a single connection and is not safe for concurrent use.
package connection
