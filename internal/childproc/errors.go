package childproc

import "errors"

// Errors returned by Supervisor. Grounded on the teacher's error-string
// idiom in internal/mcp/transport_stdio.go, tightened to sentinel errors so
// callers can errors.Is them across the tool host boundary.
var (
	ErrInitTimeout      = errors.New("childproc: initialize handshake timed out")
	ErrInitFailed       = errors.New("childproc: initialize request returned an error")
	ErrToolTimeout      = errors.New("childproc: execute_tool timed out")
	ErrResourceTimeout  = errors.New("childproc: get_resource timed out")
	ErrTransportError   = errors.New("childproc: failed to write request to child stdin")
	ErrConnectionLost   = errors.New("childproc: response channel closed before completion")
	ErrConnectionClosed = errors.New("childproc: supervisor shut down with request pending")
	ErrNotReady         = errors.New("childproc: supervisor is not in the Ready state")
)
