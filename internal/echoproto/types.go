// Package echoproto defines the request/response types the
// kestrel-echo-server and kestrel-echo-client binaries exchange: an
// Initialize handshake pair, a ping/pong round trip, and a request that
// always answers with an application error, exercising every corner of
// the Connection API end to end.
package echoproto

// file: internal/echoproto/types.go

import "github.com/kestrelrpc/kestrel/rpctypes"

const (
	NamespaceInit rpctypes.Namespace = "init"
	NamespaceEcho rpctypes.Namespace = "echo"
)

// InitRequest is sent once, by the client, to open a Connection.
type InitRequest struct {
	ClientName string `json:"client_name"`
}

func (InitRequest) Namespace() rpctypes.Namespace { return NamespaceInit }
func (InitRequest) Method() string                { return "initialize" }

// InitResponse is the server's reply to InitRequest.
type InitResponse struct {
	ServerName      string `json:"server_name"`
	ProtocolVersion string `json:"protocol_version"`
}

// PingRequest asks the server to echo Text back unchanged.
type PingRequest struct {
	Text string `json:"text"`
}

func (PingRequest) Namespace() rpctypes.Namespace { return NamespaceEcho }
func (PingRequest) Method() string                { return "ping" }

// PongResponse is the server's reply to PingRequest.
type PongResponse struct {
	Text string `json:"text"`
}

// TriggerErrorRequest always answers with an application error, letting
// both sides exercise the error half of the Response envelope.
type TriggerErrorRequest struct{}

func (TriggerErrorRequest) Namespace() rpctypes.Namespace { return NamespaceEcho }
func (TriggerErrorRequest) Method() string                { return "trigger_error" }
