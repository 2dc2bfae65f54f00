// Package wire defines the on-wire JSON-RPC 2.0 envelope types and their
// length-prefixed binary framing.
package wire

// file: wire/message.go

import (
	"encoding/json"

	"github.com/kestrelrpc/kestrel/internal/rpcerr"
)

// ProtocolVersion is the fixed JSON-RPC protocol tag carried by every
// Request and Response.
const ProtocolVersion = "2.0"

// Reserved method names encoding the shutdown/exit pseudo-messages as
// ordinary requests, per the library's chosen wire encoding (see
// DESIGN.md's "reserved method encoding" decision).
const (
	MethodShutdownRequest      = "$/shutdown"
	MethodShutdownAcknowledged = "$/shutdown-ack"
	MethodExit                 = "$/exit"
)

// Request is the on-wire request envelope. There are no notifications
// in this system: id is always present.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      string          `json:"id"`
}

// Error is the on-wire error record carried by a failed Response.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response is the on-wire response envelope. Exactly one of Result or
// Error is present.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      string          `json:"id"`
}

// NewRequest builds a Request with the params marshaled to JSON.
func NewRequest(id, method string, params interface{}) (Request, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return Request{}, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to marshal request params"),
			rpcerr.CategoryDecoding, rpcerr.CodeInternalError,
			map[string]interface{}{"method": method},
		)
	}
	return Request{JSONRPC: ProtocolVersion, Method: method, Params: raw, ID: id}, nil
}

// NewResultResponse builds a successful Response carrying result.
func NewResultResponse(id string, result interface{}) (Response, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{}, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to marshal response result"),
			rpcerr.CategoryDecoding, rpcerr.CodeInternalError,
			map[string]interface{}{"id": id},
		)
	}
	return Response{JSONRPC: ProtocolVersion, Result: raw, ID: id}, nil
}

// NewErrorResponse builds a Response carrying an error half.
func NewErrorResponse(id string, code rpcerr.Code, message string, data interface{}) Response {
	var raw json.RawMessage
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	return Response{
		JSONRPC: ProtocolVersion,
		Error:   &Error{Code: int(code), Message: message, Data: raw},
		ID:      id,
	}
}

// Kind distinguishes the cases carried by Message: Req, Res (a
// successful response), Err (a response carrying an error), and the
// shutdown/exit pseudo-messages.
type Kind int

const (
	KindReq Kind = iota
	KindRes
	KindErr
	KindShutdown
	KindShutdownAck
	KindExit
)

// String renders a Kind as the label used on Prometheus metrics.
func (k Kind) String() string {
	switch k {
	case KindReq:
		return "request"
	case KindRes:
		return "response"
	case KindErr:
		return "error"
	case KindShutdown:
		return "shutdown"
	case KindShutdownAck:
		return "shutdown_ack"
	case KindExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Message is the top-level tagged union every IO worker exchanges with
// its Connection. Exactly one of Req/Res is populated: Req for KindReq and
// the shutdown/exit kinds, Res for KindRes and KindErr.
type Message struct {
	Kind Kind
	Req  *Request
	Res  *Response
}

// ID returns the id carried by the message's Request or Response
// (shutdown/exit pseudo-messages carry the id they were built with), or
// the empty string if neither is set.
func (m Message) ID() string {
	switch {
	case m.Req != nil:
		return m.Req.ID
	case m.Res != nil:
		return m.Res.ID
	default:
		return ""
	}
}

// IsShutdownRequest reports whether m is a Shutdown(false)-equivalent message.
func (m Message) IsShutdownRequest() bool {
	return m.Kind == KindReq && m.Req != nil && m.Req.Method == MethodShutdownRequest
}

// IsShutdownAck reports whether m is a Shutdown(true)-equivalent message.
func (m Message) IsShutdownAck() bool {
	return m.Kind == KindReq && m.Req != nil && m.Req.Method == MethodShutdownAcknowledged
}

// IsExit reports whether m is the terminal Exit message.
func (m Message) IsExit() bool {
	return m.Kind == KindReq && m.Req != nil && m.Req.Method == MethodExit
}

// ReqMessage wraps a Request as a Message.
func ReqMessage(r Request) Message { return Message{Kind: KindReq, Req: &r} }

// ResMessage wraps a Response as a Message, splitting Err out as its
// own Kind whenever the Response carries an error.
func ResMessage(r Response) Message {
	if r.Error != nil {
		return Message{Kind: KindErr, Res: &r}
	}
	return Message{Kind: KindRes, Res: &r}
}

// ShutdownRequestMessage builds the reserved Shutdown(false) request.
func ShutdownRequestMessage(id string) Message {
	return ReqMessage(Request{JSONRPC: ProtocolVersion, Method: MethodShutdownRequest, ID: id})
}

// ShutdownAckMessage builds the reserved Shutdown(true) request.
func ShutdownAckMessage(id string) Message {
	return ReqMessage(Request{JSONRPC: ProtocolVersion, Method: MethodShutdownAcknowledged, ID: id})
}

// ExitMessage builds the reserved Exit request.
func ExitMessage(id string) Message {
	return ReqMessage(Request{JSONRPC: ProtocolVersion, Method: MethodExit, ID: id})
}

// Envelope returns the JSON-serializable value (*Request or *Response)
// carried by m, for the codec to encode.
func (m Message) Envelope() interface{} {
	if m.Req != nil {
		return m.Req
	}
	return m.Res
}

// DecodeEnvelope classifies a raw JSON frame as a Request or Response,
// attempting Request first: a syntactically valid Request mandates
// "method", which a Response forbids.
func DecodeEnvelope(raw []byte) (Message, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err == nil && req.Method != "" {
		return ReqMessage(req), nil
	}

	var res Response
	if err := json.Unmarshal(raw, &res); err == nil && (res.Result != nil || res.Error != nil) {
		return ResMessage(res), nil
	}

	return Message{}, rpcerr.ErrorWithDetails(
		rpcerr.Newf("frame is neither a valid Request nor a valid Response"),
		rpcerr.CategoryDecoding, rpcerr.CodeParseError, nil,
	)
}
