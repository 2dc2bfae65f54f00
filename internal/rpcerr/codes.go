// Package rpcerr defines the closed JSON-RPC error-code taxonomy and the
// structured error-wrapping helpers used throughout kestrel.
package rpcerr

// file: internal/rpcerr/codes.go

// Category groups errors by the kind of failure, independent of the
// specific JSON-RPC code attached to them.
type Category string

// The six error kinds named by the transport's error-handling design.
const (
	CategoryTransport  Category = "transport"
	CategoryFraming    Category = "framing"
	CategoryDecoding   Category = "decoding"
	CategoryProtocol   Category = "protocol"
	CategoryApplication Category = "application"
	CategoryLocal      Category = "local"
)

// Code is the closed set of JSON-RPC 2.0 error codes this library
// recognizes, plus one library-local extension.
type Code int

const (
	CodeParseError       Code = -32700
	CodeInvalidRequest   Code = -32600
	CodeMethodNotFound   Code = -32601
	CodeInvalidParams    Code = -32602
	CodeInternalError    Code = -32603
	CodeServerErrorStart Code = -32099
	CodeServerErrorEnd   Code = -32000

	// CodeDisconnect is a library-local extension signaling a locally
	// disconnected channel rather than a peer-reported failure.
	CodeDisconnect Code = -29900
)

// MessageUninitialized is the fixed message for the Uninitialized error
// kind: a Request other than the connection's configured initialize type
// arriving before initialization completes. It shares CodeServerErrorStart
// with other init-phase errors but is distinguished by this message and by
// carrying the offending message as the error's data.
const MessageUninitialized = "Uninitialized: peer sent a request before completing initialization"

// UserFacingMessage returns the fixed, non-sensitive message associated
// with a code, for use in a wire Error's message field.
func UserFacingMessage(code Code) string {
	switch code {
	case CodeParseError:
		return "Parse error"
	case CodeInvalidRequest:
		return "Invalid Request"
	case CodeMethodNotFound:
		return "Method not found"
	case CodeInvalidParams:
		return "Invalid params"
	case CodeInternalError:
		return "Internal error"
	case CodeServerErrorStart, CodeServerErrorEnd:
		return "Server protocol error"
	case CodeDisconnect:
		return "Disconnected"
	default:
		return "Unknown error"
	}
}
