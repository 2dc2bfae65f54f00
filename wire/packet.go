package wire

// file: wire/packet.go

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"math"

	"github.com/kestrelrpc/kestrel/internal/rpcerr"
)

// headerSize is the width in bytes of the little-endian length prefix.
const headerSize = 4

// MaxPayloadSize is the largest payload a packet header can describe.
const MaxPayloadSize = math.MaxUint32

// ErrEmpty is returned by DecodeFrom when the source had nothing ready
// to deliver a full header (a non-fatal would-block on a non-blocking
// stream). Callers should retry.
var ErrEmpty = errors.New("wire: no frame available")

// ErrDisconnected is returned by DecodeFrom when end-of-stream was
// observed cleanly at a packet boundary (zero bytes read while
// expecting a fresh header).
var ErrDisconnected = errors.New("wire: stream disconnected at frame boundary")

// EncodeTo serializes v to JSON, prepends a 4-byte little-endian length
// header, writes the full buffer, and flushes w if it is a *bufio.Writer.
func EncodeTo(w io.Writer, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to marshal envelope"),
			rpcerr.CategoryDecoding, rpcerr.CodeInternalError, nil,
		)
	}
	if len(payload) > MaxPayloadSize {
		return rpcerr.ErrorWithDetails(
			rpcerr.Newf("payload of %d bytes exceeds the 32-bit length-header bound", len(payload)),
			rpcerr.CategoryFraming, rpcerr.CodeInvalidRequest, nil,
		)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))

	if _, err := w.Write(header[:]); err != nil {
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to write frame header"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	if _, err := w.Write(payload); err != nil {
		return rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to write frame payload"),
			rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
		)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return rpcerr.ErrorWithDetails(
				rpcerr.Wrap(err, "failed to flush frame"),
				rpcerr.CategoryTransport, rpcerr.CodeInternalError, nil,
			)
		}
	}
	return nil
}

// DecodeFrom reads exactly one frame: a 4-byte length header followed
// by that many payload bytes, and decodes the payload as JSON into a
// Message via DecodeEnvelope. It distinguishes ErrEmpty (a non-blocking
// read produced nothing before a header could be assembled),
// ErrDisconnected (clean EOF exactly at a frame boundary), and fatal
// decode errors (malformed JSON, a truncated payload, or any other
// read error).
func DecodeFrom(r *bufio.Reader) (Message, error) {
	header := make([]byte, headerSize)
	n, err := io.ReadFull(r, header)
	switch {
	case err == nil:
		// header fully read, fall through.
	case err == io.EOF && n == 0:
		return Message{}, ErrDisconnected
	case isTimeout(err):
		return Message{}, ErrEmpty
	default:
		return Message{}, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "failed to read frame header"),
			rpcerr.CategoryFraming, rpcerr.CodeParseError, nil,
		)
	}

	size := binary.LittleEndian.Uint32(header)
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Message{}, rpcerr.ErrorWithDetails(
			rpcerr.Wrap(err, "payload truncated mid-frame"),
			rpcerr.CategoryFraming, rpcerr.CodeParseError,
			map[string]interface{}{"expected_size": size},
		)
	}

	msg, err := DecodeEnvelope(payload)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
