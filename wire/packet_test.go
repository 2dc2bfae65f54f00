package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	req, err := NewRequest("7", "ns_m", map[string]int{"k": 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeTo(&buf, &req))

	decoded, err := DecodeFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	require.Equal(t, KindReq, decoded.Kind)
	assert.Equal(t, "7", decoded.Req.ID)
	assert.Equal(t, "ns_m", decoded.Req.Method)
}

func TestEncodeWritesExactLengthPrefixedBytes(t *testing.T) {
	req, err := NewRequest("7", "ns_m", map[string]int{"k": 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeTo(&buf, &req))

	header := buf.Bytes()[:4]
	size := binary.LittleEndian.Uint32(header)
	assert.EqualValues(t, buf.Len()-4, size, "header must describe exactly the remaining payload length")
}

func TestDecodeFromReturnsDisconnectedOnCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	_, err := DecodeFrom(bufio.NewReader(&buf))
	require.ErrorIs(t, err, ErrDisconnected)
}

func TestDecodeFromFailsOnTruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], 100)
	buf.Write(header[:])
	buf.WriteString(`{"incomplete`)

	_, err := DecodeFrom(bufio.NewReader(&buf))
	require.Error(t, err)
}

func TestDecodeFromFailsOnMalformedJSON(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("not json at all")
	var header [4]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))
	buf.Write(header[:])
	buf.Write(payload)

	_, err := DecodeFrom(bufio.NewReader(&buf))
	require.Error(t, err)
}

func TestResponseDecodesAsErrKindWhenErrorPresent(t *testing.T) {
	resp := NewErrorResponse("3", -32099, "uninitialized", map[string]string{"method": "foo"})
	var buf bytes.Buffer
	require.NoError(t, EncodeTo(&buf, &resp))

	decoded, err := DecodeFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, KindErr, decoded.Kind)
	assert.Equal(t, -32099, decoded.Res.Error.Code)
}

func TestResponseDecodesAsResKindWhenResultPresent(t *testing.T) {
	resp, err := NewResultResponse("3", map[string]string{"ok": "true"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, EncodeTo(&buf, &resp))

	decoded, err := DecodeFrom(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, KindRes, decoded.Kind)
}

func TestMultipleFramesDecodeInOrder(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		req, err := NewRequest(string(rune('a'+i)), "m", nil)
		require.NoError(t, err)
		require.NoError(t, EncodeTo(&buf, &req))
	}

	r := bufio.NewReader(&buf)
	for i := 0; i < 3; i++ {
		msg, err := DecodeFrom(r)
		require.NoError(t, err)
		assert.Equal(t, string(rune('a'+i)), msg.ID())
	}
	_, err := DecodeFrom(r)
	require.ErrorIs(t, err, ErrDisconnected)
}
