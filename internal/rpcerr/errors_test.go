package rpcerr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWithDetailsRoundTrips(t *testing.T) {
	base := New("stream closed mid-frame")
	err := ErrorWithDetails(base, CategoryFraming, CodeInvalidRequest, map[string]interface{}{
		"peer": "127.0.0.1:9000",
	})
	require.Error(t, err)
	assert.Equal(t, CategoryFraming, GetCategory(err))
	assert.Equal(t, CodeInvalidRequest, GetCode(err))
	assert.True(t, Is(err, CategoryFraming))
}

func TestGetCodeDefaultsWhenAbsent(t *testing.T) {
	err := New("plain error, no details attached")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, Category(""), GetCategory(err))
}

func TestErrorWithDetailsNilIsNil(t *testing.T) {
	assert.NoError(t, ErrorWithDetails(nil, CategoryLocal, CodeDisconnect, nil))
}

func TestUserFacingMessageKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Parse error", UserFacingMessage(CodeParseError))
	assert.Equal(t, "Disconnected", UserFacingMessage(CodeDisconnect))
	assert.Equal(t, "Unknown error", UserFacingMessage(Code(1)))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := New("underlying failure")
	wrapped := Wrap(cause, "additional context")
	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "additional context")
	assert.Contains(t, wrapped.Error(), "underlying failure")
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "context"))
}
