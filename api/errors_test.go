package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsecho/api"
)

func TestCodeOfTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want api.ErrorCode
	}{
		{nil, api.ErrCodeOK},
		{api.ErrMalformedHandshake, api.ErrCodeMalformedHandshake},
		{fmt.Errorf("%w: opcode 0x3", api.ErrMalformedFrame), api.ErrCodeMalformedFrame},
		{api.ErrUnsupportedFrame, api.ErrCodeUnsupportedFrame},
		{fmt.Errorf("send: %w", api.ErrTransportFailure), api.ErrCodeTransport},
		{api.ErrTimeout, api.ErrCodeTimeout},
		{fmt.Errorf("%w: %w", api.ErrMalformedHandshake, api.ErrFieldTooLong), api.ErrCodeFieldTooLong},
		{api.ErrPeerClosed, api.ErrCodePeerClosed},
		{api.ErrPeerDisconnected, api.ErrCodePeerClosed},
		{errors.New("boom"), api.ErrCodeInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, api.CodeOf(tc.err), "err=%v", tc.err)
	}
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := fmt.Errorf("short write: %w", api.ErrTransportFailure)
	e := api.WrapError(cause).WithContext("conn", 7)

	require.ErrorIs(t, e, api.ErrTransportFailure)
	assert.Equal(t, api.ErrCodeTransport, e.Code)
	assert.Equal(t, api.ErrCodeTransport, api.CodeOf(e))
	assert.Contains(t, e.Error(), "conn:7")
	assert.Nil(t, api.WrapError(nil))
}

func TestStateStrings(t *testing.T) {
	assert.Equal(t, "connecting", api.StateConnecting.String())
	assert.Equal(t, "open", api.StateOpen.String())
	assert.Equal(t, "closing", api.StateClosing.String())
	assert.Equal(t, "closed", api.StateClosed.String())
	assert.Equal(t, "timeout", api.EventTimeout.String())
	assert.Equal(t, "field_too_long", api.ErrCodeFieldTooLong.String())
}
