package protocol_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/wsecho/api"
	"github.com/momentics/wsecho/fake"
	"github.com/momentics/wsecho/protocol"
)

func TestParseFrame_TextMasked(t *testing.T) {
	key := [4]byte{0x12, 0x34, 0x56, 0x78}
	raw := fake.MaskedFrame(protocol.OpcodeText, []byte("Hello"), key)

	f, err := protocol.ParseFrame(raw)
	require.NoError(t, err)

	want := &protocol.Frame{
		Fin:        true,
		Opcode:     protocol.OpcodeText,
		Masked:     true,
		MaskKey:    key,
		Type:       protocol.TypeText,
		PayloadLen: 5,
		Payload:    []byte("Hello"),
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("frame mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFrame_PayloadAliasesBuffer(t *testing.T) {
	raw := fake.MaskedText("view")
	f, err := protocol.ParseFrame(raw)
	require.NoError(t, err)

	// Unmasked in place: the buffer now holds the clear text after the header.
	assert.Equal(t, []byte("view"), raw[6:])
	assert.Same(t, &raw[6], &f.Payload[0])
	assert.Equal(t, 4, cap(f.Payload), "payload must not expose bytes beyond the frame")
}

func TestMaskingIsInvolution(t *testing.T) {
	key := [4]byte{0xA1, 0xB2, 0xC3, 0xD4}
	orig := []byte("the quick brown fox jumps over the lazy dog")
	buf := append([]byte(nil), orig...)

	protocol.MaskBytes(buf, key)
	assert.NotEqual(t, orig, buf)
	protocol.MaskBytes(buf, key)
	assert.Equal(t, orig, buf)
}

func TestParseFrame_ReturnsUnmaskedPayloadAcrossLengths(t *testing.T) {
	key := [4]byte{1, 2, 3, 4}
	for _, n := range []int{0, 3, 125, 126, 700, 0xFFFF} {
		p := bytes.Repeat([]byte{0x5A}, n)
		f, err := protocol.ParseFrame(fake.MaskedFrame(protocol.OpcodeText, p, key))
		require.NoError(t, err, "len %d", n)
		assert.True(t, bytes.Equal(p, f.Payload), "len %d", n)
	}
}

func TestParseFrame_Classification(t *testing.T) {
	cases := []struct {
		opcode byte
		want   protocol.FrameType
	}{
		{protocol.OpcodeText, protocol.TypeText},
		{protocol.OpcodeBinary, protocol.TypeBinary},
		{protocol.OpcodeClose, protocol.TypeClosing},
		{protocol.OpcodePing, protocol.TypePing},
		{protocol.OpcodePong, protocol.TypePong},
	}
	for _, tc := range cases {
		f, err := protocol.ParseFrame([]byte{0x80 | tc.opcode, 0x00})
		require.NoError(t, err)
		assert.Equal(t, tc.want, f.Type)
	}
}

func TestParseFrame_ReservedOpcodesAreErrors(t *testing.T) {
	for _, op := range []byte{0x0, 0x3, 0x4, 0x5, 0x6, 0x7, 0xB, 0xC, 0xD, 0xE, 0xF} {
		f, err := protocol.ParseFrame([]byte{0x80 | op, 0x00})
		assert.ErrorIs(t, err, protocol.ErrInvalidOpcode, "opcode 0x%X", op)
		assert.ErrorIs(t, err, api.ErrMalformedFrame)
		assert.Equal(t, protocol.TypeError, f.Type, "opcode 0x%X", op)
	}
}

func TestParseFrame_ReservedBitsAreReported(t *testing.T) {
	f, err := protocol.ParseFrame([]byte{0xF1, 0x00})
	require.NoError(t, err)
	assert.True(t, f.Rsv1)
	assert.True(t, f.Rsv2)
	assert.True(t, f.Rsv3)
}

func TestParseFrame_Incomplete(t *testing.T) {
	full := fake.MaskedFrame(protocol.OpcodeText, bytes.Repeat([]byte("z"), 300), [4]byte{9, 9, 9, 9})
	cases := map[string][]byte{
		"empty":             nil,
		"one byte":          {0x81},
		"short 16-bit len":  {0x81, 0xFE, 0x01},
		"short 64-bit len":  {0x81, 0xFF, 0, 0, 0, 0, 0},
		"short mask key":    {0x81, 0x85, 1, 2},
		"truncated payload": full[:len(full)-1],
		"header only":       full[:8],
	}
	for name, raw := range cases {
		f, err := protocol.ParseFrame(raw)
		assert.ErrorIs(t, err, protocol.ErrIncompleteFrame, name)
		assert.Equal(t, protocol.TypeIncomplete, f.Type, name)
		assert.Nil(t, f.Payload, name)
	}
}

func TestParseFrame_ExtendedLengthDisagreement(t *testing.T) {
	// Declares 300 bytes in the 16-bit form but carries only 10.
	raw := []byte{0x81, 126, 0x01, 0x2C}
	raw = append(raw, bytes.Repeat([]byte("a"), 10)...)

	f, err := protocol.ParseFrame(raw)
	require.ErrorIs(t, err, protocol.ErrIncompleteFrame)
	assert.Equal(t, uint64(300), f.PayloadLen, "declared length is reported for limit checks")
	assert.Nil(t, f.Payload)
}

func TestParseFrame_64BitForm(t *testing.T) {
	raw := []byte{0x81, 127}
	raw = binary.BigEndian.AppendUint64(raw, 3)
	raw = append(raw, "abc"...)

	f, err := protocol.ParseFrame(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), f.Payload)

	huge := []byte{0x81, 127}
	huge = binary.BigEndian.AppendUint64(huge, 1<<40)
	f, err = protocol.ParseFrame(huge)
	require.ErrorIs(t, err, protocol.ErrLengthOverflow)
	assert.Equal(t, protocol.TypeError, f.Type)
}

func TestParseFrame_IgnoresTrailingBytes(t *testing.T) {
	raw := append(fake.MaskedText("one"), fake.MaskedText("two")...)
	f, err := protocol.ParseFrame(raw)
	require.NoError(t, err)
	if diff := cmp.Diff([]byte("one"), f.Payload, cmpopts.EquateEmpty()); diff != "" {
		t.Error(diff)
	}
}
