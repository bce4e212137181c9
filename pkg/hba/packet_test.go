package hba

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeader(t *testing.T) {
	testCases := []struct {
		name   string
		op     Op
		count  int
		coreID byte
		expect byte
	}{
		{"write 1", OpWrite, 1, 4, 0x04},
		{"write 2", OpWrite, 2, 4, 0x14},
		{"read 1", OpRead, 1, 5, 0x85},
		{"read 2", OpRead, 2, 5, 0x95},
		{"read max", OpRead, MaxRegs, 0x0f, 0xff},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hdr := Header(tc.op, tc.count, tc.coreID)
			require.Equal(t, tc.expect, hdr)
			op, count, coreID := DecodeHeader(hdr)
			require.Equal(t, tc.op, op)
			require.Equal(t, tc.count, count)
			require.Equal(t, tc.coreID, coreID)
		})
	}
}

func TestWritePacket(t *testing.T) {
	require.Equal(t, []byte{0x04, 0, 0x80, 0}, WritePacket(4, 0, 0x80))
	require.Equal(t, []byte{0x13, 2, 1, 2, 0}, WritePacket(3, 2, 1, 2))
}

func TestReadPacket(t *testing.T) {
	require.Equal(t, []byte{0x85, 1, 0, 0, 0}, ReadPacket(5, 1, 1))
	require.Equal(t, []byte{0x95, 1, 0, 0, 0, 0}, ReadPacket(5, 1, 2))
}

func TestCheckAck(t *testing.T) {
	require.NoError(t, CheckAck([]byte{ACK}))
	require.Equal(t, ErrNoAck, CheckAck([]byte{0x00}))
	for _, resp := range [][]byte{nil, {ACK, ACK}, {0x04, 0, ACK}} {
		err := CheckAck(resp)
		require.Error(t, err)
		lenErr, ok := err.(*LengthError)
		require.True(t, ok)
		require.Equal(t, 1, lenErr.Want)
		require.Equal(t, len(resp), lenErr.Got)
	}
}

func TestReadData(t *testing.T) {
	vals, err := ReadData([]byte{0x85, 1, 0x33}, 1)
	require.NoError(t, err)
	require.Equal(t, []byte{0x33}, vals)

	vals, err = ReadData([]byte{0x95, 1, 0x05, 0x07}, 2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x05, 0x07}, vals)

	_, err = ReadData([]byte{0x85, 1}, 1)
	require.EqualError(t, err, "expect 3 bytes in response, got 2")
	_, err = ReadData([]byte{0x95, 1, 0x05}, 2)
	require.EqualError(t, err, "expect 4 bytes in response, got 3")
}
