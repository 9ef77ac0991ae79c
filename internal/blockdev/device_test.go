package blockdev_test

import (
	"testing"

	"github.com/RoManTic127/filesystem-of-linux/internal/blockdev"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

func newTestDevice(t *testing.T, totalBlocks, blockSize uint32) *blockdev.Device {
	t.Helper()
	buf := make([]byte, uint64(totalBlocks)*uint64(blockSize))
	stream := bytesextra.NewReadWriteSeeker(buf)
	return blockdev.New(stream, totalBlocks, blockSize)
}

func TestReadWriteRoundTrip(t *testing.T) {
	device := newTestDevice(t, 8, 1024)

	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 251)
	}

	require.NoError(t, device.WriteBlock(3, data))

	out := make([]byte, 1024)
	require.NoError(t, device.ReadBlock(3, out))
	require.Equal(t, data, out)
}

func TestReadBlockOutOfRange(t *testing.T) {
	device := newTestDevice(t, 4, 1024)
	buf := make([]byte, 1024)
	require.Error(t, device.ReadBlock(4, buf))
}

func TestWriteBlockWrongSize(t *testing.T) {
	device := newTestDevice(t, 4, 1024)
	require.Error(t, device.WriteBlock(0, make([]byte, 512)))
}

func TestZeroBlock(t *testing.T) {
	device := newTestDevice(t, 4, 1024)
	require.NoError(t, device.WriteBlock(1, bytesFilledWith(1024, 0xAB)))
	require.NoError(t, device.ZeroBlock(1))

	out := make([]byte, 1024)
	require.NoError(t, device.ReadBlock(1, out))
	require.Equal(t, make([]byte, 1024), out)
}

func bytesFilledWith(n int, b byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = b
	}
	return buf
}
