package memory

import (
	"testing"

	"github.com/gorgonia/gaussnet/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) *device.Device {
	d, err := device.New(device.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestRoundTrip(t *testing.T) {
	dev := newDevice(t)
	for _, n := range []int{1, 2, 7, 1024} {
		b := New(dev, "rt", n)
		original := make([]float32, n)
		for i := range b.Host {
			b.Host[i] = float32(i)*0.5 - 3
			original[i] = b.Host[i]
		}
		require.NoError(t, b.CopyToDevice())
		for i := range b.Host {
			b.Host[i] = 0
		}
		require.NoError(t, b.CopyToHost())
		assert.Equal(t, original, b.Host, "n=%d", n)
	}
}

func TestHostDeviceDiverge(t *testing.T) {
	dev := newDevice(t)
	b := New(dev, "div", 3)
	b.Host[0] = 42
	require.NoError(t, dev.Synchronize())
	assert.Equal(t, float32(0), b.DeviceData()[0], "host writes must not reach the device without a copy")
}

func TestFill(t *testing.T) {
	dev := newDevice(t)
	b := New(dev, "fill", 5)
	require.NoError(t, b.Fill(2.5))
	require.NoError(t, b.CopyToHost())
	assert.Equal(t, []float32{2.5, 2.5, 2.5, 2.5, 2.5}, b.Host)

	require.NoError(t, b.Fill(0))
	require.NoError(t, b.CopyToHost())
	assert.Equal(t, make([]float32, 5), b.Host)

	empty := New(dev, "empty", 0)
	assert.NoError(t, empty.Fill(1))
}

func TestCopyToMemoryBlock(t *testing.T) {
	dev := newDevice(t)
	src := New(dev, "src", 4)
	dst := New(dev, "dst", 6)
	copy(src.Host, []float32{1, 2, 3, 4})
	require.NoError(t, src.CopyToDevice())

	require.NoError(t, src.CopyToMemoryBlock(dst, 1, 2, 3))
	require.NoError(t, dst.CopyToHost())
	assert.Equal(t, []float32{0, 0, 2, 3, 4, 0}, dst.Host)

	assert.Error(t, src.CopyToMemoryBlock(dst, 2, 0, 3), "source overrun")
	assert.Error(t, src.CopyToMemoryBlock(dst, 0, 5, 2), "destination overrun")
	assert.Error(t, src.CopyToMemoryBlock(nil, 0, 0, 1))

	other := newDevice(t)
	assert.Error(t, src.CopyToMemoryBlock(New(other, "elsewhere", 4), 0, 0, 1))
}

func TestNilBlock(t *testing.T) {
	var b *Block
	assert.Equal(t, 0, b.Count())
	assert.Nil(t, b.DeviceData())
	assert.NoError(t, b.SafeCopyToDevice())
	assert.NoError(t, b.SafeCopyToHost())
}

func TestRows(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	rows, err := Rows(data, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, rows)

	rows[1][0] = 40
	assert.Equal(t, float32(40), data[3], "rows must alias the backing data")

	_, err = Rows(data, 3, 3)
	assert.Error(t, err)
}
