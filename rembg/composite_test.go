package rembg

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMask_AlphaZero(t *testing.T) {
	t.Parallel()

	img := noisy(12, 9, 11, 150)
	mask, err := BuildMask(context.Background(), img, 15, nil)
	require.NoError(t, err)
	before := append([]uint8(nil), img.Pix...)

	out, err := ApplyMask(context.Background(), img, mask, nil)
	require.NoError(t, err)
	assert.Equal(t, before, img.Pix, "input must not be modified")

	for y := 0; y < 9; y++ {
		for x := 0; x < 12; x++ {
			i := y*out.Stride + x*4
			if mask.At(x, y) {
				assert.Zero(t, out.Pix[i+3], "pixel (%d,%d)", x, y)
				assert.Equal(t, img.Pix[i:i+3], out.Pix[i:i+3])
				continue
			}
			assert.Equal(t, img.Pix[i:i+4], out.Pix[i:i+4], "pixel (%d,%d)", x, y)
		}
	}
}

func TestApplyMask_SizeMismatch(t *testing.T) {
	t.Parallel()

	_, err := ApplyMask(context.Background(), solid(4, 4, gray), newMask(3, 4), nil)
	assert.ErrorIs(t, err, ErrMaskSize)
}

func TestApplyMask_NilMask(t *testing.T) {
	t.Parallel()

	_, err := ApplyMask(context.Background(), solid(2, 2, gray), nil, nil)
	assert.ErrorIs(t, err, ErrMaskSize)
}

func TestApplyMask_Progress(t *testing.T) {
	t.Parallel()

	img := solid(5, 10, gray)
	var log progressLog
	_, err := ApplyMask(context.Background(), img, newMask(5, 10), log.fn())
	require.NoError(t, err)

	require.Len(t, log, 10)
	assert.True(t, log.nonDecreasing())
	assert.Equal(t, maskShare, log[0])
	assert.Less(t, log[len(log)-1], 100.0)
}

func TestApplyMask_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ApplyMask(ctx, solid(4, 4, gray), newMask(4, 4), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
