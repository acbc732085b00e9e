package rembg

import (
	"context"
	"errors"
	"image"
)

var ErrMaskSize = errors.New("mask size does not match image")

// ApplyMask 返回一张新图，mask 为 1 的像素 alpha 置 0，其余像素原样复制
func ApplyMask(ctx context.Context, pix *image.NRGBA, mask *Mask, progress ProgressFunc) (*image.NRGBA, error) {
	if !mask.sameSize(pix) {
		return nil, ErrMaskSize
	}

	out := NewPixelBuffer(pix)
	w, h := mask.Width, mask.Height
	done := ctx.Done()

	for y := 0; y < h; y++ {
		select {
		case <-done:
			return nil, ctx.Err()
		default:
		}
		progress.report(maskShare + float64(y)/float64(h)*maskShare)

		row := mask.Pix[y*w : y*w+w]
		off := y * out.Stride
		for x, v := range row {
			if v == 1 {
				out.Pix[off+x*4+3] = 0
			}
		}
	}

	return out, nil
}
