package rembg

import (
	"image"
	"image/draw"
)

// NewPixelBuffer 把任意图片复制成从 (0,0) 开始、Stride = 4*W 的 NRGBA 缓冲区
// 总是复制，调用方的图片不会被后续阶段修改
func NewPixelBuffer(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		w := b.Dx() * 4
		for y := 0; y < b.Dy(); y++ {
			si := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+w], src.Pix[si:si+w])
		}
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
