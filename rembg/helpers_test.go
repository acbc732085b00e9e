package rembg

import (
	"image"
	"image/color"
	"math/rand"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

// framed 边框一圈 ring，内部 (inset 之内) 为 center
func framed(w, h, inset int, ring, center color.NRGBA) *image.NRGBA {
	img := solid(w, h, ring)
	for y := inset; y < h-inset; y++ {
		for x := inset; x < w-inset; x++ {
			img.SetNRGBA(x, y, center)
		}
	}
	return img
}

// noisy 生成颜色在 base 附近抖动的图，相邻像素距离大小不一
func noisy(w, h int, seed int64, spread int) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(100 + r.Intn(spread))
		img.Pix[i+1] = uint8(100 + r.Intn(spread))
		img.Pix[i+2] = uint8(100 + r.Intn(spread))
		img.Pix[i+3] = 255
	}
	return img
}

func onBorder(x, y, w, h int) bool {
	return x == 0 || y == 0 || x == w-1 || y == h-1
}

type progressLog []float64

func (p *progressLog) fn() ProgressFunc {
	return func(percent float64) { *p = append(*p, percent) }
}

func (p progressLog) nonDecreasing() bool {
	for i := 1; i < len(p); i++ {
		if p[i] < p[i-1] {
			return false
		}
	}
	return true
}

var (
	black = color.NRGBA{A: 255}
	gray  = color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)
