package rembg

import (
	"image"

	"github.com/disintegration/imaging"
)

// SoftenEdges 柔化抠图边缘
// 对抠好的图做按 alpha 加权的高斯模糊（sigma = radius），只取模糊后的 alpha：
//   - 原本透明的像素取模糊 alpha 和颜色，在主体外侧形成一圈渐变
//   - 主体像素保留原色，alpha 取原值与模糊值中较小者，靠近背景的一侧随之变淡
//
// 与背景相距超过模糊半径的主体像素保持原样；radius <= 0 时返回原图的拷贝
func SoftenEdges(pix *image.NRGBA, radius int) *image.NRGBA {
	sharp := NewPixelBuffer(pix)
	radius = ClampBlurRadius(radius)
	if radius == 0 || sharp.Rect.Empty() {
		return sharp
	}

	out := imaging.Blur(sharp, float64(radius))
	for i := 0; i < len(sharp.Pix); i += 4 {
		a := sharp.Pix[i+3]
		if a == 0 {
			continue
		}
		copy(out.Pix[i:i+3], sharp.Pix[i:i+3])
		out.Pix[i+3] = min(a, out.Pix[i+3])
	}
	return out
}
