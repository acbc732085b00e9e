package rembg

import "image"

// Mask 每个像素一个字节，1 = 背景，0 = 前景
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

func newMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Pix: make([]uint8, w*h)}
}

// At 报告 (x, y) 是否为背景，越界返回 false
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] == 1
}

// Count 返回背景像素数
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		n += int(v)
	}
	return n
}

// Contains 报告 other 的背景区域是否是 m 的子集
func (m *Mask) Contains(other *Mask) bool {
	if m.Width != other.Width || m.Height != other.Height {
		return false
	}
	for i, v := range other.Pix {
		if v == 1 && m.Pix[i] != 1 {
			return false
		}
	}
	return true
}

// Gray 导出为遮罩图：前景白，背景黑
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Pix {
		if v == 0 {
			g.Pix[i] = 255
		}
	}
	return g
}

func (m *Mask) sameSize(img *image.NRGBA) bool {
	if m == nil || img == nil {
		return false
	}
	return m.Width == img.Rect.Dx() && m.Height == img.Rect.Dy() && len(m.Pix) == m.Width*m.Height
}
