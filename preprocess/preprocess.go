package preprocess

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/chaos-io/bgremover/rembg"
)

const DefaultMaxSize = 2048

type CropMode string

const (
	CropNone   CropMode = "none"
	CropTight  CropMode = "tight"
	CropSquare CropMode = "square"
)

// ParseCropMode 未知取值按 CropNone 处理
func ParseCropMode(s string) CropMode {
	switch CropMode(s) {
	case CropTight, CropSquare:
		return CropMode(s)
	default:
		return CropNone
	}
}

var ErrNoForeground = errors.New("no foreground detected")

// maskRemover 能同时给出遮罩的去背景实现，例如 *rembg.FloodFillRemBG
type maskRemover interface {
	Process(ctx context.Context, img image.Image) (*rembg.Result, error)
}

type Preprocessor struct {
	RemBG rembg.Remover

	// MaxSize 最长边上限，<= 0 不缩放
	MaxSize int
	Crop    CropMode
	// KeepAlpha 为 true 时，已经带透明信息的输入不再去背景
	KeepAlpha bool
	// AlphaThreshold 裁剪时 alpha > AlphaThreshold*255 的像素算主体
	AlphaThreshold float64
}

func NewPreprocessor(remover rembg.Remover) *Preprocessor {
	return &Preprocessor{
		RemBG:     remover,
		MaxSize:   DefaultMaxSize,
		Crop:      CropNone,
		KeepAlpha: true,
	}
}

// Output 预处理结果；Mask 对应缩放后、裁剪前的图，跳过去背景或实现不提供遮罩时为 nil
type Output struct {
	Image   *image.NRGBA
	Mask    *rembg.Mask
	Removed bool
}

// ImagePreprocess 把任意输入图片变成
//
//	尺寸 ≤ MaxSize
//	背景被移除（alpha = 0）
//	按需裁剪到主体的包围盒或居中正方形
func (p *Preprocessor) ImagePreprocess(ctx context.Context, input image.Image) (*Output, error) {
	src := rembg.NewPixelBuffer(input)

	// 1. 判断是否已有有效 Alpha
	hasAlpha := hasUsefulAlpha(src)

	// 2. 缩放
	if p.MaxSize > 0 {
		src = resizeWithinMax(src, p.MaxSize)
	}

	out := &Output{Image: src}

	// 3. 背景去除
	if hasAlpha && p.KeepAlpha {
		slog.Debug("input already has alpha, skip background removal")
	} else if err := p.remove(ctx, out); err != nil {
		return nil, err
	}

	// 4. 裁剪
	if p.Crop == CropTight || p.Crop == CropSquare {
		bbox, err := alphaBBox(out.Image, p.AlphaThreshold)
		if err != nil {
			return nil, err
		}
		if p.Crop == CropSquare {
			out.Image = cropSquare(out.Image, bbox)
		} else {
			out.Image = cropRect(out.Image, bbox)
		}
	}

	return out, nil
}

func (p *Preprocessor) remove(ctx context.Context, out *Output) error {
	if p.RemBG == nil {
		return errors.New("background remover is not configured")
	}

	if mr, ok := p.RemBG.(maskRemover); ok {
		res, err := mr.Process(ctx, out.Image)
		if err != nil {
			return fmt.Errorf("remove background: %w", err)
		}
		out.Image, out.Mask, out.Removed = res.Image, res.Mask, true
		return nil
	}

	removed, err := p.RemBG.Remove(ctx, out.Image)
	if err != nil {
		return fmt.Errorf("remove background: %w", err)
	}
	out.Image, out.Removed = rembg.NewPixelBuffer(removed), true
	return nil
}

// alphaBBox 从 alpha 通道计算主体 bounding box
// 把 alpha > threshold * 255 的像素当作“主体”，找所有主体像素的坐标
func alphaBBox(img *image.NRGBA, threshold float64) (image.Rectangle, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	th := uint8(threshold * 255)

	minX, minY := w, h
	maxX, maxY := 0, 0
	found := false

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			a := img.Pix[row+x*4+3]
			if a > th {
				found = true
				minX = min(minX, x)
				minY = min(minY, y)
				maxX = max(maxX, x)
				maxY = max(maxY, y)
			}
		}
	}

	if !found {
		return image.Rectangle{}, ErrNoForeground
	}

	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}
