package rembg

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"
)

type Remover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// Result 一次去背景的输出
type Result struct {
	Image *image.NRGBA
	Mask  *Mask
}

// FloodFillRemBG 基于边缘种子洪水填充的背景去除
type FloodFillRemBG struct {
	opts     Options
	progress ProgressFunc
}

type Option func(*FloodFillRemBG)

func WithOptions(opts Options) Option {
	return func(f *FloodFillRemBG) { f.opts = opts }
}

func WithThreshold(threshold int) Option {
	return func(f *FloodFillRemBG) { f.opts.Threshold = threshold }
}

func WithBlurRadius(radius int) Option {
	return func(f *FloodFillRemBG) { f.opts.BlurRadius = radius }
}

func WithProgress(fn ProgressFunc) Option {
	return func(f *FloodFillRemBG) { f.progress = fn }
}

func NewFloodFillRemBG(opts ...Option) *FloodFillRemBG {
	f := &FloodFillRemBG{opts: DefaultOptions()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func NewDefaultRemBG() *FloodFillRemBG {
	return NewFloodFillRemBG()
}

// Options 返回生效（已限幅）的参数
func (f *FloodFillRemBG) Options() Options {
	return f.opts.Clamp()
}

func (f *FloodFillRemBG) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	res, err := f.Process(ctx, img)
	if err != nil {
		return nil, err
	}
	return res.Image, nil
}

// Process 建遮罩 -> 清 alpha -> (可选) 柔化边缘，每一步都在上一步完成后开始
func (f *FloodFillRemBG) Process(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()
	opts := f.Options()
	pix := NewPixelBuffer(img)

	mask, err := BuildMask(ctx, pix, opts.Threshold, f.progress)
	if err != nil {
		return nil, fmt.Errorf("build mask: %w", err)
	}

	out, err := ApplyMask(ctx, pix, mask, f.progress)
	if err != nil {
		return nil, fmt.Errorf("apply mask: %w", err)
	}

	if opts.BlurRadius > 0 {
		out = SoftenEdges(out, opts.BlurRadius)
	}
	f.progress.report(100)

	slog.Debug("background removed",
		"width", mask.Width,
		"height", mask.Height,
		"threshold", opts.Threshold,
		"blur", opts.BlurRadius,
		"background", mask.Count(),
		"elapsed", time.Since(start))

	return &Result{Image: out, Mask: mask}, nil
}
