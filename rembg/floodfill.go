package rembg

import (
	"context"
	"image"
)

// 8 邻域：先上下左右，再四个对角
var (
	dx = [8]int{1, -1, 0, 0, 1, 1, -1, -1}
	dy = [8]int{0, 0, 1, -1, 1, -1, 1, -1}
)

type fillStats struct {
	enqueued int
	marked   int
}

// BuildMask 从图片四条边的所有像素同时出发做 BFS 洪水填充,
// 相邻像素 RGB 欧氏距离 < threshold*2.55 时归入背景
// 填充不到的像素保持为前景
func BuildMask(ctx context.Context, pix *image.NRGBA, threshold int, progress ProgressFunc) (*Mask, error) {
	mask, _, err := floodFill(ctx, pix, threshold, progress)
	return mask, err
}

func floodFill(ctx context.Context, pix *image.NRGBA, threshold int, progress ProgressFunc) (*Mask, fillStats, error) {
	var st fillStats
	w, h := pix.Rect.Dx(), pix.Rect.Dy()
	mask := newMask(w, h)
	if w == 0 || h == 0 {
		progress.report(maskShare)
		return mask, st, nil
	}

	limit := float64(ClampThreshold(threshold)) * thresholdScale
	limit2 := limit * limit
	total := w * h
	base := pix.PixOffset(pix.Rect.Min.X, pix.Rect.Min.Y)
	stride := pix.Stride

	visited := make([]bool, total)
	queue := make([]int, 0, 2*(w+h))
	enqueue := func(idx int) {
		if visited[idx] {
			return
		}
		visited[idx] = true
		queue = append(queue, idx)
		st.enqueued++
	}

	for x := 0; x < w; x++ {
		enqueue(x)
		enqueue((h-1)*w + x)
	}
	for y := 0; y < h; y++ {
		enqueue(y * w)
		enqueue(y*w + w - 1)
	}

	done := ctx.Done()
	for head := 0; head < len(queue); head++ {
		select {
		case <-done:
			return nil, st, ctx.Err()
		default:
		}

		if (head+1)%w == 0 {
			progress.report(float64(head+1) / float64(total) * maskShare)
		}

		idx := queue[head]
		if mask.Pix[idx] == 1 {
			continue
		}
		mask.Pix[idx] = 1
		st.marked++

		x, y := idx%w, idx/w
		pi := base + y*stride + x*4
		pr, pg, pb := int(pix.Pix[pi]), int(pix.Pix[pi+1]), int(pix.Pix[pi+2])

		for d := 0; d < 8; d++ {
			nx, ny := x+dx[d], y+dy[d]
			if nx < 0 || nx >= w || ny < 0 || ny >= h {
				continue
			}
			ni := ny*w + nx
			if visited[ni] {
				continue
			}

			qi := base + ny*stride + nx*4
			dr := float64(pr - int(pix.Pix[qi]))
			dg := float64(pg - int(pix.Pix[qi+1]))
			db := float64(pb - int(pix.Pix[qi+2]))
			if dr*dr+dg*dg+db*db < limit2 {
				enqueue(ni)
			}
		}
	}

	progress.report(maskShare)
	return mask, st, nil
}
