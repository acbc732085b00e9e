package rembg

// ProgressFunc 接收 0-100 的进度，在处理循环内同步调用，允许为 nil
// 建图阶段占 0-50，合成阶段占 50-100
type ProgressFunc func(percent float64)

const maskShare = 50.0

func (f ProgressFunc) report(percent float64) {
	if f != nil {
		f(percent)
	}
}
