package rembg

const (
	MinThreshold     = 1
	MaxThreshold     = 100
	DefaultThreshold = 30

	MinBlurRadius     = 0
	MaxBlurRadius     = 10
	DefaultBlurRadius = 3

	// thresholdScale 把 1-100 的灵敏度映射到 0-255 的通道距离
	thresholdScale = 2.55
)

// Options 背景去除参数
type Options struct {
	Threshold  int `json:"threshold"`
	BlurRadius int `json:"blur_radius"`
}

func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, BlurRadius: DefaultBlurRadius}
}

// Clamp 把参数限制在合法范围内，越界不报错
func (o Options) Clamp() Options {
	return Options{
		Threshold:  ClampThreshold(o.Threshold),
		BlurRadius: ClampBlurRadius(o.BlurRadius),
	}
}

func ClampThreshold(t int) int {
	return min(max(t, MinThreshold), MaxThreshold)
}

func ClampBlurRadius(r int) int {
	return min(max(r, MinBlurRadius), MaxBlurRadius)
}
