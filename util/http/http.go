package http

import (
	"context"
	"io"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 一次请求的参数
//
// Body: nil 不发送，否则原样发送
// Response: nil 丢弃响应体，否则写入原始内容
// MaxBodySize: 响应体上限，<= 0 不限制
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       io.Reader
	Response   io.Writer

	Timeout     time.Duration
	MaxBodySize int64
}
