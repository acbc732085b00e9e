package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	errBodyPreview = 512
)

var ErrBodyTooLarge = errors.New("response body too large")

type HTTPClient struct {
	client *http.Client
}

func NewHTTPClient() IClient {
	return &HTTPClient{
		client: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *HTTPClient) DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error {
	if requestParam == nil {
		return errors.New("request param is nil")
	}

	if requestParam.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestParam.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, requestParam.Method, requestParam.RequestURI, requestParam.Body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if requestParam.Body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	for k, v := range requestParam.Header {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyPreview))
		return fmt.Errorf("HTTP request failed with status %d: %s", resp.StatusCode, string(msg))
	}

	return copyBody(requestParam.Response, resp.Body, requestParam.MaxBodySize)
}

// copyBody 把响应体写入 dst，超过 limit 时返回 ErrBodyTooLarge
func copyBody(dst io.Writer, body io.Reader, limit int64) error {
	if dst == nil {
		dst = io.Discard
	}
	if limit <= 0 {
		if _, err := io.Copy(dst, body); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		return nil
	}

	// 多读一个字节用来判断是否超限
	n, err := io.Copy(dst, io.LimitReader(body, limit+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if n > limit {
		return fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return nil
}
