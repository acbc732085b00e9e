package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient()
	require.NotNil(t, client)

	httpClient, ok := client.(*HTTPClient)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, httpClient.client.Timeout)
}

func TestHTTPClient_DoHTTPRequest(t *testing.T) {
	t.Parallel()

	image := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 64)

	tests := []struct {
		name     string
		param    *RequestParam
		handler  http.HandlerFunc
		wantBody []byte
		wantErr  string
	}{
		{
			name:  "GET 下载原始内容",
			param: &RequestParam{Method: http.MethodGet},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Empty(t, r.Header.Get("Content-Type"))
				_, _ = w.Write(image)
			},
			wantBody: image,
		},
		{
			name: "POST 原样发送 body",
			param: &RequestParam{
				Method: http.MethodPost,
				Body:   strings.NewReader("raw bytes"),
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				assert.Equal(t, "raw bytes", string(body))
				assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
				_, _ = w.Write([]byte("ok"))
			},
			wantBody: []byte("ok"),
		},
		{
			name: "自定义 header 覆盖默认值",
			param: &RequestParam{
				Method: http.MethodPut,
				Header: map[string]string{"Content-Type": "image/png", "Accept": "image/*"},
				Body:   bytes.NewReader(image),
			},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
				assert.Equal(t, "image/*", r.Header.Get("Accept"))
				w.WriteHeader(http.StatusNoContent)
			},
			wantBody: []byte{},
		},
		{
			name:  "刚好等于上限",
			param: &RequestParam{Method: http.MethodGet, MaxBodySize: int64(len(image))},
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(image)
			},
			wantBody: image,
		},
		{
			name:  "超过上限",
			param: &RequestParam{Method: http.MethodGet, MaxBodySize: int64(len(image)) - 1},
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(image)
			},
			wantErr: ErrBodyTooLarge.Error(),
		},
		{
			name:  "服务器返回错误状态码",
			param: &RequestParam{Method: http.MethodGet},
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte("server error"))
			},
			wantErr: "HTTP request failed with status 500: server error",
		},
		{
			name:  "请求超时",
			param: &RequestParam{Method: http.MethodGet, Timeout: 50 * time.Millisecond},
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(time.Second):
				}
			},
			wantErr: "context deadline exceeded",
		},
		{
			name:    "请求参数为nil",
			param:   nil,
			wantErr: "request param is nil",
		},
		{
			name:    "无效的URL",
			param:   &RequestParam{Method: http.MethodGet, RequestURI: "://invalid-url"},
			wantErr: "missing protocol scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if tt.param != nil {
				tt.param.Response = &buf
				if tt.handler != nil {
					server := httptest.NewServer(tt.handler)
					defer server.Close()
					tt.param.RequestURI = server.URL
				}
			}

			err := NewHTTPClient().DoHTTPRequest(context.Background(), tt.param)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, string(tt.wantBody), buf.String())
		})
	}
}

func TestHTTPClient_DoHTTPRequest_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := NewHTTPClient().DoHTTPRequest(ctx, &RequestParam{
		Method:     http.MethodGet,
		RequestURI: server.URL,
		Response:   io.Discard,
	})
	assert.ErrorContains(t, err, "context canceled")
}

func TestHTTPClient_DoHTTPRequest_NilResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
	}))
	defer server.Close()

	err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{
		Method:     http.MethodGet,
		RequestURI: server.URL,
	})
	assert.NoError(t, err)
}

func TestHTTPClient_DoHTTPRequest_ErrorStatusCodes(t *testing.T) {
	t.Parallel()

	for _, statusCode := range []int{400, 403, 404, 500, 502, 503} {
		t.Run(strconv.Itoa(statusCode), func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(statusCode)
				_, _ = w.Write([]byte("Error message"))
			}))
			defer server.Close()

			var buf bytes.Buffer
			err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{
				Method:     http.MethodGet,
				RequestURI: server.URL,
				Response:   &buf,
			})
			assert.ErrorContains(t, err, "HTTP request failed with status "+strconv.Itoa(statusCode))
			assert.ErrorContains(t, err, "Error message")
			assert.Zero(t, buf.Len())
		})
	}
}

func TestHTTPClient_DoHTTPRequest_ErrorBodyTruncated(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(bytes.Repeat([]byte("e"), 10*errBodyPreview))
	}))
	defer server.Close()

	err := NewHTTPClient().DoHTTPRequest(context.Background(), &RequestParam{
		Method:     http.MethodGet,
		RequestURI: server.URL,
	})
	require.Error(t, err)
	assert.Less(t, len(err.Error()), 2*errBodyPreview)
}
