package util

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	nhttp "github.com/chaos-io/bgremover/util/http"
)

// MaxDownloadSize 下载图片的大小上限
const MaxDownloadSize = 64 << 20

var client = nhttp.NewHTTPClient()

// IsURL 判断输入是否为 http(s) 地址
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// DownloadImage 下载图片
func DownloadImage(ctx context.Context, url string) (image.Image, error) {
	var buf bytes.Buffer
	err := client.DoHTTPRequest(ctx, &nhttp.RequestParam{
		RequestURI:  url,
		Method:      http.MethodGet,
		Header:      map[string]string{"Accept": "image/*"},
		Response:    &buf,
		MaxBodySize: MaxDownloadSize,
	})
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}

	return DecodeImage(&buf)
}

// OpenImage 打开本地图片
func OpenImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	img, err := DecodeImage(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// LoadImage 根据输入是路径还是 URL 选择打开方式
func LoadImage(ctx context.Context, input string) (image.Image, error) {
	if IsURL(input) {
		return DownloadImage(ctx, input)
	}
	return OpenImage(input)
}

// SaveImage 按 format 编码并写入 path，必要时创建目录
func SaveImage(path string, img image.Image, format string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := EncodeImage(f, img, format); err != nil {
		return err
	}
	return f.Close()
}
