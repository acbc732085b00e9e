package util

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

const (
	FormatPNG  = "png"
	FormatWebP = "webp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

type decoder struct {
	name         string
	decode       func(io.Reader) (image.Image, error)
	decodeConfig func(io.Reader) (image.Config, error)
	match        func(head []byte) bool
}

func prefix(magic ...string) func([]byte) bool {
	return func(head []byte) bool {
		for _, m := range magic {
			if bytes.HasPrefix(head, []byte(m)) {
				return true
			}
		}
		return false
	}
}

// 按魔数识别格式；tga 没有魔数，放最后兜底
var decoders = []decoder{
	{name: "png", decode: png.Decode, decodeConfig: png.DecodeConfig, match: prefix("\x89PNG\r\n\x1a\n")},
	{name: "jpeg", decode: jpeg.Decode, decodeConfig: jpeg.DecodeConfig, match: prefix("\xff\xd8")},
	{name: "gif", decode: gif.Decode, decodeConfig: gif.DecodeConfig, match: prefix("GIF87a", "GIF89a")},
	{name: "webp", decode: webp.Decode, decodeConfig: webp.DecodeConfig, match: func(b []byte) bool {
		return len(b) >= 12 && string(b[:4]) == "RIFF" && string(b[8:12]) == "WEBP"
	}},
	{name: "bmp", decode: bmp.Decode, decodeConfig: bmp.DecodeConfig, match: prefix("BM")},
	{name: "tiff", decode: tiff.Decode, decodeConfig: tiff.DecodeConfig, match: prefix("II*\x00", "MM\x00*")},
}

var tgaDecoder = decoder{name: "tga", decode: tga.Decode, decodeConfig: tga.DecodeConfig}

func sniff(r io.Reader) (*bufio.Reader, *decoder, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(12)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, fmt.Errorf("read image header: %w", err)
	}
	if len(head) == 0 {
		return nil, nil, fmt.Errorf("decode image: %w", io.ErrUnexpectedEOF)
	}

	for i := range decoders {
		if decoders[i].match(head) {
			return br, &decoders[i], nil
		}
	}
	return br, &tgaDecoder, nil
}

// DecodeImage 识别并解码 png/jpeg/gif/webp/bmp/tiff/tga
func DecodeImage(r io.Reader) (image.Image, error) {
	br, d, err := sniff(r)
	if err != nil {
		return nil, err
	}

	img, err := d.decode(br)
	if err != nil {
		if d == &tgaDecoder {
			return nil, fmt.Errorf("decode image: %w", ErrUnsupportedFormat)
		}
		return nil, fmt.Errorf("decode %s: %w", d.name, err)
	}
	return img, nil
}

// DecodeImageConfig 只读文件头，返回尺寸和格式名，不解码像素
func DecodeImageConfig(r io.Reader) (image.Config, string, error) {
	br, d, err := sniff(r)
	if err != nil {
		return image.Config{}, "", err
	}

	cfg, err := d.decodeConfig(br)
	if err != nil {
		if d == &tgaDecoder {
			return image.Config{}, "", fmt.Errorf("decode image config: %w", ErrUnsupportedFormat)
		}
		return image.Config{}, "", fmt.Errorf("decode %s config: %w", d.name, err)
	}
	return cfg, d.name, nil
}

// NormalizeFormat 输出格式只支持 png 和 webp，其他一律按 png
func NormalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case FormatWebP:
		return FormatWebP
	default:
		return FormatPNG
	}
}

// EncodeImage 编码为 png 或无损 webp，两者都保留 alpha
func EncodeImage(w io.Writer, img image.Image, format string) error {
	switch NormalizeFormat(format) {
	case FormatWebP:
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("webp encode: %w", err)
		}
	default:
		if err := png.Encode(w, img); err != nil {
			return fmt.Errorf("png encode: %w", err)
		}
	}
	return nil
}

func ContentType(format string) string {
	if NormalizeFormat(format) == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

func Ext(format string) string {
	return "." + NormalizeFormat(format)
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true, ".tga": true,
}

// IsImageFile 根据扩展名判断是否为可解码的图片
func IsImageFile(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}
