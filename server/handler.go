package server

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"

	"github.com/chaos-io/bgremover/preprocess"
	"github.com/chaos-io/bgremover/rembg"
	"github.com/chaos-io/bgremover/util"
	"github.com/gin-gonic/gin"
)

var ErrImageTooLarge = errors.New("image too large")

type removeForm struct {
	Threshold *int   `form:"threshold"`
	Blur      *int   `form:"blur"`
	Format    string `form:"format"`
	Crop      string `form:"crop"`
}

type removeResp struct {
	ID               string `json:"id"`
	URL              string `json:"url"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	BackgroundPixels int    `json:"backgroundPixels"`
}

func (s *Server) handleRemove(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadBytes)

	var form removeForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(bindStatus(err), gin.H{"error": err.Error()})
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(bindStatus(err), gin.H{"error": "image is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer func() {
		_ = f.Close()
	}()

	img, err := s.decodeUpload(f)
	if errors.Is(err, ErrImageTooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := s.cfg.Defaults
	if form.Threshold != nil {
		opts.Threshold = *form.Threshold
	}
	if form.Blur != nil {
		opts.BlurRadius = *form.Blur
	}

	p := preprocess.NewPreprocessor(rembg.NewFloodFillRemBG(rembg.WithOptions(opts.Clamp())))
	p.MaxSize = s.cfg.MaxSize
	p.Crop = preprocess.ParseCropMode(form.Crop)

	out, err := p.ImagePreprocess(c.Request.Context(), img)
	if errors.Is(err, preprocess.ErrNoForeground) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		slog.Error("remove background", "file", fh.Filename, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	format := form.Format
	if format == "" {
		format = s.cfg.Format
	}
	id, err := s.store.Put(out.Image, format)
	if err != nil {
		slog.Error("store result", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	bg := 0
	if out.Mask != nil {
		bg = out.Mask.Count()
	}
	b := out.Image.Bounds()
	c.JSON(http.StatusCreated, removeResp{
		ID:               id,
		URL:              "/api/results/" + id,
		Width:            b.Dx(),
		Height:           b.Dy(),
		BackgroundPixels: bg,
	})
}

// decodeUpload 先读文件头检查像素数，再完整解码
func (s *Server) decodeUpload(f io.ReadSeeker) (image.Image, error) {
	cfg, format, err := util.DecodeImageConfig(f)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("empty %s image", format)
	}
	if cfg.Width > s.cfg.MaxPixels/cfg.Height {
		return nil, fmt.Errorf("%w: %s %dx%d exceeds %d pixels", ErrImageTooLarge, format, cfg.Width, cfg.Height, s.cfg.MaxPixels)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	return util.DecodeImage(f)
}

func bindStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) handleResult(c *gin.Context) {
	path, contentType, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Type", contentType)
	c.File(path)
}
