package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/chaos-io/bgremover/batch"
	"github.com/chaos-io/bgremover/config"
	"github.com/chaos-io/bgremover/preprocess"
	"github.com/chaos-io/bgremover/rembg"
	"github.com/chaos-io/bgremover/server"
	"github.com/chaos-io/bgremover/util"
)

func main() {
	configFile := flag.String("config", "", "Path to config.json file")
	input := flag.String("in", "", "Input image path or http(s) URL")
	output := flag.String("out", "", "Output file (default: <output>/<name>_nobg.<format>)")
	dir := flag.String("dir", "", "Remove backgrounds for every image in this directory")
	maskOut := flag.String("mask-out", "", "Also write the background mask as a grayscale PNG")
	serve := flag.Bool("serve", false, "Run the HTTP API")

	threshold := flag.Int("threshold", -1, "Sensitivity 1-100 (default: 30)")
	blur := flag.Int("blur", -1, "Edge smoothness 0-10, 0 disables (default: 3)")
	maxSize := flag.Int("max-size", -1, "Downscale so the longest edge is at most this (default: 2048)")
	crop := flag.String("crop", "", "Crop to subject: none|tight|square (default: none)")
	format := flag.String("format", "", "Output format: png|webp (default: png)")
	outputDir := flag.String("output", "", "Output directory (default: ./output)")
	workers := flag.Int("workers", -1, "Batch worker goroutines (default: NumCPU)")
	addr := flag.String("addr", "", "HTTP listen address (default: :8080)")
	logLevel := flag.String("log-level", "", "debug|info|warn|error (default: info)")

	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatal("Failed to load config: ", err)
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		log.Fatal("Failed to read environment: ", err)
	}
	err := cfg.Resolve(config.Flags{
		Threshold:  *threshold,
		BlurRadius: *blur,
		MaxSize:    *maxSize,
		Crop:       *crop,
		Format:     *format,
		OutputDir:  *outputDir,
		Workers:    *workers,
		Addr:       *addr,
		LogLevel:   *logLevel,
	})
	if err != nil {
		log.Fatal("Invalid config: ", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case *serve:
		err = runServer(ctx, cfg)
	case *dir != "":
		err = runBatch(ctx, cfg, *dir)
	case *input != "":
		err = runSingle(ctx, cfg, *input, *output, *maskOut)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("failed", "error", err)
		os.Exit(1)
	}
}

func newPreprocessor(cfg config.Config, opts ...rembg.Option) *preprocess.Preprocessor {
	opts = append([]rembg.Option{rembg.WithOptions(cfg.Options())}, opts...)
	p := preprocess.NewPreprocessor(rembg.NewFloodFillRemBG(opts...))
	p.MaxSize = cfg.MaxSize
	p.Crop = preprocess.ParseCropMode(cfg.Crop)
	return p
}

func runSingle(ctx context.Context, cfg config.Config, input, output, maskOut string) error {
	defer util.Trace("remove background")()

	img, err := util.LoadImage(ctx, input)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	p := newPreprocessor(cfg, rembg.WithProgress(progressPrinter()))
	out, err := p.ImagePreprocess(ctx, img)
	if err != nil {
		return err
	}

	if output == "" {
		output = batch.OutputPath(cfg.OutputDir, inputName(input), cfg.Format)
	}
	if err := util.SaveImage(output, out.Image, cfg.Format); err != nil {
		return fmt.Errorf("save result: %w", err)
	}

	if maskOut != "" {
		if out.Mask == nil {
			slog.Warn("no mask produced, input already had transparency")
		} else if err := util.SaveImage(maskOut, out.Mask.Gray(), util.FormatPNG); err != nil {
			return fmt.Errorf("save mask: %w", err)
		}
	}

	slog.Info("done", "output", output)
	return nil
}

func runBatch(ctx context.Context, cfg config.Config, dir string) error {
	defer util.Trace("batch")()

	files, err := batch.ListImages(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Info("no images to process", "dir", dir)
		return nil
	}

	slog.Info("batch start", "files", len(files), "workers", cfg.Workers, "output", cfg.OutputDir)
	results := batch.Run(ctx, batch.Config{
		OutputDir:    cfg.OutputDir,
		Format:       cfg.Format,
		Preprocessor: newPreprocessor(cfg),
		Workers:      cfg.Workers,
	}, files)

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			slog.Warn("file failed", "input", r.Input, "error", r.Error)
		}
	}
	slog.Info("batch done", "processed", len(results)-failed, "failed", failed)

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runServer(ctx context.Context, cfg config.Config) error {
	s, err := server.New(server.Config{
		Addr:        cfg.Addr,
		OutputDir:   cfg.OutputDir,
		ResultTTL:   cfg.TTL,
		CleanupSpec: cfg.CleanupSpec,
		Defaults:    cfg.Options(),
		MaxSize:     cfg.MaxSize,
		Format:      cfg.Format,

		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxPixels:      cfg.MaxPixels,
	})
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// progressPrinter 只在整数百分比变化时输出
func progressPrinter() rembg.ProgressFunc {
	last := -1
	return func(percent float64) {
		n := int(percent)
		if n == last {
			return
		}
		last = n
		fmt.Fprintf(os.Stderr, "\rProcessing: %3d%%", n)
		if n >= 100 {
			fmt.Fprintln(os.Stderr)
		}
	}
}

func inputName(input string) string {
	if !util.IsURL(input) {
		return input
	}
	u, err := url.Parse(input)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "image"
	}
	return path.Base(u.Path)
}
