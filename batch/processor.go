package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaos-io/bgremover/preprocess"
	"github.com/chaos-io/bgremover/util"
)

// Config 一次批处理共享的参数
type Config struct {
	OutputDir    string
	Format       string
	Preprocessor *preprocess.Preprocessor
	Workers      int
	// ReportEvery 进度日志间隔，<= 0 时为 2s
	ReportEvery time.Duration
}

// Result 单个文件的处理结果
type Result struct {
	Input   string
	Output  string
	Success bool
	Error   string
}

// ListImages 返回 dir 下（不递归）所有可解码的图片，按文件名排序
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !util.IsImageFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// OutputPath <OutputDir>/<base>_nobg.<ext>
func OutputPath(outputDir, input, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outputDir, base+"_nobg"+util.Ext(format))
}

// Run 用 Workers 个 goroutine 并发处理 files，返回顺序与 files 一致
// 单个文件失败只记录在对应的 Result 里，不影响其他文件
func Run(ctx context.Context, cfg Config, files []string) []Result {
	total := len(files)
	results := make([]Result, total)
	var processed atomic.Int64

	workers := max(1, cfg.Workers)
	every := cfg.ReportEvery
	if every <= 0 {
		every = 2 * time.Second
	}

	start := time.Now()

	// 定时输出进度
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := processed.Load()
				if p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					slog.Info("batch progress", "done", p, "total", total, "rate", fmt.Sprintf("%.1f files/sec", rate))
				}
			}
		}
	}()

	// 工作协程
	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = processFile(ctx, cfg, files[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	close(done)

	return results
}

func processFile(ctx context.Context, cfg Config, input string) Result {
	res := Result{Input: input}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	img, err := util.OpenImage(input)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	out, err := cfg.Preprocessor.ImagePreprocess(ctx, img)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Output = OutputPath(cfg.OutputDir, input, cfg.Format)
	if err := util.SaveImage(res.Output, out.Image, cfg.Format); err != nil {
		res.Error = err.Error()
		return res
	}

	res.Success = true
	return res
}
