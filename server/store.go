package server

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chaos-io/bgremover/util"
	"github.com/segmentio/ksuid"
)

var ErrResultNotFound = errors.New("result not found")

type entry struct {
	path        string
	contentType string
	created     time.Time
}

// Store 把处理结果落盘在 dir 下，按 ksuid 索引，超过 ttl 的结果视为过期
type Store struct {
	dir string
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]entry
}

func NewStore(dir string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{
		dir:     dir,
		ttl:     ttl,
		entries: make(map[string]entry),
	}, nil
}

// Put 编码并保存图片，返回结果 id
func (s *Store) Put(img image.Image, format string) (string, error) {
	id := ksuid.New().String()
	path := filepath.Join(s.dir, id+util.Ext(format))
	if err := util.SaveImage(path, img, format); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.entries[id] = entry{path: path, contentType: util.ContentType(format), created: time.Now()}
	s.mu.Unlock()
	return id, nil
}

// Get 返回结果文件路径和 Content-Type
func (s *Store) Get(id string) (string, string, error) {
	if _, err := ksuid.Parse(id); err != nil {
		return "", "", ErrResultNotFound
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()
	if !ok || s.expired(e, time.Now()) {
		return "", "", ErrResultNotFound
	}
	return e.path, e.contentType, nil
}

// Purge 删除 now 时刻已过期的结果，返回删除数量
func (s *Store) Purge(now time.Time) int {
	s.mu.Lock()
	var stale []entry
	for id, e := range s.entries {
		if s.expired(e, now) {
			stale = append(stale, e)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	for _, e := range stale {
		if err := os.Remove(e.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("remove expired result", "path", e.path, "error", err)
		}
	}
	return len(stale)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) expired(e entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.created) > s.ttl
}
