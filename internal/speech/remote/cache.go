package remote

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

const DefaultCacheEntries = 256

// CachedService keeps synthesized clips in memory and, when dir is set, on
// disk. Entries are keyed by service, language and text.
type CachedService struct {
	next   Service
	memory *lru.Cache[string, []byte]
	dir    string
	log    logrus.FieldLogger
}

func NewCachedService(next Service, entries int, dir string, log logrus.FieldLogger) (*CachedService, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	memory, err := lru.New[string, []byte](entries)
	if err != nil {
		return nil, fmt.Errorf("create audio cache: %w", err)
	}

	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &CachedService{
		next:   next,
		memory: memory,
		dir:    dir,
		log:    log.WithField("component", "speech-cache"),
	}, nil
}

func (c *CachedService) Name() string {
	return c.next.Name()
}

func (c *CachedService) Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error) {
	key := c.key(req)
	entry := c.log.WithFields(logrus.Fields{"key": key[:8], "language": req.Language})

	if clip, ok := c.memory.Get(key); ok {
		entry.Debug("Using cached audio")
		return clip, nil
	}

	if c.dir != "" {
		if clip, err := os.ReadFile(c.path(key)); err == nil && len(clip) > 0 {
			entry.Debug("Using cached audio from disk")
			c.memory.Add(key, clip)
			return clip, nil
		}
	}

	clip, err := c.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	c.memory.Add(key, clip)
	if c.dir != "" {
		if err := c.store(key, clip); err != nil {
			entry.WithError(err).Warn("Failed to write cached audio")
		}
	}

	return clip, nil
}

// Len reports the number of clips held in memory.
func (c *CachedService) Len() int {
	return c.memory.Len()
}

// Clear drops every cached clip, including the ones on disk.
func (c *CachedService) Clear() error {
	c.memory.Purge()
	if c.dir == "" {
		return nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".audio" || ext == ".tmp") {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases the wrapped service when it holds a connection.
func (c *CachedService) Close() error {
	if closer, ok := c.next.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// store writes clip through a temporary file so a reader never sees a
// partially written clip.
func (c *CachedService) store(key string, clip []byte) error {
	tmp, err := os.CreateTemp(c.dir, key+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(clip); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(key))
}

func (c *CachedService) key(req SynthesisRequest) string {
	return md5Sum(c.next.Name() + "\x00" + req.Language + "\x00" + req.Text)
}

func (c *CachedService) path(key string) string {
	return filepath.Join(c.dir, key+".audio")
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}
