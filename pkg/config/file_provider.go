package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileProvider watches a configuration file and republishes it on change.
// Subscribers receive the parsed and validated Config; a file edit that fails
// validation is logged and dropped, the last good configuration stays active.
type FileProvider struct {
	path        string
	logger      *slog.Logger
	mu          sync.RWMutex
	current     *Config
	subscribers []chan *Config
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
}

// NewFileProvider creates a provider watching the specified file. The file
// must load cleanly at startup.
func NewFileProvider(path string, logger *slog.Logger) (*FileProvider, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := Load(absPath)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &FileProvider{
		path:    absPath,
		logger:  logger,
		current: cfg,
		watcher: watcher,
		cancel:  cancel,
	}

	// Watch the directory, not the file: editors replace files on save and
	// a watch on the old inode goes stale.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		_ = watcher.Close()
		cancel()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	go p.watchLoop(ctx)

	return p, nil
}

// Current returns the most recently loaded valid configuration.
func (p *FileProvider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe returns a channel receiving configuration updates. The current
// configuration is delivered immediately.
func (p *FileProvider) Subscribe() <-chan *Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan *Config, 1)
	p.subscribers = append(p.subscribers, ch)
	ch <- p.current
	return ch
}

// Close stops the watcher and cleans up resources.
func (p *FileProvider) Close() error {
	p.cancel()
	return p.watcher.Close()
}

func (p *FileProvider) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Chmod) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, p.reload)
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (p *FileProvider) reload() {
	cfg, err := Load(p.path)
	if err != nil {
		p.logger.Warn("config reload rejected", "path", p.path, "error", err)
		return
	}

	p.mu.Lock()
	p.current = cfg
	subscribers := make([]chan *Config, len(p.subscribers))
	copy(subscribers, p.subscribers)
	p.mu.Unlock()

	p.logger.Info("configuration reloaded", "path", p.path)

	for _, ch := range subscribers {
		select {
		case ch <- cfg:
		default:
			// Skip if channel is full (slow consumer)
		}
	}
}
