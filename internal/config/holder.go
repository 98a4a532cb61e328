package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/domain"
)

const defaultReloadDebounce = 200 * time.Millisecond

// Holder 持有当前生效的配置，并支持从文件重新加载。
//
// 约束：
// - 重新加载失败时保留旧配置（要么整体生效，要么不变）
// - 只有 Settings 会被后续周期读到；其余字段已用于构造客户端，改动需要重启
// - CLI 显式指定的值在重新加载后依然优先
type Holder struct {
	cwd  string
	cli  CLIArgs
	path string
	log  zerolog.Logger

	debounce time.Duration

	mu      sync.RWMutex
	current EffectiveConfig
}

// NewHolder 用已加载的 initial 构造 Holder；cwd 与 cli 用于之后的重新加载。
func NewHolder(cwd string, cli CLIArgs, initial EffectiveConfig, log zerolog.Logger) *Holder {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		cwdAbs = cwd
	}
	path, _ := resolvePath(cwdAbs, cli)
	return &Holder{
		cwd:      cwdAbs,
		cli:      cli,
		path:     path,
		log:      log,
		debounce: defaultReloadDebounce,
		current:  initial,
	}
}

// Path 返回被监听的配置文件路径（文件可以暂不存在）。
func (h *Holder) Path() string { return h.path }

// Get 返回当前配置。
func (h *Holder) Get() EffectiveConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Settings 返回当前的三个开关；每个周期开始时调用。
func (h *Holder) Settings() domain.Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current.Settings
}

// Reload 重新读取配置文件并替换当前配置。
func (h *Holder) Reload() error {
	next, err := LoadEffective(h.cwd, h.cli)
	if err != nil {
		h.log.Error().Err(err).Str("path", h.path).Msg("重新加载配置失败，保留旧配置")
		return err
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	if prev.Settings != next.Settings {
		h.log.Info().
			Bool("privacy", next.Settings.Privacy).
			Bool("buttons", next.Settings.Buttons).
			Bool("title_as_presence", next.Settings.TitleAsPresence).
			Msg("设置已更新")
	}
	if restartNeeded(prev, next) {
		h.log.Warn().Str("path", h.path).Msg("站点、代理、缓存或监听地址的改动需要重启后生效")
	}
	return nil
}

func restartNeeded(a, b EffectiveConfig) bool {
	a.Settings, b.Settings = domain.Settings{}, domain.Settings{}
	a.LogLevel, b.LogLevel = "", ""
	a.Source, b.Source = "", ""
	return a != b
}

// StartWatcher 监听配置文件所在目录，文件变化时（去抖后）调用 Reload。
// 监听在 ctx 结束时停止。
func (h *Holder) StartWatcher(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// 监听目录：原子替换（写临时文件再 rename）后文件本身的监听会失效。
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.log.Info().Str("path", h.path).Msg("监听配置文件")

	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			h.log.Debug().Str("op", event.Op.String()).Msg("配置文件变化")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(h.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				_ = h.Reload()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.log.Error().Err(err).Msg("config watcher error")
		}
	}
}
