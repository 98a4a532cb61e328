package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/app/run"
	"github.com/John-Robertt/alpresence/internal/log"
)

// watchDebounce 合并编辑器一次保存产生的多次事件。
const watchDebounce = 200 * time.Millisecond

func watchCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printWatchUsage(os.Stdout)
			return 0
		}
	}
	a, err := parseArgs(args)
	if err == nil && len(a.Positional) != 1 {
		err = errors.New("需要且只需要一个快照文件")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printWatchUsage(os.Stderr)
		return 2
	}
	path, err := filepath.Abs(a.Positional[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n", err)
		return 2
	}

	holder, ok := setup(a)
	if !ok {
		return 1
	}
	ctx, stop := signalContext()
	defer stop()
	watchConfig(ctx, holder)

	var progress io.Writer
	if isTTY(os.Stderr) {
		progress = os.Stderr
	}
	em := newEmitter(os.Stdout, isTTY(os.Stdout), progress)
	runner, err := run.New(holder.Get(), holder.Settings, em, log.Base())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	w := &snapshotWatcher{
		path:     path,
		debounce: watchDebounce,
		trigger: func(ctx context.Context, p run.Page) {
			_, _ = runner.Trigger(ctx, p)
		},
		log: componentLogger("watch"),
	}
	err = w.run(ctx)
	fmt.Fprintln(os.Stderr, em.summary())
	if err != nil {
		fmt.Fprintf(os.Stderr, "监听失败：%v\n", err)
		return 1
	}
	return 0
}

// snapshotWatcher 在快照文件变化时触发周期。
//
// 监听的是文件所在目录而不是文件本身：很多编辑器/宿主用“写临时文件再 rename”保存，
// 直接监听文件会在第一次替换后丢失。
//
// 周期由单个 worker 按文件变化的顺序执行。新的变化先取消仍在进行的周期，
// 并替换掉尚未开始的旧快照。run 返回前等待 worker 退出。
type snapshotWatcher struct {
	path     string
	debounce time.Duration
	trigger  func(ctx context.Context, p run.Page)
	log      zerolog.Logger
}

type watchJob struct {
	ctx  context.Context
	page run.Page
}

func (s *snapshotWatcher) run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}
	s.log.Info().Str("path", s.path).Msg("开始监听快照文件")

	jobs := make(chan watchJob, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := range jobs {
			s.trigger(j.ctx, j.page)
		}
	}()

	fire := make(chan struct{}, 1)
	var (
		debounceTimer *time.Timer
		cancelCurrent context.CancelFunc
	)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		if cancelCurrent != nil {
			cancelCurrent()
		}
		close(jobs)
		wg.Wait()
	}()

	// 启动时文件已存在则先跑一次。
	if _, err := os.Stat(s.path); err == nil {
		fire <- struct{}{}
	}

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("停止监听")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			s.log.Debug().Str("op", event.Op.String()).Msg("快照文件变化")
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(s.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			page, err := readPage(s.path)
			if err != nil {
				// 宿主可能正写到一半：等下一次变化。
				s.log.Warn().Err(err).Str("path", s.path).Msg("读取快照失败")
				continue
			}
			if cancelCurrent != nil {
				cancelCurrent()
			}
			jctx, cancel := context.WithCancel(ctx)
			cancelCurrent = cancel
			// 只有本循环发送，worker 只接收：清空后发送不会阻塞。
			select {
			case <-jobs:
			default:
			}
			jobs <- watchJob{ctx: jctx, page: page}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Error().Err(err).Msg("watcher error")
		}
	}
}

// readPage 读取并校验快照信封。
func readPage(path string) (run.Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return run.Page{}, err
	}
	var p run.Page
	if err := json.Unmarshal(b, &p); err != nil {
		return run.Page{}, fmt.Errorf("快照不是合法的 JSON：%w", err)
	}
	if p.URL == "" {
		return run.Page{}, errors.New("快照缺少 url")
	}
	return p, nil
}

func printWatchUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  alpresence watch <snapshot.json> [flags]

快照文件格式：
  {"url": "...", "html": "...", "video": {...}, "iframe": {...}}
  video/iframe 可省略，字段为 currentTime/duration/paused。

每次文件变化执行一个周期，每个提交的周期向 stdout 输出一条记录；
新的变化会取消仍在进行的旧周期。

参数：
`+commonFlags)
}
