package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/John-Robertt/alpresence/internal/app/run"
	"github.com/John-Robertt/alpresence/internal/domain"
)

var _ run.Observer = (*emitter)(nil)

// emitter 把每个提交的周期输出为一条记录（watch 使用）。
//
// - 记录写到 out（stdout）：非 TTY 时每行一个 JSON，TTY 时是摘要
// - 交互终端下，周期开始/过期的过程信息写到 progress（stderr），不污染 stdout
type emitter struct {
	out      io.Writer
	tty      bool
	progress io.Writer

	mu      sync.Mutex
	emitted int
	stale   int
	failed  int
}

func newEmitter(out io.Writer, tty bool, progress io.Writer) *emitter {
	return &emitter{out: out, tty: tty, progress: progress}
}

func (e *emitter) OnCycleStart(seq uint64, pageURL string) {
	if e.progress == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintf(e.progress, "[%s] #%d %s\n", time.Now().Format("15:04:05"), seq, truncate(pageURL, 120))
}

func (e *emitter) OnCycleDone(seq uint64, rec domain.Record, err error, dur time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.emitted++
	if err != nil {
		e.failed++
	}
	if e.progress != nil {
		note := "ok"
		if err != nil {
			note = "默认记录：" + truncate(err.Error(), 160)
		}
		fmt.Fprintf(e.progress, "  #%d %s (%s)\n", seq, note, dur.Round(time.Millisecond))
	}
	emitRecord(e.out, rec, e.tty)
}

func (e *emitter) OnCycleStale(seq uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale++
	if e.progress != nil {
		fmt.Fprintf(e.progress, "  #%d 已被新的快照取代\n", seq)
	}
}

// summary 是退出时打印到 stderr 的一行统计。
func (e *emitter) summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("完成：emitted=%d failed=%d stale=%d", e.emitted, e.failed, e.stale)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
