package run

import (
	"time"

	"github.com/John-Robertt/alpresence/internal/domain"
)

// Observer 把“周期开始/结束”事件从 Runner 中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的记录流）。
// - OnCycleDone 在 Runner 的锁内按周期顺序调用：实现必须很快，且不能回调 Runner。
// - OnCycleStart 可能来自多个 goroutine，实现必须并发安全。
type Observer interface {
	// OnCycleStart 在周期开始组装前调用。
	OnCycleStart(seq uint64, pageURL string)
	// OnCycleDone 在周期提交后调用。err 非空时 rec 是该路由的默认记录。
	OnCycleDone(seq uint64, rec domain.Record, err error, dur time.Duration)
	// OnCycleStale 在周期被更新的触发取代而丢弃时调用。
	OnCycleStale(seq uint64)
}
