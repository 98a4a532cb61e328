// Package run 驱动更新周期：串行提交、取消过期周期、持有 Session。
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/config"
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/infra/cache"
	"github.com/John-Robertt/alpresence/internal/infra/httpx"
	"github.com/John-Robertt/alpresence/internal/metadata"
	"github.com/John-Robertt/alpresence/internal/presence"
)

// ErrSuperseded 表示周期在完成前被更新的触发取代，结果已丢弃。
var ErrSuperseded = errors.New("周期已被新的触发取代")

// Runner 串行化更新周期。
//
// 规则：
// - 每次 Trigger 都会取消上一个仍在进行的周期
// - 只有最新的周期能提交 Session、更新 latest、通知 Observer
// - 组装（可能等待网络）在锁外进行；提交在锁内进行
// - 设置在每个周期开始时重新读取
type Runner struct {
	asm      *presence.Assembler
	settings func() domain.Settings
	breaker  func() string
	obs      Observer
	log      zerolog.Logger

	mu        sync.Mutex
	sess      presence.Session
	latest    *domain.Record
	seq       uint64
	cancel    context.CancelFunc
	iframeGen uint64
}

// NewRunner 构造 Runner。settings 为 nil 时使用默认设置；obs 可以为 nil。
func NewRunner(asm *presence.Assembler, settings func() domain.Settings, obs Observer, log zerolog.Logger) *Runner {
	if settings == nil {
		settings = domain.DefaultSettings
	}
	return &Runner{asm: asm, settings: settings, obs: obs, log: log}
}

// New 按最终配置组装完整的依赖链：HTTP client -> API Client -> Cached -> Assembler -> Runner。
// settings 为 nil 时固定使用 eff.Settings（一次性命令）；长驻命令传入 config.Holder.Settings。
func New(eff config.EffectiveConfig, settings func() domain.Settings, obs Observer, log zerolog.Logger) (*Runner, error) {
	hc, err := httpx.NewAPIClient(httpx.Options{
		ProxyURL: eff.ProxyURL,
		SiteURL:  eff.SiteURL,
		SiteID:   eff.SiteIDHeader(),
	})
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Path: eff.Source, Err: fmt.Errorf("proxy.url 无效：%w", err)}
	}
	client := metadata.NewClient(eff.APIBaseURL, hc, metadata.ClientOptions{RatePerSecond: eff.RateLimit})
	fetcher := metadata.NewCached(client, cache.New(eff.CacheDir, eff.CacheReadOnly), log.With().Str("component", "metadata").Logger())
	asm := presence.New(fetcher, log.With().Str("component", "presence").Logger())
	if settings == nil {
		fixed := eff.Settings
		settings = func() domain.Settings { return fixed }
	}
	r := NewRunner(asm, settings, obs, log.With().Str("component", "runner").Logger())
	r.breaker = client.BreakerState
	return r, nil
}

// BreakerState 返回元数据 API 熔断器的状态；没有真实客户端时为空串。
func (r *Runner) BreakerState() string {
	if r.breaker == nil {
		return ""
	}
	return r.breaker()
}

// Trigger 执行一个周期并返回提交的记录。
//
// 返回 ErrSuperseded 表示该周期被取代（未提交、未通知）。
// 其余 error 来自组装：此时返回的记录是该路由的默认记录，且同样已提交并通知。
func (r *Runner) Trigger(ctx context.Context, page Page) (domain.Record, error) {
	snap, err := page.Snapshot()
	if err != nil {
		return domain.Record{}, fmt.Errorf("解析页面快照失败：%w", err)
	}
	settings := r.settings()
	if page.Settings != nil {
		settings = *page.Settings
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.seq++
	seq := r.seq
	if page.IFrame != nil {
		r.sess = r.sess.WithIFrame(*page.IFrame)
		r.iframeGen++
	}
	sess := r.sess
	gen := r.iframeGen
	r.mu.Unlock()
	defer cancel()

	if r.obs != nil {
		r.obs.OnCycleStart(seq, page.URL)
	}
	started := time.Now()
	rec, out, buildErr := r.asm.Build(cctx, presence.Input{URL: page.URL, DOM: snap, Settings: settings}, sess)
	dur := time.Since(started)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq || cctx.Err() != nil {
		r.log.Debug().Uint64("seq", seq).Str("url", page.URL).Msg("丢弃过期周期")
		if r.obs != nil {
			r.obs.OnCycleStale(seq)
		}
		return domain.Record{}, ErrSuperseded
	}
	r.cancel = nil

	if buildErr != nil {
		r.log.Warn().Err(buildErr).Uint64("seq", seq).Str("url", page.URL).Str("stage", metadata.Stage(buildErr)).
			Str("breaker", r.BreakerState()).Msg("组装失败，输出默认记录")
	} else {
		// 组装期间若有新的 iframe 推送，保留它，而不是用本周期的消费结果覆盖。
		if r.iframeGen != gen {
			out.IFrame = r.sess.IFrame
		}
		r.sess = out
	}
	r.latest = &rec
	r.log.Debug().Uint64("seq", seq).Str("url", page.URL).Dur("dur", dur).Msg("周期完成")

	if r.obs != nil {
		r.obs.OnCycleDone(seq, rec, buildErr, dur)
	}
	return rec, buildErr
}

// PushIFrame 记录一次 iframe 播放器推送，由下一个观看周期消费。
func (r *Runner) PushIFrame(p domain.PlaybackSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sess = r.sess.WithIFrame(p)
	r.iframeGen++
}

// Latest 返回最近一次提交的记录。
func (r *Runner) Latest() (domain.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latest == nil {
		return domain.Record{}, false
	}
	return *r.latest, true
}

// Session 返回当前会话的副本（用于诊断与测试）。
func (r *Runner) Session() presence.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.sess
	if s.IFrame != nil {
		p := *s.IFrame
		s.IFrame = &p
	}
	return s
}
