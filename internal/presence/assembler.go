// Package presence 把当前页面组装为一条 presence 记录。
//
// 一个周期：路由分类 -> 按路由分发到处理器（可能等待元数据）-> 读 DOM ->
// 脱敏/格式化 -> 合并到基础记录 -> 按设置去掉按钮。
package presence

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/dom"
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/metadata"
	"github.com/John-Robertt/alpresence/internal/route"
)

// Input 是一个周期的全部输入。
type Input struct {
	// URL 是当前页面完整地址（含查询串）；路由与动作链接都由它得到。
	URL string
	// DOM 为 nil 时按空文档处理。
	DOM      dom.Snapshot
	Settings domain.Settings
}

// Assembler 是无状态的组装器；跨周期状态全部在 Session 里。
type Assembler struct {
	Fetcher metadata.Fetcher
	// Now 为 nil 时使用 time.Now（测试可注入固定时钟）。
	Now func() time.Time
	Log zerolog.Logger
}

func New(f metadata.Fetcher, log zerolog.Logger) *Assembler {
	return &Assembler{Fetcher: f, Log: log}
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// cycle 是处理器读取的周期上下文。sess 是本周期的 Session 副本，提交与否由 Build 决定。
type cycle struct {
	in   Input
	path route.Path
	tag  route.Tag
	dom  dom.Snapshot
	sess *Session
}

func (c *cycle) link(label string) []domain.Button {
	return []domain.Button{{Label: label, URL: route.CleanURL(c.in.URL)}}
}

// resultKind 区分处理器的三种结局。
type resultKind int

const (
	keepDefaults resultKind = iota // 数据不足：保持基础记录
	fill                           // 用 fields 覆盖基础记录
	redact                         // 整条记录替换为脱敏文案
)

// fields 是处理器给出的字段；空字符串表示“不覆盖”。
type fields struct {
	details, state, name   string
	largeKey, largeText    string
	smallKey, smallText    string
	windowStart, windowEnd int64
	hasWindow              bool
	buttons                []domain.Button
}

type result struct {
	kind resultKind
	f    fields
}

func keep() result               { return result{kind: keepDefaults} }
func redacted() result           { return result{kind: redact} }
func filled(f fields) result     { return result{kind: fill, f: f} }
func captioned(c caption) result { return filled(fields{details: c.Details, state: c.State}) }

// base 是每个周期的起点：站点 logo + 站点名，活动类型为“观看”。
func base() domain.Record {
	return domain.Record{
		Type:           domain.ActivityWatching,
		LargeImageKey:  AssetLogo,
		LargeImageText: SiteName,
		SmallImageText: SiteName,
	}
}

func (r result) record() domain.Record {
	switch r.kind {
	case redact:
		// 脱敏：只保留固定文案，其余可选字段一律不设置。
		return domain.Record{
			Type:    domain.ActivityWatching,
			Details: redactedCaption.Details,
			State:   redactedCaption.State,
		}
	case fill:
		rec := base()
		f := r.f
		set := func(dst *string, v string) {
			if v != "" {
				*dst = v
			}
		}
		set(&rec.Details, f.details)
		set(&rec.State, f.state)
		set(&rec.Name, f.name)
		set(&rec.LargeImageKey, f.largeKey)
		set(&rec.LargeImageText, f.largeText)
		set(&rec.SmallImageKey, f.smallKey)
		set(&rec.SmallImageText, f.smallText)
		if f.hasWindow {
			rec.SetWindow(f.windowStart, f.windowEnd)
		}
		if len(f.buttons) > 0 {
			rec.Buttons = append([]domain.Button(nil), f.buttons...)
		}
		return rec
	default:
		return base()
	}
}

// Build 执行一个周期。
//
// 返回值：
//   - 记录总是可用的：元数据获取失败时返回该路由的基础记录，同时返回 error
//   - Session 是更新后的会话；出错时原样返回入参，避免半个周期的状态泄漏到下一周期
//   - Build 不会 panic 到调用方之外
func (a *Assembler) Build(ctx context.Context, in Input, sess Session) (rec domain.Record, out Session, err error) {
	path := route.ParsePath(in.URL)
	c := &cycle{
		in:   in,
		path: path,
		tag:  path.Tag(),
		dom:  in.DOM,
		sess: &sess,
	}
	if c.dom == nil {
		c.dom = dom.Empty(in.URL)
	}
	entry := sess

	defer func() {
		if p := recover(); p != nil {
			a.Log.Error().Interface("panic", p).Str("route", string(c.tag)).Msg("组装 presence 时发生 panic")
			rec, out, err = finish(base(), in.Settings), entry, &PanicError{Value: p}
		}
	}()

	res, err := a.dispatch(ctx, c)
	if err != nil {
		return finish(base(), in.Settings), entry, err
	}
	a.Log.Debug().Str("route", string(c.tag)).Int("kind", int(res.kind)).Msg("presence 已组装")
	return finish(res.record(), in.Settings), sess, nil
}

// finish 是对所有路由都生效的后处理。
func finish(rec domain.Record, s domain.Settings) domain.Record {
	if !s.Buttons {
		rec.Buttons = nil
	}
	return rec
}

// dispatch 先处理各路由共有的 listing/sentinel 结构，再进入详情处理器。
func (a *Assembler) dispatch(ctx context.Context, c *cycle) (result, error) {
	sec := sections[c.tag]
	sub := c.path.Sub()

	if sec.static {
		return captioned(*sec.listing), nil
	}
	if sub == "" {
		if sec.listing == nil {
			return keep(), nil
		}
		return captioned(*sec.listing), nil
	}
	if sec.sentinel != "" && sub == sec.sentinel {
		return captioned(sec.creating), nil
	}

	switch c.tag {
	case route.Anime:
		return a.anime(ctx, c)
	case route.Characters:
		return a.character(ctx, c)
	case route.People:
		return a.person(ctx, c)
	case route.User:
		return a.user(ctx, c)
	case route.Collections:
		return a.collection(ctx, c)
	case route.Reviews:
		return a.review(ctx, c)
	case route.Team:
		return a.team(ctx, c)
	case route.Publisher:
		return a.publisher(ctx, c)
	case route.Franchise:
		return a.franchise(c), nil
	case route.News:
		return a.news(c), nil
	case route.FAQ:
		return a.faq(c), nil
	default:
		// media 的非 create 子页面等：保持默认。
		return keep(), nil
	}
}
