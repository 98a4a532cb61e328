package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/infra/cache"
)

// sharedFetchTimeout 限制一次共享请求的最长时间（与发起者的 ctx 解耦）。
const sharedFetchTimeout = 30 * time.Second

// Cached 在 RawFetcher 之上提供两件事：
//   - 同一 kind/id 的并发请求合并为一次（singleflight）
//   - 成功响应落盘；上游失败时回退到最近一次成功的缓存（stale-if-error）
//
// 正常路径永远先请求上游，因此每次导航拿到的仍是最新数据。
type Cached struct {
	Upstream RawFetcher
	Store    cache.Store
	Log      zerolog.Logger

	group singleflight.Group
}

func NewCached(upstream RawFetcher, store cache.Store, log zerolog.Logger) *Cached {
	return &Cached{Upstream: upstream, Store: store, Log: log}
}

func (c *Cached) Fetch(ctx context.Context, kind domain.Kind, id string) (domain.Resource, error) {
	key := string(kind) + "/" + id

	// 共享请求不能继承某个调用方的取消：被新周期取代的旧周期取消时，
	// 新周期很可能正等待同一个 key。
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		body, err := c.Upstream.FetchRaw(fctx, kind, id)
		if err != nil {
			return nil, err
		}
		if werr := c.Store.WriteResource(kind, id, body); werr != nil {
			c.Log.Warn().Err(werr).Str("kind", string(kind)).Str("id", id).Msg("写入元数据缓存失败")
		}
		return body, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, &Error{Kind: kind, ID: id, Stage: "fetch", Err: ctx.Err()}
	case res = <-ch:
	}

	if res.Err == nil {
		r, err := Decode(kind, res.Val.([]byte))
		if err != nil {
			return nil, &Error{Kind: kind, ID: id, Stage: "decode", Err: err}
		}
		return r, nil
	}

	stale, ok, rerr := c.Store.ReadResource(kind, id)
	if rerr != nil {
		c.Log.Warn().Err(rerr).Str("kind", string(kind)).Str("id", id).Msg("读取元数据缓存失败")
	}
	if ok {
		if r, derr := Decode(kind, stale); derr == nil {
			c.Log.Warn().Err(res.Err).Str("kind", string(kind)).Str("id", id).Msg("上游失败，使用缓存的元数据")
			return r, nil
		}
	}
	return nil, wrapFetch(kind, id, res.Err)
}

func wrapFetch(kind domain.Kind, id string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, ID: id, Stage: "fetch", Err: err}
}
