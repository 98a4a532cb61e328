// Package metadata 按资源种类与 id 获取站点 API 的元数据。
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/John-Robertt/alpresence/internal/domain"
)

// Fetcher 把“站点 API 变化”限制在 metadata 包内部；presence 只依赖 domain 类型。
//
// 约束：
// - 每次导航都重新获取，调用方不持有返回值超过一个周期
// - 返回的具体类型必须与 kind 对应（KindAnime -> domain.Anime ...）
type Fetcher interface {
	Fetch(ctx context.Context, kind domain.Kind, id string) (domain.Resource, error)
}

// RawFetcher 返回 API 的原始 JSON 响应体。Cached 依赖它做落盘。
type RawFetcher interface {
	FetchRaw(ctx context.Context, kind domain.Kind, id string) ([]byte, error)
}

// FetcherFunc 让普通函数满足 Fetcher（测试里很方便）。
type FetcherFunc func(ctx context.Context, kind domain.Kind, id string) (domain.Resource, error)

func (f FetcherFunc) Fetch(ctx context.Context, kind domain.Kind, id string) (domain.Resource, error) {
	return f(ctx, kind, id)
}

// As 获取并断言为具体类型 T。
func As[T domain.Resource](ctx context.Context, f Fetcher, kind domain.Kind, id string) (T, error) {
	var zero T
	if f == nil {
		return zero, &Error{Kind: kind, ID: id, Stage: "fetch", Err: errors.New("fetcher 未配置")}
	}
	r, err := f.Fetch(ctx, kind, id)
	if err != nil {
		return zero, err
	}
	v, ok := r.(T)
	if !ok {
		return zero, &Error{Kind: kind, ID: id, Stage: "type", Err: fmt.Errorf("期望 %T，实际 %T", zero, r)}
	}
	return v, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Decode 把 API 响应体（{"data": {...}}）解码为 kind 对应的 domain 类型。
func Decode(kind domain.Kind, body []byte) (domain.Resource, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, errors.New("响应缺少 data 字段")
	}

	switch kind {
	case domain.KindAnime:
		return decodeAs[domain.Anime](env.Data)
	case domain.KindCharacter:
		return decodeAs[domain.Character](env.Data)
	case domain.KindPerson:
		return decodeAs[domain.Person](env.Data)
	case domain.KindUser:
		return decodeAs[domain.User](env.Data)
	case domain.KindCollection:
		return decodeAs[domain.Collection](env.Data)
	case domain.KindReview:
		return decodeAs[domain.Review](env.Data)
	case domain.KindTeam:
		return decodeAs[domain.Team](env.Data)
	case domain.KindPublisher:
		return decodeAs[domain.Publisher](env.Data)
	default:
		return nil, fmt.Errorf("未知资源种类：%q", kind)
	}
}

func decodeAs[T domain.Resource](data []byte) (domain.Resource, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
