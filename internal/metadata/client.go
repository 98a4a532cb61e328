package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/John-Robertt/alpresence/internal/domain"
)

const (
	DefaultBaseURL = "https://api.cdnlibs.org/api"

	defaultRate      = 2
	maxBodyBytes     = 4 << 20
	errorBodySnippet = 256
)

// endpoint 描述某个种类在 API 上的路径前缀与额外 fields[] 参数。
type endpoint struct {
	path   string
	fields []string
}

var endpoints = map[domain.Kind]endpoint{
	domain.KindAnime:      {path: "anime", fields: []string{"eng_name", "ageRestriction", "toast"}},
	domain.KindCharacter:  {path: "character"},
	domain.KindPerson:     {path: "people"},
	domain.KindUser:       {path: "user"},
	domain.KindCollection: {path: "collections"},
	domain.KindReview:     {path: "reviews"},
	domain.KindTeam:       {path: "teams"},
	domain.KindPublisher:  {path: "publisher"},
}

// ClientOptions 是 NewClient 的可选项。零值即可用。
type ClientOptions struct {
	// RatePerSecond 限制对 API 的请求速率；<=0 使用默认值。
	RatePerSecond float64
	// BreakerFailures 是连续失败多少次后熔断；<=0 使用 5。
	BreakerFailures uint32
	// BreakerCooldown 是熔断后多久进入半开；<=0 使用 30s。
	BreakerCooldown time.Duration
}

// Client 通过站点 JSON API 获取元数据。
//
// 约束：
// - Client 不做缓存（由 Cached 统一实现），只做限速与熔断
// - 4xx 不计入熔断失败：那是“资源本身不存在”，不是 API 不可用
type Client struct {
	BaseURL string
	HTTP    *http.Client

	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL string, c *http.Client, opts ClientOptions) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if c == nil {
		c = http.DefaultClient
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = defaultRate
	}
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "metadata-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var se *HTTPStatusError
			if errors.As(err, &se) {
				return se.StatusCode >= 400 && se.StatusCode < 500
			}
			// 调用方取消不代表 API 有问题。
			return errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		BaseURL: baseURL,
		HTTP:    c,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		breaker: cb,
	}
}

// BreakerState 返回熔断器状态（"closed" / "half-open" / "open"），用于日志与健康检查。
func (c *Client) BreakerState() string { return c.breaker.State().String() }

// URL 返回某个资源的 API 地址。
func (c *Client) URL(kind domain.Kind, id string) (string, error) {
	ep, ok := endpoints[kind]
	if !ok {
		return "", fmt.Errorf("未知资源种类：%q", kind)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("id 不能为空")
	}
	u := c.BaseURL + "/" + ep.path + "/" + url.PathEscape(id)
	if len(ep.fields) > 0 {
		q := make([]string, 0, len(ep.fields))
		for _, f := range ep.fields {
			q = append(q, url.QueryEscape("fields[]")+"="+url.QueryEscape(f))
		}
		u += "?" + strings.Join(q, "&")
	}
	return u, nil
}

// FetchRaw 请求 API 并返回原始响应体。
func (c *Client) FetchRaw(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
	u, err := c.URL(kind, id)
	if err != nil {
		return nil, &Error{Kind: kind, ID: id, Stage: "fetch", Err: err}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: kind, ID: id, Stage: "fetch", Err: err}
	}
	b, err := c.breaker.Execute(func() ([]byte, error) {
		return fetchURL(ctx, c.HTTP, u)
	})
	if err != nil {
		return nil, &Error{Kind: kind, ID: id, Stage: "fetch", Err: err}
	}
	return b, nil
}

// Fetch 实现 Fetcher。
func (c *Client) Fetch(ctx context.Context, kind domain.Kind, id string) (domain.Resource, error) {
	b, err := c.FetchRaw(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	r, err := Decode(kind, b)
	if err != nil {
		return nil, &Error{Kind: kind, ID: id, Stage: "decode", Err: err}
	}
	return r, nil
}

func fetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > errorBodySnippet {
			snippet = snippet[:errorBodySnippet]
		}
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
