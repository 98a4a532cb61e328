package httpx

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultRetryMax = 1
)

// Transport 把“UA 池 + 固定请求头 + 代理 + 有界重试”固化为统一策略。
// 重试条件：连接层错误，或 502/503/504；ctx 取消后不再重试。
//
// 设计目标：metadata 只负责“拼端点 + 解码 JSON”，不关心网络策略细节。
type Transport struct {
	Base *http.Transport

	ua *uaPool

	// Header 会补到每个请求上（请求自身已设置的同名头不覆盖）。
	Header http.Header

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 1 表示最多 2 次尝试。
	RetryMax int

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		r := req.Clone(req.Context())
		for k, vs := range t.Header {
			if r.Header.Get(k) != "" {
				continue
			}
			for _, v := range vs {
				r.Header.Add(k, v)
			}
		}
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.ua.random())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if err == nil {
			if attempt < max && retryableStatus(resp.StatusCode) && req.Context().Err() == nil {
				drainClose(resp.Body)
				continue
			}
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			// ctx 已取消（通常是周期被新触发取代）：不再重试。
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// retryableStatus 只认网关类错误：API 前面的 CDN 偶发返回，下一次通常成功。
func retryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func drainClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 4<<10))
	_ = body.Close()
}

// Options 是 NewAPIClient 的可选项。
type Options struct {
	// ProxyURL 非空时所有请求走代理，且禁用 keep-alive。
	ProxyURL string
	// SiteURL 用作 Origin/Referer（站点 API 会校验来源）。
	SiteURL string
	// SiteID 是 API 的 Site-Id 头。
	SiteID string
	// Timeout 为 0 时使用默认值。
	Timeout time.Duration
}

// NewAPIClient 构造访问站点 JSON API 的 HTTP client。
//
// 规则：
// - proxy 非空：必须走代理，且禁用 keep-alive（每请求新连接）
// - 内置 UA 池：每个请求随机 UA
// - Accept/Origin/Referer/Site-Id 统一补齐
// - 有界重试 + 总超时
func NewAPIClient(opts Options) (*http.Client, error) {
	h := http.Header{}
	h.Set("Accept", "application/json")
	if site := strings.TrimRight(strings.TrimSpace(opts.SiteURL), "/"); site != "" {
		h.Set("Origin", site)
		h.Set("Referer", site+"/")
	}
	if id := strings.TrimSpace(opts.SiteID); id != "" {
		h.Set("Site-Id", id)
	}
	return newClient(strings.TrimSpace(opts.ProxyURL), h, opts.Timeout)
}

func newClient(proxyURL string, header http.Header, timeout time.Duration) (*http.Client, error) {
	base := &http.Transport{
		Proxy:                 nil,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 8 * time.Second,
	}

	disableKeepAlives := false
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 缺少 scheme 或 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tr := &Transport{
		Base:              base,
		ua:                globalUA,
		Header:            header,
		RetryMax:          defaultRetryMax,
		DisableKeepAlives: disableKeepAlives,
	}
	return &http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
