package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/app/run"
	"github.com/John-Robertt/alpresence/internal/domain"
)

type fakeAPI struct {
	pages   []run.Page
	iframes []domain.PlaybackSnapshot
	latest  *domain.Record
	err     error
	breaker string
}

func (f *fakeAPI) Trigger(ctx context.Context, page run.Page) (domain.Record, error) {
	f.pages = append(f.pages, page)
	rec := domain.Record{Type: domain.ActivityWatching, Details: "d:" + page.URL}
	f.latest = &rec
	return rec, f.err
}

func (f *fakeAPI) PushIFrame(p domain.PlaybackSnapshot) { f.iframes = append(f.iframes, p) }

func (f *fakeAPI) Latest() (domain.Record, bool) {
	if f.latest == nil {
		return domain.Record{}, false
	}
	return *f.latest, true
}

func (f *fakeAPI) BreakerState() string { return f.breaker }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_PageThenPresence(t *testing.T) {
	api := &fakeAPI{}
	h := newRouter(api, zerolog.Nop(), nil)

	if rr := do(t, h, http.MethodGet, "/v1/presence", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("尚无记录时期望 404，实际 %d", rr.Code)
	}

	rr := do(t, h, http.MethodPost, "/v1/page", `{"url":"https://anilib.me/ru","html":"<p/>","iframe":{"currentTime":1,"duration":2,"paused":false}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d：%s", rr.Code, rr.Body.String())
	}
	var resp pageResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法 JSON：%v", err)
	}
	if resp.Record.Details != "d:https://anilib.me/ru" || resp.Error != "" {
		t.Fatalf("响应不符合预期：%+v", resp)
	}
	if len(api.pages) != 1 || api.pages[0].IFrame == nil || api.pages[0].HTML != "<p/>" {
		t.Fatalf("快照信封未正确解码：%+v", api.pages)
	}

	rr = do(t, h, http.MethodGet, "/v1/presence", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "d:https://anilib.me/ru") {
		t.Fatalf("presence 响应不符合预期：%d %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_PageErrors(t *testing.T) {
	api := &fakeAPI{}
	h := newRouter(api, zerolog.Nop(), nil)

	if rr := do(t, h, http.MethodPost, "/v1/page", `{`); rr.Code != http.StatusBadRequest {
		t.Fatalf("非法 JSON 期望 400，实际 %d", rr.Code)
	}
	if rr := do(t, h, http.MethodPost, "/v1/page", `{"html":"x"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("缺少 url 期望 400，实际 %d", rr.Code)
	}

	api.err = run.ErrSuperseded
	if rr := do(t, h, http.MethodPost, "/v1/page", `{"url":"u"}`); rr.Code != http.StatusConflict {
		t.Fatalf("被取代的周期期望 409，实际 %d", rr.Code)
	}

	api.err = errors.New("api down")
	rr := do(t, h, http.MethodPost, "/v1/page", `{"url":"u"}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "api down") {
		t.Fatalf("获取失败仍应返回默认记录与错误：%d %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_PageCarriesSettings(t *testing.T) {
	api := &fakeAPI{}
	h := newRouter(api, zerolog.Nop(), nil)

	rr := do(t, h, http.MethodPost, "/v1/page", `{"url":"https://anilib.me/ru","settings":{"privacy":true,"buttons":false,"titleAsPresence":true}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("期望 200，实际 %d：%s", rr.Code, rr.Body.String())
	}
	want := domain.Settings{Privacy: true, Buttons: false, TitleAsPresence: true}
	if len(api.pages) != 1 || api.pages[0].Settings == nil || *api.pages[0].Settings != want {
		t.Fatalf("settings 应原样传给周期：%+v", api.pages)
	}
}

func TestRouter_IFrameAndHealth(t *testing.T) {
	api := &fakeAPI{}
	h := newRouter(api, zerolog.Nop(), nil)

	rr := do(t, h, http.MethodPost, "/v1/iframe", `{"currentTime":12.5,"duration":1440,"paused":true}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("期望 204，实际 %d", rr.Code)
	}
	want := domain.PlaybackSnapshot{CurrentTime: 12.5, Duration: 1440, Paused: true}
	if len(api.iframes) != 1 || api.iframes[0] != want {
		t.Fatalf("iframe 推送不符合预期：%+v", api.iframes)
	}

	api.breaker = "closed"
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("healthz 不符合预期：%d %q", rr.Code, rr.Body.String())
	}
	api.breaker = "open"
	rr = do(t, h, http.MethodGet, "/healthz", "")
	var health healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("healthz 应返回 JSON：%v", err)
	}
	if health != (healthResponse{Status: "degraded", Breaker: "open"}) {
		t.Fatalf("熔断打开时 healthz 不符合预期：%+v", health)
	}
	if rr := do(t, h, http.MethodGet, "/v1/page", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("期望 405，实际 %d", rr.Code)
	}
}

func TestRouter_RateLimitPerIP(t *testing.T) {
	old := apiRateLimit
	apiRateLimit = 2
	defer func() { apiRateLimit = old }()

	h := newRouter(&fakeAPI{}, zerolog.Nop(), nil)
	for i := 0; i < 2; i++ {
		if rr := do(t, h, http.MethodGet, "/v1/presence", ""); rr.Code != http.StatusNotFound {
			t.Fatalf("第 %d 个请求不应被限流，实际 %d", i+1, rr.Code)
		}
	}
	rr := do(t, h, http.MethodGet, "/v1/presence", "")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("超出限额期望 429，实际 %d", rr.Code)
	}
	// /healthz 不受 /v1 限流影响。
	if rr := do(t, h, http.MethodGet, "/healthz", ""); rr.Code != http.StatusOK {
		t.Fatalf("healthz 不应被限流，实际 %d", rr.Code)
	}
}
