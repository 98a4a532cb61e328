package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/infra/cache"
)

const animeJSON = `{"data":{"id":123,"name":"Naruto","rus_name":"Наруто","eng_name":"Naruto","slug_url":"123--naruto",
"cover":{"default":"https://cover.test/123.jpg"},"ageRestriction":{"id":2,"label":"12+"},"toast":null}}`

func TestDecode_AllKinds(t *testing.T) {
	cases := []struct {
		kind domain.Kind
		body string
		want domain.Resource
	}{
		{domain.KindAnime, animeJSON, domain.Anime{
			ID: 123, Name: "Naruto", RusName: "Наруто", EngName: "Naruto", SlugURL: "123--naruto",
			Cover: domain.Cover{Default: "https://cover.test/123.jpg"}, AgeRestriction: &domain.AgeRestriction{ID: 2, Label: "12+"},
		}},
		{domain.KindCollection, `{"data":{"id":55,"name":"Best","type":"character","adult":true,"user":{"id":1,"username":"neo","avatar":{"url":"a.png"}}}}`,
			domain.Collection{ID: 55, Name: "Best", Type: domain.CollectionCharacters, Adult: true, User: domain.UserRef{ID: 1, Username: "neo", Avatar: domain.Avatar{URL: "a.png"}}}},
		{domain.KindReview, `{"data":{"id":9,"title":"Great","user":{"username":"u"},"related":{"rus_name":"Т","ageRestriction":{"id":5}}}}`,
			domain.Review{ID: 9, Title: "Great", User: domain.UserRef{Username: "u"}, Related: domain.ReviewedTitle{RusName: "Т", AgeRestriction: &domain.AgeRestriction{ID: 5}}}},
		{domain.KindUser, `{"data":{"id":42,"username":"neo","avatar":{"url":"x"}}}`, domain.User{ID: 42, Username: "neo", Avatar: domain.Avatar{URL: "x"}}},
		{domain.KindTeam, `{"data":{"id":1,"name":"T","alt_name":""}}`, domain.Team{ID: 1, Name: "T"}},
		{domain.KindPublisher, `{"data":{"id":1,"name":"P","rus_name":"П"}}`, domain.Publisher{ID: 1, Name: "P", RusName: "П"}},
		{domain.KindPerson, `{"data":{"id":1,"name":"N","alt_name":"A"}}`, domain.Person{ID: 1, Name: "N", AltName: "A"}},
		{domain.KindCharacter, `{"data":{"id":1,"name":"N","rus_name":"Н"}}`, domain.Character{ID: 1, Name: "N", RusName: "Н"}},
	}
	for _, c := range cases {
		got, err := Decode(c.kind, []byte(c.body))
		if err != nil {
			t.Fatalf("Decode(%s) 失败：%v", c.kind, err)
		}
		if got.Kind() != c.kind {
			t.Fatalf("Kind 不一致：%s vs %s", got.Kind(), c.kind)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("Decode(%s) 结果不符合预期（-want +got）：\n%s", c.kind, diff)
		}
	}
}

func TestDecode_MissingData(t *testing.T) {
	for _, body := range []string{`{}`, `{"data":null}`, `not json`} {
		if _, err := Decode(domain.KindAnime, []byte(body)); err == nil {
			t.Fatalf("body=%q 期望错误，但得到 nil", body)
		}
	}
}

func TestClient_FetchAnime(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(animeJSON))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", srv.Client(), ClientOptions{RatePerSecond: 1000})
	a, err := As[domain.Anime](context.Background(), c, domain.KindAnime, "123")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if a.RusName != "Наруто" {
		t.Fatalf("期望 rus_name=Наруто，实际 %q", a.RusName)
	}
	if gotPath != "/api/anime/123" {
		t.Fatalf("请求路径不符合预期：%q", gotPath)
	}
	if !strings.Contains(gotQuery, "toast") || !strings.Contains(gotQuery, "ageRestriction") {
		t.Fatalf("anime 请求应携带 fields[]，实际 query=%q", gotQuery)
	}
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), ClientOptions{RatePerSecond: 1000, BreakerFailures: 1})
	_, err := c.Fetch(context.Background(), domain.KindTeam, "9")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("期望 ErrNotFound，实际：%v", err)
	}
	if Stage(err) != "fetch" {
		t.Fatalf("期望 stage=fetch，实际 %q", Stage(err))
	}
	// 4xx 不应触发熔断。
	if c.BreakerState() != "closed" {
		t.Fatalf("404 不应打开熔断器，实际 %s", c.BreakerState())
	}
}

func TestClient_BreakerOpensOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), ClientOptions{RatePerSecond: 1000, BreakerFailures: 2, BreakerCooldown: time.Hour})
	for i := 0; i < 3; i++ {
		_, _ = c.Fetch(context.Background(), domain.KindUser, "1")
	}
	if c.BreakerState() != "open" {
		t.Fatalf("连续 5xx 后应熔断，实际 %s", c.BreakerState())
	}
	if n := calls.Load(); n != 2 {
		t.Fatalf("熔断后不应再请求上游，实际请求次数 %d", n)
	}
}

func TestClient_URLRejectsUnknownKind(t *testing.T) {
	c := NewClient("", nil, ClientOptions{})
	if c.BaseURL != DefaultBaseURL {
		t.Fatalf("期望默认 BaseURL，实际 %q", c.BaseURL)
	}
	if _, err := c.URL(domain.Kind("manga"), "1"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
	if _, err := c.URL(domain.KindAnime, " "); err == nil {
		t.Fatalf("空 id 期望错误，但得到 nil")
	}
}

func TestAs_TypeMismatch(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context, kind domain.Kind, id string) (domain.Resource, error) {
		return domain.User{Username: "x"}, nil
	})
	_, err := As[domain.Anime](context.Background(), f, domain.KindAnime, "1")
	if Stage(err) != "type" {
		t.Fatalf("期望 stage=type，实际 err=%v", err)
	}
}

type stubRaw struct {
	mu    sync.Mutex
	body  []byte
	err   error
	calls int
	wait  chan struct{}
}

func (s *stubRaw) FetchRaw(ctx context.Context, kind domain.Kind, id string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	wait := s.wait
	s.mu.Unlock()
	if wait != nil {
		<-wait
	}
	return s.body, s.err
}

func TestCached_WritesThenServesStaleOnError(t *testing.T) {
	store := cache.New(t.TempDir(), false)
	up := &stubRaw{body: []byte(animeJSON)}
	c := NewCached(up, store, zerolog.Nop())

	if _, err := c.Fetch(context.Background(), domain.KindAnime, "123"); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok, _ := store.ReadResource(domain.KindAnime, "123"); !ok {
		t.Fatalf("成功响应应写入缓存")
	}

	up.err = errors.New("boom")
	r, err := c.Fetch(context.Background(), domain.KindAnime, "123")
	if err != nil {
		t.Fatalf("上游失败时应回退缓存，实际错误：%v", err)
	}
	if r.(domain.Anime).Name != "Naruto" {
		t.Fatalf("回退结果不符合预期：%+v", r)
	}

	_, err = c.Fetch(context.Background(), domain.KindAnime, "999")
	if err == nil || Stage(err) != "fetch" {
		t.Fatalf("无缓存时应返回 fetch 错误，实际：%v", err)
	}
}

func TestCached_DedupesConcurrentFetches(t *testing.T) {
	up := &stubRaw{body: []byte(animeJSON), wait: make(chan struct{})}
	c := NewCached(up, cache.New("", false), zerolog.Nop())

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), domain.KindAnime, "123")
			errs <- err
		}()
	}
	// 等所有调用方进入 singleflight 后再放行上游。
	time.Sleep(50 * time.Millisecond)
	close(up.wait)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("不期望错误：%v", err)
		}
	}
	if up.calls != 1 {
		t.Fatalf("期望上游只被调用 1 次，实际 %d", up.calls)
	}
}

func TestCached_CallerCancelDoesNotPoisonSharedFetch(t *testing.T) {
	up := &stubRaw{body: []byte(animeJSON), wait: make(chan struct{})}
	c := NewCached(up, cache.New("", false), zerolog.Nop())

	ctx1, cancel1 := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx1, domain.KindAnime, "123")
		first <- err
	}()
	time.Sleep(20 * time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := c.Fetch(context.Background(), domain.KindAnime, "123")
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel1()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("被取消的调用方应得到 context.Canceled，实际：%v", err)
	}
	close(up.wait)
	if err := <-second; err != nil {
		t.Fatalf("另一个调用方不应受取消影响：%v", err)
	}
}
