package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/app/run"
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/log"
)

// maxPageBytes 限制页面快照请求体大小。
const maxPageBytes = 8 << 20

// apiRateLimit 是 /v1 下每个来源 IP 每分钟允许的请求数。
// 宿主通常每次导航推送一次页面、播放中每几秒推送一次 iframe 状态。
var apiRateLimit = 600

func serveCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printServeUsage(os.Stdout)
			return 0
		}
	}
	a, err := parseArgs(args, "--listen")
	if err == nil && len(a.Positional) != 0 {
		err = fmt.Errorf("serve 不接受位置参数：%q", a.Positional)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printServeUsage(os.Stderr)
		return 2
	}

	holder, ok := setup(a)
	if !ok {
		return 1
	}
	eff := holder.Get()
	metrics := newCycleMetrics()
	runner, err := run.New(eff, holder.Settings, metrics, log.Base())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	logger := componentLogger("serve")
	srv := &http.Server{
		Addr:              eff.Listen,
		Handler:           newRouter(runner, logger, metrics.handler()),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signalContext()
	defer stop()
	watchConfig(ctx, holder)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", eff.Listen).Msg("HTTP 服务已启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "HTTP 服务失败：%v\n", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP 服务关闭超时")
		return 1
	}
	logger.Info().Msg("HTTP 服务已停止")
	return 0
}

// presenceAPI 是 serve 暴露给宿主的最小接口（便于测试替换）。
type presenceAPI interface {
	Trigger(ctx context.Context, page run.Page) (domain.Record, error)
	PushIFrame(p domain.PlaybackSnapshot)
	Latest() (domain.Record, bool)
	BreakerState() string
}

var _ presenceAPI = (*run.Runner)(nil)

// pageResponse 是 POST /v1/page 的响应。Error 非空时 Record 是该路由的默认记录。
type pageResponse struct {
	Record domain.Record `json:"record"`
	Error  string        `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// healthResponse 是 GET /healthz 的响应。熔断打开时进程仍存活，但元数据不可用。
type healthResponse struct {
	Status  string `json:"status"`
	Breaker string `json:"breaker,omitempty"`
}

// newRouter 构造 HTTP 接口。metrics 为 nil 时不挂载 /metrics。
func newRouter(api presenceAPI, logger zerolog.Logger, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "ok", Breaker: api.BreakerState()}
		if resp.Breaker == "open" {
			resp.Status = "degraded"
		}
		writeJSON(w, http.StatusOK, resp)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.Limit(
			apiRateLimit,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Retry-After", "60")
				writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "请求过于频繁"})
			}),
		))

		r.Post("/page", func(w http.ResponseWriter, req *http.Request) {
			var page run.Page
			if !decodeBody(w, req, &page) {
				return
			}
			if page.URL == "" {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "缺少 url"})
				return
			}
			rec, err := api.Trigger(req.Context(), page)
			switch {
			case errors.Is(err, run.ErrSuperseded):
				writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
			case err != nil:
				writeJSON(w, http.StatusOK, pageResponse{Record: rec, Error: err.Error()})
			default:
				writeJSON(w, http.StatusOK, pageResponse{Record: rec})
			}
		})

		r.Post("/iframe", func(w http.ResponseWriter, req *http.Request) {
			var p domain.PlaybackSnapshot
			if !decodeBody(w, req, &p) {
				return
			}
			api.PushIFrame(p)
			w.WriteHeader(http.StatusNoContent)
		})

		r.Get("/presence", func(w http.ResponseWriter, _ *http.Request) {
			rec, ok := api.Latest()
			if !ok {
				writeJSON(w, http.StatusNotFound, errorResponse{Error: "尚无记录"})
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})
	})
	return r
}

func decodeBody(w http.ResponseWriter, req *http.Request, dst any) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxPageBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "请求体不是合法的 JSON：" + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger 以 debug 级别记录每个请求（周期本身的结果由 runner 记录）。
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, req.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, req)
			logger.Debug().
				Str("request_id", chimiddleware.GetReqID(req.Context())).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", ww.Status()).
				Dur("dur", time.Since(started)).
				Msg("http request")
		})
	}
}

func printServeUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  alpresence serve [--listen ADDR] [flags]

接口：
  POST /v1/page      页面快照 {"url","html","video"?,"iframe"?,"settings"?}，执行一个周期并返回记录
  POST /v1/iframe    iframe 播放状态 {"currentTime","duration","paused"}
  GET  /v1/presence  最近一次提交的记录
  GET  /healthz      存活检查与元数据 API 熔断状态
  GET  /metrics      Prometheus 指标

参数：
  --listen ADDR       监听地址（默认 127.0.0.1:8787）
`+commonFlags)
}
