package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/domain"
)

const (
	// ErrCodeNotFound 表示 --config 指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是在 cwd 下自动发现的配置文件名。
const FileName = "alpresence.json"

const (
	DefaultSiteURL    = "https://anilib.me"
	DefaultAPIBaseURL = "https://api.cdnlibs.org/api"
	DefaultSiteID     = 5
	DefaultRateLimit  = 2.0
	DefaultListen     = "127.0.0.1:8787"
)

// CLIArgs 是 CLI 可覆盖的入口，并保留“是否显式指定”的信息。
// 这样 --buttons=false 才能覆盖配置文件里的 buttons=true。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时尝试 <cwd>/alpresence.json（可选）。
	ConfigPath string

	Privacy    bool
	PrivacySet bool

	Buttons    bool
	ButtonsSet bool

	TitleAsPresence    bool
	TitleAsPresenceSet bool

	Listen string

	LogLevel string
}

// FileConfig 对应 alpresence.json 的解析结构。指针字段区分“未写”与“写了零值”。
type FileConfig struct {
	Privacy         *bool        `json:"privacy"`
	Buttons         *bool        `json:"buttons"`
	TitleAsPresence *bool        `json:"title_as_presence"`
	SiteURL         string       `json:"site_url"`
	APIBaseURL      string       `json:"api_base_url"`
	SiteID          int          `json:"site_id"`
	Proxy           *ProxyConfig `json:"proxy"`
	CacheDir        string       `json:"cache_dir"`
	CacheReadOnly   bool         `json:"cache_read_only"`
	RateLimit       float64      `json:"rate_limit"`
	LogLevel        string       `json:"log_level"`
	Listen          string       `json:"listen"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EffectiveConfig 是合并并规范化后的最终配置，调用方不再做默认值判断。
type EffectiveConfig struct {
	// Source 是实际读取的配置文件；没有读到文件时为空。
	Source string

	Settings domain.Settings

	SiteURL    string
	APIBaseURL string
	SiteID     int
	ProxyURL   string
	// CacheDir 为空表示禁用磁盘缓存。
	CacheDir string
	// CacheReadOnly 为 true 时只读取已有缓存，不写入新响应。
	CacheReadOnly bool
	RateLimit     float64
	LogLevel      string
	Listen        string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：必须存在
// 2) 否则尝试 <cwd>/alpresence.json，不存在时全部使用默认值
//
// 覆盖优先级：CLI > 配置文件 > 内置默认。
// 相对的 cache_dir 以配置文件所在目录（没有文件时以 cwd）为基准。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	cfgPath, required := resolvePath(cwdAbs, cli)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists && required {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}

	baseDir := cwdAbs
	source := ""
	if exists {
		baseDir = filepath.Dir(cfgPath)
		source = cfgPath
	}
	eff, err := merge(baseDir, cli, fc)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	eff.Source = source
	return eff, nil
}

// resolvePath 返回要读取的配置文件路径，以及它是否必须存在。
func resolvePath(cwdAbs string, cli CLIArgs) (path string, required bool) {
	if p := strings.TrimSpace(cli.ConfigPath); p != "" {
		return absCleanFrom(cwdAbs, p), true
	}
	return filepath.Join(cwdAbs, FileName), false
}

func merge(baseDir string, cli CLIArgs, fc FileConfig) (EffectiveConfig, error) {
	s := domain.DefaultSettings()
	s.Privacy = pick(cli.PrivacySet, cli.Privacy, fc.Privacy, s.Privacy)
	s.Buttons = pick(cli.ButtonsSet, cli.Buttons, fc.Buttons, s.Buttons)
	s.TitleAsPresence = pick(cli.TitleAsPresenceSet, cli.TitleAsPresence, fc.TitleAsPresence, s.TitleAsPresence)

	siteURL, err := httpURL("site_url", fc.SiteURL, DefaultSiteURL)
	if err != nil {
		return EffectiveConfig{}, err
	}
	apiBaseURL, err := httpURL("api_base_url", fc.APIBaseURL, DefaultAPIBaseURL)
	if err != nil {
		return EffectiveConfig{}, err
	}

	siteID := fc.SiteID
	if siteID == 0 {
		siteID = DefaultSiteID
	}
	if siteID < 0 {
		return EffectiveConfig{}, fmt.Errorf("site_id 不能为负数：%d", siteID)
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, fmt.Errorf("proxy.url 无效：%q", proxyURL)
		}
	}

	rateLimit := fc.RateLimit
	if rateLimit == 0 {
		rateLimit = DefaultRateLimit
	}
	if rateLimit < 0 {
		return EffectiveConfig{}, fmt.Errorf("rate_limit 不能为负数：%v", rateLimit)
	}

	logLevel := strings.TrimSpace(fc.LogLevel)
	if v := strings.TrimSpace(cli.LogLevel); v != "" {
		logLevel = v
	}
	if logLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(logLevel)); err != nil {
			return EffectiveConfig{}, fmt.Errorf("log_level 无效：%q", logLevel)
		}
	}

	listen := DefaultListen
	if v := strings.TrimSpace(fc.Listen); v != "" {
		listen = v
	}
	if v := strings.TrimSpace(cli.Listen); v != "" {
		listen = v
	}
	if _, _, err := net.SplitHostPort(listen); err != nil {
		return EffectiveConfig{}, fmt.Errorf("listen 无效：%q", listen)
	}

	cacheDir := ""
	if v := strings.TrimSpace(fc.CacheDir); v != "" {
		cacheDir = absCleanFrom(baseDir, v)
	}

	return EffectiveConfig{
		Settings:      s,
		SiteURL:       siteURL,
		APIBaseURL:    apiBaseURL,
		SiteID:        siteID,
		ProxyURL:      proxyURL,
		CacheDir:      cacheDir,
		CacheReadOnly: fc.CacheReadOnly,
		RateLimit:     rateLimit,
		LogLevel:      logLevel,
		Listen:        listen,
	}, nil
}

// SiteIDHeader 返回 Site-Id 请求头的值。
func (e EffectiveConfig) SiteIDHeader() string { return strconv.Itoa(e.SiteID) }

// pick 实现 CLI > 配置文件 > 默认 的布尔合并。
func pick(cliSet, cliVal bool, file *bool, def bool) bool {
	switch {
	case cliSet:
		return cliVal
	case file != nil:
		return *file
	default:
		return def
	}
}

func httpURL(field, v, def string) (string, error) {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return def, nil
	}
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%s 无效：%q", field, v)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s 必须是 http/https：%q", field, v)
	}
	return v, nil
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
