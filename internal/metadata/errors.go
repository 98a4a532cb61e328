package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/alpresence/internal/domain"
)

// ErrNotFound 表示 API 明确返回了 404（资源不存在或已删除）。
var ErrNotFound = errors.New("metadata: not found")

// HTTPStatusError 表示 API 返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Body       string // 截断后的响应片段，便于排查
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d body=%s", e.StatusCode, body)
}

// Is 让 errors.Is(err, ErrNotFound) 对 404 成立。
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrNotFound && e != nil && e.StatusCode == 404
}

// Error 是一次元数据获取的可追溯错误。
type Error struct {
	Kind  domain.Kind
	ID    string
	Stage string // "fetch" / "decode" / "type"
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("metadata kind=%s id=%s stage=%s: %v", e.Kind, e.ID, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Stage 从 error 中提取失败阶段；若不是 *Error 则返回空串。
func Stage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
