package presence

import "fmt"

// PanicError 表示某个路由处理器 panic 了；Build 已把它转成普通错误。
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("presence: panic: %v", e.Value) }
