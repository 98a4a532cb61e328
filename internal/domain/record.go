package domain

import "errors"

// ActivityType 对应展示端的活动类型枚举（数值与 Discord activity type 一致）。
type ActivityType int

// ActivityWatching 是本站唯一使用的类型（“Смотрит”）。
const ActivityWatching ActivityType = 3

// Button 是记录上的一个动作链接。
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Record 是一次 update 周期的最终产物（presence 记录）。
//
// 约束：
// - StartTimestamp 与 EndTimestamp 要么同时存在，要么同时缺失（只能通过 SetWindow 设置）
// - Details 与 Name 由 titleAsPresence 决定，观看页只会设置其中一个
// - 每个周期都重新构造，不跨周期复用
type Record struct {
	Type ActivityType `json:"type"`

	Details string `json:"details,omitempty"`
	State   string `json:"state,omitempty"`
	Name    string `json:"name,omitempty"`

	LargeImageKey  string `json:"largeImageKey,omitempty"`
	LargeImageText string `json:"largeImageText,omitempty"`
	SmallImageKey  string `json:"smallImageKey,omitempty"`
	SmallImageText string `json:"smallImageText,omitempty"`

	StartTimestamp *int64 `json:"startTimestamp,omitempty"`
	EndTimestamp   *int64 `json:"endTimestamp,omitempty"`

	Buttons []Button `json:"buttons,omitempty"`
}

// SetWindow 设置播放窗口（epoch 秒）。
func (r *Record) SetWindow(start, end int64) {
	r.StartTimestamp = &start
	r.EndTimestamp = &end
}

// Window 返回播放窗口；ok=false 表示没有窗口。
func (r Record) Window() (start, end int64, ok bool) {
	if r.StartTimestamp == nil || r.EndTimestamp == nil {
		return 0, 0, false
	}
	return *r.StartTimestamp, *r.EndTimestamp, true
}

var ErrUnpairedWindow = errors.New("startTimestamp 与 endTimestamp 必须成对出现")

// Validate 校验记录的结构性不变量。
func (r Record) Validate() error {
	if (r.StartTimestamp == nil) != (r.EndTimestamp == nil) {
		return ErrUnpairedWindow
	}
	if r.Details != "" && r.Name != "" {
		return errors.New("details 与 name 不能同时设置")
	}
	return nil
}
