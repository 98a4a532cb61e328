package domain

import "math"

// PlaybackSnapshot 描述某一时刻的播放状态（秒）。
// 来源可以是页面内原生 <video>，也可以是 iframe 播放器推送的数据。
type PlaybackSnapshot struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	Paused      bool    `json:"paused"`
}

// Finite 报告 CurrentTime/Duration 是否都是可用于计算窗口的有限非负数。
// 直播流或尚未加载元数据的 <video> 会给出 NaN/Inf。
func (p PlaybackSnapshot) Finite() bool {
	for _, v := range []float64{p.CurrentTime, p.Duration} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return false
		}
	}
	return p.Duration > 0
}
