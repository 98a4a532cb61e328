package presence

import "github.com/John-Robertt/alpresence/internal/domain"

// Session 是跨周期保留的全部状态。Build 接收一份并返回更新后的一份，自身不持有。
type Session struct {
	// LastDub 是最近一次读到的配音/字幕名。播放器菜单只有在展开时才暴露当前项，
	// 所以读不到时沿用它；只在读到新的非空值时覆盖。
	LastDub string
	// IFrame 是 iframe 播放器推送、尚未被消费的播放状态。
	IFrame *domain.PlaybackSnapshot
}

// WithIFrame 返回记录了新 iframe 推送的 Session。
func (s Session) WithIFrame(p domain.PlaybackSnapshot) Session {
	s.IFrame = &p
	return s
}

// takePlayback 选出本周期的权威播放源：原生 <video> 优先，其次是待消费的 iframe 推送。
// 两种情况下 iframe 推送都会被清空（只消费一次）。
func (s *Session) takePlayback(video domain.PlaybackSnapshot, hasVideo bool) (domain.PlaybackSnapshot, bool) {
	pending := s.IFrame
	s.IFrame = nil
	if hasVideo {
		return video, true
	}
	if pending != nil {
		return *pending, true
	}
	return domain.PlaybackSnapshot{}, false
}
