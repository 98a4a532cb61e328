package run

import (
	"strings"

	"github.com/John-Robertt/alpresence/internal/dom"
	"github.com/John-Robertt/alpresence/internal/domain"
)

// Page 是宿主推送的一次页面快照（watch 文件与 POST /v1/page 的请求体）。
type Page struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
	// Video 非空时覆盖 HTML 里 <video> 的序列化属性。
	Video *domain.PlaybackSnapshot `json:"video,omitempty"`
	// IFrame 非空时等价于在本周期前推送一次 iframe 播放状态。
	IFrame *domain.PlaybackSnapshot `json:"iframe,omitempty"`
	// Settings 非空时只在本周期替代配置里的开关（宿主自带设置页时使用）。
	Settings *domain.Settings `json:"settings,omitempty"`
}

// Snapshot 把 HTML 解析为 DOM 快照。
func (p Page) Snapshot() (dom.Snapshot, error) {
	if strings.TrimSpace(p.HTML) == "" {
		return withVideo(dom.Empty(p.URL), p.Video), nil
	}
	doc, err := dom.ParseString(p.HTML, p.URL)
	if err != nil {
		return nil, err
	}
	return withVideo(doc, p.Video), nil
}

func withVideo(s dom.Snapshot, v *domain.PlaybackSnapshot) dom.Snapshot {
	if v == nil {
		return s
	}
	return videoOverride{Snapshot: s, video: *v}
}

// videoOverride 用宿主直接给出的播放状态替代 DOM 里的 <video>。
type videoOverride struct {
	dom.Snapshot
	video domain.PlaybackSnapshot
}

func (v videoOverride) Video() (domain.PlaybackSnapshot, bool) { return v.video, true }
