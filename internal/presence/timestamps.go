package presence

import (
	"math"
	"time"

	"github.com/John-Robertt/alpresence/internal/domain"
)

// Timestamps 把播放位置换算为展示端的播放窗口（epoch 秒）：
// start = now - currentTime，end = start + duration。
//
// start 取“这一集开始播放的时刻”，而不是 now：展示端据此显示的已播放时长
// 与播放器进度一致，剩余时长（end - now）与取 now 时相同。
//
// 暂停、或者位置/时长不可用（NaN、Inf、直播）时 ok=false，调用方不应设置窗口。
func Timestamps(now time.Time, p domain.PlaybackSnapshot) (start, end int64, ok bool) {
	if p.Paused || !p.Finite() {
		return 0, 0, false
	}
	start = now.Unix() - int64(math.Floor(p.CurrentTime))
	end = start + int64(math.Round(p.Duration))
	return start, end, true
}
