package domain

// Settings 是用户可配置的三个独立开关。每个周期重新读取，核心逻辑只读不写。
type Settings struct {
	// Privacy 为 true 时，所有支持脱敏的路由都输出固定的脱敏文案。
	Privacy bool `json:"privacy"`
	// Buttons 为 false 时，最终记录不带任何动作链接。
	Buttons bool `json:"buttons"`
	// TitleAsPresence 为 true 时，观看页把标题写入 Name 而不是 Details。
	TitleAsPresence bool `json:"titleAsPresence"`
}

// DefaultSettings 返回内置默认值：隐私关闭、显示按钮、标题写入 details。
func DefaultSettings() Settings {
	return Settings{Buttons: true}
}
