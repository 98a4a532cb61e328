package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfigure_LevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := WithComponent("runner")
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("warn 级别下不应输出 info：%s", out)
	}
	if !strings.Contains(out, `"component":"runner"`) || !strings.Contains(out, "shown") {
		t.Fatalf("输出缺少 component 或消息：%s", out)
	}
}

func TestConfigure_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "loud", Output: &buf})
	t.Cleanup(func() { Configure(Config{}) })

	l := Base()
	l.Debug().Msg("dbg")
	l.Info().Msg("inf")
	if strings.Contains(buf.String(), "dbg") || !strings.Contains(buf.String(), "inf") {
		t.Fatalf("非法级别应回退到 info：%s", buf.String())
	}
}
