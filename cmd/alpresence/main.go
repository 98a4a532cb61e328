package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/alpresence/internal/app/run"
	"github.com/John-Robertt/alpresence/internal/config"
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/log"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	var code int
	switch args[0] {
	case "build":
		code = buildCmd(args[1:])
	case "watch":
		code = watchCmd(args[1:])
	case "serve":
		code = serveCmd(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		code = 2
	}
	if code != 0 {
		os.Exit(code)
	}
}

// cliArgs 是三个子命令共用的参数集合；每个子命令只接受其中一部分。
type cliArgs struct {
	Positional []string

	ConfigPath string
	LogLevel   string

	Privacy    bool
	PrivacySet bool
	Buttons    bool
	ButtonsSet bool
	Title      bool
	TitleSet   bool

	// build
	HTMLFile string
	IFrame   string

	// serve
	Listen string
}

func (a cliArgs) config() config.CLIArgs {
	return config.CLIArgs{
		ConfigPath:         a.ConfigPath,
		Privacy:            a.Privacy,
		PrivacySet:         a.PrivacySet,
		Buttons:            a.Buttons,
		ButtonsSet:         a.ButtonsSet,
		TitleAsPresence:    a.Title,
		TitleAsPresenceSet: a.TitleSet,
		Listen:             a.Listen,
		LogLevel:           a.LogLevel,
	}
}

// parseArgs 解析参数。valued 列出该子命令接受的带值参数（--x v 或 --x=v）。
func parseArgs(args []string, valued ...string) (cliArgs, error) {
	var a cliArgs
	accepts := map[string]*string{}
	for _, name := range valued {
		switch name {
		case "--html":
			accepts[name] = &a.HTMLFile
		case "--iframe":
			accepts[name] = &a.IFrame
		case "--listen":
			accepts[name] = &a.Listen
		}
	}
	accepts["--config"] = &a.ConfigPath
	accepts["--log-level"] = &a.LogLevel

	bools := map[string]struct{ val, set *bool }{
		"--privacy": {&a.Privacy, &a.PrivacySet},
		"--buttons": {&a.Buttons, &a.ButtonsSet},
		"--title":   {&a.Title, &a.TitleSet},
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			a.Positional = append(a.Positional, arg)
			continue
		}
		name, value, hasValue := strings.Cut(arg, "=")

		if dst, ok := accepts[name]; ok {
			if !hasValue {
				if i+1 >= len(args) {
					return cliArgs{}, fmt.Errorf("%s 需要一个值", name)
				}
				i++
				value = args[i]
			}
			*dst = value
			continue
		}
		if b, ok := bools[name]; ok {
			v := true
			if hasValue {
				switch value {
				case "true":
				case "false":
					v = false
				default:
					return cliArgs{}, fmt.Errorf("%s 只能是 true 或 false，实际是 %q", name, value)
				}
			}
			*b.val, *b.set = v, true
			continue
		}
		return cliArgs{}, fmt.Errorf("未知参数 %q", arg)
	}
	return a, nil
}

// setup 读取配置并初始化日志。失败时已向 stderr 输出原因。
func setup(a cliArgs) (*config.Holder, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return nil, false
	}
	eff, err := config.LoadEffective(cwd, a.config())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return nil, false
	}
	log.Configure(log.Config{Level: eff.LogLevel})
	if eff.Source != "" {
		l := log.Base()
		l.Debug().Str("path", eff.Source).Msg("已读取配置文件")
	}
	return config.NewHolder(cwd, a.config(), eff, componentLogger("config")), true
}

// watchConfig 让长驻命令在配置文件变化时刷新设置；监听失败只降级为固定设置。
func watchConfig(ctx context.Context, h *config.Holder) {
	if err := h.StartWatcher(ctx); err != nil {
		l := componentLogger("config")
		l.Warn().Err(err).Str("path", h.Path()).Msg("无法监听配置文件，设置不会热更新")
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func buildCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printBuildUsage(os.Stdout)
			return 0
		}
	}
	a, err := parseArgs(args, "--html", "--iframe")
	if err == nil && len(a.Positional) != 1 {
		err = errors.New("需要且只需要一个页面地址")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printBuildUsage(os.Stderr)
		return 2
	}

	page := run.Page{URL: a.Positional[0]}
	if a.HTMLFile != "" {
		html, err := readInput(a.HTMLFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "读取 HTML 失败：%v\n", err)
			return 1
		}
		page.HTML = string(html)
	}
	if a.IFrame != "" {
		var p domain.PlaybackSnapshot
		if err := json.Unmarshal([]byte(a.IFrame), &p); err != nil {
			fmt.Fprintf(os.Stderr, "参数错误：--iframe 不是合法的 JSON：%v\n", err)
			return 2
		}
		page.IFrame = &p
	}

	holder, ok := setup(a)
	if !ok {
		return 1
	}
	runner, err := run.New(holder.Get(), nil, nil, log.Base())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx, stop := signalContext()
	defer stop()

	rec, err := runner.Trigger(ctx, page)
	if errors.Is(err, run.ErrSuperseded) {
		fmt.Fprintln(os.Stderr, "已取消")
		return 1
	}
	emitRecord(os.Stdout, rec, isTTY(os.Stdout))
	if err != nil {
		// 记录仍然可用（默认记录），但退出码要反映失败。
		fmt.Fprintf(os.Stderr, "获取元数据失败：%v\n", err)
		return 1
	}
	return 0
}

// readInput 读取文件；"-" 表示 stdin。
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// emitRecord 输出一条记录：stdout 非 TTY 时输出一行 JSON（机器契约），否则输出简短摘要。
func emitRecord(w io.Writer, rec domain.Record, tty bool) {
	if !tty {
		b, err := json.Marshal(rec)
		if err != nil {
			l := log.Base()
			l.Error().Err(err).Msg("编码记录失败")
			return
		}
		b = append(b, '\n')
		_, _ = w.Write(b)
		return
	}
	fmt.Fprint(w, formatRecord(rec))
}

func formatRecord(rec domain.Record) string {
	var b strings.Builder
	title := rec.Details
	if rec.Name != "" {
		title = rec.Name
	}
	if title == "" {
		title = "（无详情）"
	}
	fmt.Fprintf(&b, "%s\n", title)
	if rec.State != "" {
		fmt.Fprintf(&b, "  %s\n", rec.State)
	}
	if rec.SmallImageText != "" && rec.SmallImageText != rec.LargeImageText {
		fmt.Fprintf(&b, "  状态: %s\n", rec.SmallImageText)
	}
	if start, end, ok := rec.Window(); ok {
		fmt.Fprintf(&b, "  窗口: %d -> %d (%ds)\n", start, end, end-start)
	}
	for _, btn := range rec.Buttons {
		fmt.Fprintf(&b, "  [%s] %s\n", btn.Label, btn.URL)
	}
	return b.String()
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

// componentLogger 是 CLI 层使用的 logger。
func componentLogger(name string) zerolog.Logger { return log.WithComponent(name) }

const commonFlags = `  --config FILE       配置文件（默认读取 ./alpresence.json，可选）
  --privacy[=bool]    隐私模式：所有页面只显示固定文案
  --buttons[=bool]    是否附带动作链接（默认 true）
  --title[=bool]      观看页把作品名写入活动名称而不是 details
  --log-level LEVEL   debug|info|warn|error（默认读取 LOG_LEVEL）
  -h, --help          显示帮助
`

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  alpresence build <page-url> [--html FILE] [--iframe JSON] [flags]
  alpresence watch <snapshot.json> [flags]
  alpresence serve [--listen ADDR] [flags]

命令：
  build  对一个页面执行一次周期并输出记录
  watch  快照文件每次变化时执行一次周期
  serve  通过 HTTP 接收页面快照与 iframe 播放状态

使用 "alpresence <command> --help" 查看详细说明。
`)
}

func printBuildUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  alpresence build <page-url> [--html FILE] [--iframe JSON] [flags]

参数：
  --html FILE         页面 HTML 快照（"-" 表示 stdin）；缺省时按空文档处理
  --iframe JSON       iframe 播放器推送的播放状态，如 {"currentTime":60,"duration":1440,"paused":false}
`+commonFlags)
}
