// Package dom 提供页面 DOM 快照的只读访问。
//
// 约束：
// - 快照是某一时刻的静态 HTML（由宿主序列化），goquery 不执行 JS/CSS
// - 读取失败一律视为“元素缺失”，不返回 error
package dom

import (
	"bytes"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/alpresence/internal/domain"
)

// Lookup 是一种定位策略：先在文档中选中 Selector 的第 Index 个元素，
// 再（可选）在其内部取 Child 的第一个元素。
type Lookup struct {
	Selector string
	Index    int
	Child    string
}

// Chain 是按顺序尝试的一组定位策略，第一个得到非空结果的策略生效。
type Chain []Lookup

// One 是只有单个选择器的 Chain。
func One(selector string) Chain { return Chain{{Selector: selector}} }

// Snapshot 是 presence 组装需要的全部 DOM 读操作。
type Snapshot interface {
	// Text 返回第一个非空文本（已规范化空白）。
	Text(c Chain) (string, bool)
	// Src 返回第一个非空的 src 属性，已按页面地址解析为绝对 URL。
	Src(c Chain) (string, bool)
	// Video 读取页面中的原生 <video> 播放状态。
	Video() (domain.PlaybackSnapshot, bool)
}

// Document 是基于 goquery 的 Snapshot 实现。
type Document struct {
	doc  *goquery.Document
	base *url.URL
}

// Parse 从 HTML 构造快照；pageURL 用于解析相对地址，可以为空。
func Parse(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	var base *url.URL
	if pageURL = strings.TrimSpace(pageURL); pageURL != "" {
		base, _ = url.Parse(pageURL)
	}
	return &Document{doc: doc, base: base}, nil
}

// ParseString 是 Parse 的字符串版本。
func ParseString(html, pageURL string) (*Document, error) {
	return Parse(bytes.NewReader([]byte(html)), pageURL)
}

// Empty 返回一个空文档（宿主未提供 DOM 时使用）。
func Empty(pageURL string) *Document {
	d, _ := ParseString("", pageURL)
	return d
}

func (d *Document) find(l Lookup) *goquery.Selection {
	if d == nil || d.doc == nil || strings.TrimSpace(l.Selector) == "" {
		return nil
	}
	s := d.doc.Find(l.Selector)
	if l.Index < 0 || l.Index >= s.Length() {
		return nil
	}
	s = s.Eq(l.Index)
	if l.Child != "" {
		s = s.Find(l.Child).First()
		if s.Length() == 0 {
			return nil
		}
	}
	return s
}

func (d *Document) Text(c Chain) (string, bool) {
	for _, l := range c {
		s := d.find(l)
		if s == nil {
			continue
		}
		if t := normSpace(s.Text()); t != "" {
			return t, true
		}
	}
	return "", false
}

func (d *Document) Src(c Chain) (string, bool) {
	for _, l := range c {
		s := d.find(l)
		if s == nil {
			continue
		}
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			continue
		}
		return d.resolve(src), true
	}
	return "", false
}

// Video 读取第一个 <video>。宿主把实时属性序列化为：
// data-current-time / data-duration（秒），以及布尔属性 paused。
func (d *Document) Video() (domain.PlaybackSnapshot, bool) {
	s := d.find(Lookup{Selector: "video"})
	if s == nil {
		return domain.PlaybackSnapshot{}, false
	}
	cur := parseFloat(s.AttrOr("data-current-time", ""))
	dur := parseFloat(s.AttrOr("data-duration", ""))
	_, paused := s.Attr("paused")
	if v, ok := s.Attr("data-paused"); ok {
		paused = v != "false"
	}
	return domain.PlaybackSnapshot{CurrentTime: cur, Duration: dur, Paused: paused}, true
}

func (d *Document) resolve(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if d.base == nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return d.base.ResolveReference(ru).String()
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func normSpace(s string) string { return strings.Join(strings.Fields(s), " ") }
