// Package route 把页面路径归类为固定的路由标签，并提供路径段的辅助读取。
package route

import (
	"net/url"
	"strings"
)

// Tag 是路径的路由分类（封闭集合）。
type Tag string

const (
	Home        Tag = "home"
	Anime       Tag = "anime"
	Characters  Tag = "characters"
	People      Tag = "people"
	Catalog     Tag = "catalog"
	User        Tag = "user"
	TopViews    Tag = "top-views"
	Collections Tag = "collections"
	Reviews     Tag = "reviews"
	Team        Tag = "team"
	Franchise   Tag = "franchise"
	Publisher   Tag = "publisher"
	Media       Tag = "media"
	News        Tag = "news"
	FAQ         Tag = "faq"
	Messages    Tag = "messages"
	Downloads   Tag = "downloads"
	Unknown     Tag = "unknown"
)

// 站点段名 -> 标签。空段（首页）单独处理。
var sections = map[string]Tag{
	"anime":       Anime,
	"characters":  Characters,
	"people":      People,
	"catalog":     Catalog,
	"user":        User,
	"top-views":   TopViews,
	"collections": Collections,
	"reviews":     Reviews,
	"team":        Team,
	"franchise":   Franchise,
	"publisher":   Publisher,
	"media":       Media,
	"news":        News,
	"faq":         FAQ,
	"messages":    Messages,
	"downloads":   Downloads,
}

// Tags 按固定顺序列出全部标签。
func Tags() []Tag {
	return []Tag{
		Home, Anime, Characters, People, Catalog, User, TopViews, Collections, Reviews,
		Team, Franchise, Publisher, Media, News, FAQ, Messages, Downloads, Unknown,
	}
}

// Path 是按 '/' 切分后的页面路径。
//
// 站点路径形如 /<locale>/<section>/<resource>[/<view>]，
// 因此 section 是第二段、resource 是第三段。
type Path struct {
	Raw      string
	segments []string // 去掉开头空段后的各段（末尾补一个空段，保证越界读取安全）
}

// ParsePath 解析路径。传入完整 URL 时只取 path 部分。
// URL 无法解析（例如非法的百分号转义）时按原文去掉 scheme、host、query 与 fragment。
func ParsePath(p string) Path {
	raw := p
	if u, err := url.Parse(p); err == nil && (u.Scheme != "" || u.Host != "") {
		raw = u.Path
	} else {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			raw = raw[:i]
		}
		raw = stripOrigin(raw)
	}
	segs := strings.Split(raw+"/", "/")
	if len(segs) > 0 && segs[0] == "" {
		segs = segs[1:]
	}
	return Path{Raw: raw, segments: segs}
}

// stripOrigin 去掉 "scheme://host" 或 "//host" 前缀，只留下路径。
func stripOrigin(s string) string {
	rest, ok := "", false
	if i := strings.Index(s, "://"); i > 0 && !strings.Contains(s[:i], "/") {
		rest, ok = s[i+3:], true
	} else if strings.HasPrefix(s, "//") {
		rest, ok = s[2:], true
	}
	if !ok {
		return s
	}
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		return rest[j:]
	}
	return "/"
}

// Segment 返回第 i 段（0 起，不含开头空段）；越界返回空串。
func (p Path) Segment(i int) string {
	if i < 0 || i >= len(p.segments) {
		return ""
	}
	return p.segments[i]
}

// Section 返回第二段（路由名）。
func (p Path) Section() string { return p.Segment(1) }

// Sub 返回第三段（资源标识或哨兵值）。
func (p Path) Sub() string { return p.Segment(2) }

// ResourceID 返回第三段中第一个 '-' 之前的部分（例如 "123-naruto" -> "123"）。
func (p Path) ResourceID() string {
	id, _, _ := strings.Cut(p.Sub(), "-")
	return id
}

// IsWatch 报告路径是否是观看子页面（以 /watch 结尾）。
func (p Path) IsWatch() bool {
	return strings.HasSuffix(p.Raw, "/watch")
}

// Tag 对路径分类。
func (p Path) Tag() Tag {
	s := p.Section()
	if s == "" {
		return Home
	}
	if t, ok := sections[s]; ok {
		return t
	}
	return Unknown
}

// Classify 是纯函数：相同 path 总是得到相同 Tag，且结果总在 Tags() 之内。
func Classify(path string) Tag {
	return ParsePath(path).Tag()
}

// CleanURL 去掉查询串与末尾的 /watch，得到动作链接使用的规范地址。
// 无法解析的输入原样返回去掉查询串后的部分。
func CleanURL(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		base, _, _ := strings.Cut(href, "?")
		return strings.TrimSuffix(base, "/watch")
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Path = strings.TrimSuffix(u.Path, "/watch")
	u.RawPath = strings.TrimSuffix(u.RawPath, "/watch")
	return u.String()
}
