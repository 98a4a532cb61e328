package route

import (
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want Tag
	}{
		{"", Home},
		{"/", Home},
		{"/ru", Home},
		{"/ru/", Home},
		{"/ru/anime/123-naruto", Anime},
		{"/ru/anime/123-naruto/watch", Anime},
		{"/ru/characters", Characters},
		{"/ru/people/create", People},
		{"/ru/catalog", Catalog},
		{"/ru/user/42", User},
		{"/ru/top-views", TopViews},
		{"/ru/collections/55", Collections},
		{"/ru/reviews/new", Reviews},
		{"/ru/team", Team},
		{"/ru/franchise/7", Franchise},
		{"/ru/publisher/3-aniplex", Publisher},
		{"/ru/media/create", Media},
		{"/ru/news/1", News},
		{"/ru/faq/2", FAQ},
		{"/ru/messages", Messages},
		{"/ru/downloads", Downloads},
		{"/ru/secret-admin/panel", Unknown},
		{"/ru/anime?foo=bar", Anime},
		{"https://anilib.me/ru/team/1-x?q=1", Team},
	}
	for _, c := range cases {
		if got := Classify(c.path); got != c.want {
			t.Fatalf("Classify(%q)=%q，期望 %q", c.path, got, c.want)
		}
	}
}

func TestClassify_TotalAndDeterministic(t *testing.T) {
	known := map[Tag]bool{}
	for _, tg := range Tags() {
		known[tg] = true
	}
	inputs := []string{"", "/", "//", "///x", "/a/b/c/d", "no-leading-slash", "/ru/ANIME", "/ru/%20", "\x00", "/ru/anime/../x"}
	for _, in := range inputs {
		a := Classify(in)
		b := Classify(in)
		if a != b {
			t.Fatalf("Classify(%q) 不确定：%q vs %q", in, a, b)
		}
		if !known[a] {
			t.Fatalf("Classify(%q)=%q 不在封闭集合内", in, a)
		}
	}
}

func TestPath_Segments(t *testing.T) {
	p := ParsePath("/ru/anime/123-naruto/watch")
	if p.Section() != "anime" {
		t.Fatalf("Section=%q", p.Section())
	}
	if p.Sub() != "123-naruto" {
		t.Fatalf("Sub=%q", p.Sub())
	}
	if p.ResourceID() != "123" {
		t.Fatalf("ResourceID=%q", p.ResourceID())
	}
	if !p.IsWatch() {
		t.Fatalf("期望 IsWatch=true")
	}

	p = ParsePath("/ru/team")
	if p.Sub() != "" || p.ResourceID() != "" {
		t.Fatalf("无第三段时应返回空串：sub=%q id=%q", p.Sub(), p.ResourceID())
	}
	if p.IsWatch() {
		t.Fatalf("期望 IsWatch=false")
	}
	if p.Segment(99) != "" || p.Segment(-1) != "" {
		t.Fatalf("越界读取应返回空串")
	}
}

func TestParsePath_UnparsableURLKeepsOnlyPath(t *testing.T) {
	cases := []struct {
		in      string
		tag     Tag
		section string
		sub     string
	}{
		{"https://anilib.me/ru/anime/123-%zz", Anime, "anime", "123-%zz"},
		{"https://anilib.me/ru/anime/123-%zz/watch?episode=%zz#x", Anime, "anime", "123-%zz"},
		{"https://anilib.me/ru/team/%zz", Team, "team", "%zz"},
		{"https://anilib.me", Home, "", ""},
		{"//anilib.me/ru/catalog", Catalog, "catalog", ""},
		{"/ru/user/%zz", User, "user", "%zz"},
	}
	for _, c := range cases {
		p := ParsePath(c.in)
		if got := p.Tag(); got != c.tag {
			t.Fatalf("ParsePath(%q).Tag()=%q，期望 %q", c.in, got, c.tag)
		}
		if p.Section() != c.section || p.Sub() != c.sub {
			t.Fatalf("ParsePath(%q)：section=%q sub=%q，期望 %q %q", c.in, p.Section(), p.Sub(), c.section, c.sub)
		}
	}
	if id := ParsePath("https://anilib.me/ru/anime/123-%zz").ResourceID(); id != "123" {
		t.Fatalf("期望 ResourceID=123，实际 %q", id)
	}
}

func TestCleanURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://anilib.me/ru/anime/123-naruto?episode=1", "https://anilib.me/ru/anime/123-naruto"},
		{"https://anilib.me/ru/anime/123-naruto/watch?episode=1", "https://anilib.me/ru/anime/123-naruto"},
		{"https://anilib.me/ru/team/5", "https://anilib.me/ru/team/5"},
		{"/ru/anime/1/watch", "/ru/anime/1"},
	}
	for _, c := range cases {
		if got := CleanURL(c.in); got != c.want {
			t.Fatalf("CleanURL(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}
