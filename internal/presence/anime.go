package presence

import (
	"context"
	"strings"

	"github.com/John-Robertt/alpresence/internal/dom"
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/metadata"
)

// 播放器界面有多个变体，每个值都按顺序尝试多种定位方式。
var (
	dubChain = dom.Chain{
		{Selector: ".menu-item.is-active", Child: ".menu-item__text"},
		{Selector: ".btn.is-plain.is-outline", Child: "strong"},
	}
	episodeChain = dom.Chain{
		{Selector: "[id^='episode'][class*=' '] > span"},
		{Selector: ".btn.is-outline", Index: 6, Child: "span"},
		{Selector: ".btn.is-outline", Index: 7, Child: "span"},
	}
	titleChain    = dom.One("h1")
	altTitleChain = dom.One("h2")
	coverChain    = dom.One(".cover__img")
)

func (a *Assembler) anime(ctx context.Context, c *cycle) (result, error) {
	anime, err := metadata.As[domain.Anime](ctx, a.Fetcher, domain.KindAnime, c.path.ResourceID())
	if err != nil {
		return result{}, err
	}
	if c.in.Settings.Privacy || anime.AgeRestriction.IsAdult() {
		return redacted(), nil
	}
	if c.path.IsWatch() {
		return a.animeWatch(c, anime), nil
	}
	return a.animeDetail(c, anime), nil
}

func (a *Assembler) animeDetail(c *cycle, anime domain.Anime) result {
	f := fields{buttons: c.link(sections[c.tag].button)}

	if anime.Licensed() {
		// 授权作品的页面数据只在 DOM 里；缺任一项就只保留动作链接。
		cover, okCover := c.dom.Src(coverChain)
		title, okTitle := c.dom.Text(titleChain)
		alt, okAlt := c.dom.Text(altTitleChain)
		if okCover && okTitle && okAlt {
			f.details = detailsAnime
			f.state = title + " (" + alt + ")"
			f.largeKey = cover
			f.largeText = title
		}
		return filled(f)
	}

	title := anime.DisplayName()
	f.details = detailsAnime
	f.state = title + " (" + anime.AltName() + ")"
	f.largeKey = anime.Cover.Default
	f.largeText = title
	return filled(f)
}

func (a *Assembler) animeWatch(c *cycle, anime domain.Anime) result {
	if dub, ok := c.dom.Text(dubChain); ok {
		c.sess.LastDub = dub
	}
	if c.sess.LastDub == "" {
		return keep()
	}

	f := fields{
		buttons:   c.link(sections[c.tag].button),
		smallKey:  AssetStop,
		smallText: textPaused,
	}

	var title, cover string
	if anime.Licensed() {
		t, okTitle := c.dom.Text(titleChain)
		cv, okCover := c.dom.Src(coverChain)
		if okTitle && okCover {
			title, cover = t, cv
		}
	} else {
		title, cover = anime.DisplayName(), anime.Cover.Default
	}
	if title != "" {
		if c.in.Settings.TitleAsPresence {
			f.name = title
		} else {
			f.details = title
		}
		episode, _ := c.dom.Text(episodeChain)
		f.state = episodeLabel(episode) + " | " + c.sess.LastDub
		f.largeKey = cover
		f.largeText = title
	}

	video, hasVideo := c.dom.Video()
	if p, ok := c.sess.takePlayback(video, hasVideo); ok {
		if !p.Paused {
			f.smallKey = AssetPlay
			f.smallText = textPlaying
		}
		if start, end, ok := Timestamps(a.now(), p); ok {
			f.windowStart, f.windowEnd, f.hasWindow = start, end, true
		}
	}
	return filled(f)
}

// episodeLabel 只有在文本确实是“эпизод …”时才原样使用，其余情况（电影、读不到）显示“Фильм”。
func episodeLabel(episode string) string {
	if strings.Contains(episode, wordEpisode) {
		return episode
	}
	return wordMovie
}
