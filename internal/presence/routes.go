package presence

import (
	"context"
	"strings"

	"github.com/John-Robertt/alpresence/internal/dom"
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/metadata"
)

func (a *Assembler) character(ctx context.Context, c *cycle) (result, error) {
	ch, err := metadata.As[domain.Character](ctx, a.Fetcher, domain.KindCharacter, c.path.ResourceID())
	if err != nil {
		return result{}, err
	}
	return filled(fields{
		details:   detailsCharacter,
		state:     ch.RusName + " (" + ch.Name + ")",
		largeKey:  ch.Cover.Default,
		largeText: ch.RusName,
		smallKey:  AssetLogo,
		buttons:   c.link(sections[c.tag].button),
	}), nil
}

func (a *Assembler) person(ctx context.Context, c *cycle) (result, error) {
	p, err := metadata.As[domain.Person](ctx, a.Fetcher, domain.KindPerson, c.path.ResourceID())
	if err != nil {
		return result{}, err
	}
	name := p.DisplayName()
	return filled(fields{
		details:   detailsPerson,
		state:     name + " (" + p.Name + ")",
		largeKey:  p.Cover.Default,
		largeText: name,
		smallKey:  AssetLogo,
		buttons:   c.link(sections[c.tag].button),
	}), nil
}

func (a *Assembler) user(ctx context.Context, c *cycle) (result, error) {
	// 用户页以完整第三段作为 id。
	u, err := metadata.As[domain.User](ctx, a.Fetcher, domain.KindUser, c.path.Sub())
	if err != nil {
		return result{}, err
	}
	return filled(fields{
		details:   detailsUser,
		state:     u.Username,
		largeKey:  u.Avatar.URL,
		largeText: u.Username,
		smallKey:  AssetLogo,
		buttons:   c.link(sections[c.tag].button),
	}), nil
}

func (a *Assembler) collection(ctx context.Context, c *cycle) (result, error) {
	col, err := metadata.As[domain.Collection](ctx, a.Fetcher, domain.KindCollection, c.path.Sub())
	if err != nil {
		return result{}, err
	}
	if c.in.Settings.Privacy || col.Adult {
		return redacted(), nil
	}

	details := "Коллекция"
	if w, ok := collectionWords[col.Type]; ok {
		details += " по " + w
	}
	return filled(fields{
		details:   details,
		state:     col.Name + " от " + col.User.Username,
		largeKey:  AssetLogo,
		smallKey:  col.User.Avatar.URL,
		smallText: col.User.Username,
		buttons:   c.link(sections[c.tag].button),
	}), nil
}

func (a *Assembler) review(ctx context.Context, c *cycle) (result, error) {
	rv, err := metadata.As[domain.Review](ctx, a.Fetcher, domain.KindReview, c.path.Sub())
	if err != nil {
		return result{}, err
	}
	if c.in.Settings.Privacy || rv.Related.AgeRestriction.IsAdult() {
		return redacted(), nil
	}
	return filled(fields{
		details:   "Отзыв на " + rv.Related.RusName,
		state:     rv.Title + " от " + rv.User.Username,
		largeKey:  rv.Related.Cover.Default,
		largeText: rv.Related.RusName,
		smallKey:  rv.User.Avatar.URL,
		smallText: rv.User.Username,
		buttons:   c.link(sections[c.tag].button),
	}), nil
}

func (a *Assembler) team(ctx context.Context, c *cycle) (result, error) {
	t, err := metadata.As[domain.Team](ctx, a.Fetcher, domain.KindTeam, c.path.ResourceID())
	if err != nil {
		return result{}, err
	}
	return filled(fields{
		details:  detailsTeam,
		state:    t.Name + " (" + t.DisplayAltName() + ")",
		largeKey: t.Cover.Default,
		smallKey: AssetLogo,
		buttons:  c.link(sections[c.tag].button),
	}), nil
}

func (a *Assembler) publisher(ctx context.Context, c *cycle) (result, error) {
	p, err := metadata.As[domain.Publisher](ctx, a.Fetcher, domain.KindPublisher, c.path.ResourceID())
	if err != nil {
		return result{}, err
	}
	return filled(fields{
		details:  detailsPublisher,
		state:    p.DisplayName() + " (" + p.Name + ")",
		largeKey: p.Cover.Default,
		buttons:  c.link(sections[c.tag].button),
	}), nil
}

// 以下路由只依赖 DOM：缺任一必需节点就保持默认记录，不输出残缺文案。

func (a *Assembler) franchise(c *cycle) result {
	name, okName := c.dom.Text(titleChain)
	alt, okAlt := c.dom.Text(altTitleChain)
	if !okName || !okAlt {
		return keep()
	}
	// 副标题形如 “Naruto / ナルト”，只取第一段。
	alt, _, _ = strings.Cut(alt, "/")
	return filled(fields{
		details: detailsFranchise,
		state:   name + " (" + strings.TrimSpace(alt) + ")",
		buttons: c.link(sections[c.tag].button),
	})
}

var (
	newsAvatarChain = dom.Chain{{Selector: ".user-inline", Child: ".avatar.is-rounded"}}
	newsAuthorChain = dom.One(".user-inline__username")
)

func (a *Assembler) news(c *cycle) result {
	avatar, okAvatar := c.dom.Src(newsAvatarChain)
	author, okAuthor := c.dom.Text(newsAuthorChain)
	title, okTitle := c.dom.Text(titleChain)
	if !okAvatar || !okAuthor || !okTitle {
		return keep()
	}
	return filled(fields{
		details:   detailsNews,
		state:     title + " от " + author,
		largeKey:  AssetLogo,
		smallKey:  avatar,
		smallText: author,
		buttons:   c.link(sections[c.tag].button),
	})
}

func (a *Assembler) faq(c *cycle) result {
	title, ok := c.dom.Text(titleChain)
	if !ok {
		return keep()
	}
	return filled(fields{
		details: detailsFAQ,
		state:   title,
		buttons: c.link(sections[c.tag].button),
	})
}
