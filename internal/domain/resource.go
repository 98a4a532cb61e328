package domain

import "fmt"

// Kind 是元数据资源的种类（对应站点 API 的一个端点）。
type Kind string

const (
	KindAnime      Kind = "anime"
	KindCharacter  Kind = "character"
	KindPerson     Kind = "person"
	KindUser       Kind = "user"
	KindCollection Kind = "collection"
	KindReview     Kind = "review"
	KindTeam       Kind = "team"
	KindPublisher  Kind = "publisher"
)

// Kinds 按固定顺序列出全部资源种类。
func Kinds() []Kind {
	return []Kind{
		KindAnime, KindCharacter, KindPerson, KindUser,
		KindCollection, KindReview, KindTeam, KindPublisher,
	}
}

// ParseKind 校验并解析 Kind。
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("未知资源种类：%q", s)
}

// AdultAgeRestriction 是“仅限成人”年龄限制的 id。
const AdultAgeRestriction = 5

// AgeRestriction 是作品的年龄限制标记。
type AgeRestriction struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// IsAdult 判断是否为成人限制。nil 视为无限制。
func (a *AgeRestriction) IsAdult() bool {
	return a != nil && a.ID == AdultAgeRestriction
}

type Cover struct {
	Default   string `json:"default"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type Avatar struct {
	URL string `json:"url"`
}

// UserRef 是嵌入在其它资源中的用户摘要。
type UserRef struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   Avatar `json:"avatar"`
}

// Toast 非空表示作品为“授权”内容，播放走外部播放器，页面结构与普通作品不同。
type Toast struct {
	Message string `json:"message"`
}

// Resource 是元数据变体的公共接口（tagged union）。
type Resource interface {
	Kind() Kind
}

type Anime struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	RusName        string          `json:"rus_name"`
	EngName        string          `json:"eng_name"`
	SlugURL        string          `json:"slug_url"`
	Cover          Cover           `json:"cover"`
	AgeRestriction *AgeRestriction `json:"ageRestriction"`
	Toast          *Toast          `json:"toast"`
}

func (Anime) Kind() Kind { return KindAnime }

// Licensed 报告作品是否走外部播放器。
func (a Anime) Licensed() bool { return a.Toast != nil }

// DisplayName 优先返回本地化名称，缺失时回退原名。
func (a Anime) DisplayName() string {
	if a.RusName != "" {
		return a.RusName
	}
	return a.Name
}

// AltName 返回英文名，缺失时回退原名。
func (a Anime) AltName() string {
	if a.EngName != "" {
		return a.EngName
	}
	return a.Name
}

type Character struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	RusName string `json:"rus_name"`
	AltName string `json:"alt_name"`
	Cover   Cover  `json:"cover"`
}

func (Character) Kind() Kind { return KindCharacter }

type Person struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	RusName string `json:"rus_name"`
	AltName string `json:"alt_name"`
	Cover   Cover  `json:"cover"`
}

func (Person) Kind() Kind { return KindPerson }

// DisplayName 取本地化名、别名、原名中第一个非空者。
func (p Person) DisplayName() string {
	switch {
	case p.RusName != "":
		return p.RusName
	case p.AltName != "":
		return p.AltName
	default:
		return p.Name
	}
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   Avatar `json:"avatar"`
}

func (User) Kind() Kind { return KindUser }

// CollectionType 是收藏夹内条目的种类。
type CollectionType string

const (
	CollectionTitles     CollectionType = "titles"
	CollectionCharacters CollectionType = "character"
	CollectionPeople     CollectionType = "people"
)

type Collection struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Type  CollectionType `json:"type"`
	Adult bool           `json:"adult"`
	User  UserRef        `json:"user"`
}

func (Collection) Kind() Kind { return KindCollection }

// ReviewedTitle 是评论所针对的作品摘要。
type ReviewedTitle struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	RusName        string          `json:"rus_name"`
	Cover          Cover           `json:"cover"`
	AgeRestriction *AgeRestriction `json:"ageRestriction"`
}

type Review struct {
	ID      int64         `json:"id"`
	Title   string        `json:"title"`
	User    UserRef       `json:"user"`
	Related ReviewedTitle `json:"related"`
}

func (Review) Kind() Kind { return KindReview }

type Team struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	AltName string `json:"alt_name"`
	Cover   Cover  `json:"cover"`
}

func (Team) Kind() Kind { return KindTeam }

// DisplayAltName 返回别名，缺失时回退原名。
func (t Team) DisplayAltName() string {
	if t.AltName != "" {
		return t.AltName
	}
	return t.Name
}

type Publisher struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	RusName string `json:"rus_name"`
	Cover   Cover  `json:"cover"`
}

func (Publisher) Kind() Kind { return KindPublisher }

// DisplayName 优先返回本地化名称，缺失时回退原名。
func (p Publisher) DisplayName() string {
	if p.RusName != "" {
		return p.RusName
	}
	return p.Name
}
