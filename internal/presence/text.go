package presence

import (
	"github.com/John-Robertt/alpresence/internal/domain"
	"github.com/John-Robertt/alpresence/internal/route"
)

// 站点资源（展示端用 URL 作为图片 key）。
const (
	SiteName  = "AnimeLib"
	AssetLogo = "https://cdn.rcd.gg/PreMiD/websites/A/AnimeLib/assets/logo.png"
	AssetPlay = "https://cdn.rcd.gg/PreMiD/resources/play.png"
	AssetStop = "https://cdn.rcd.gg/PreMiD/resources/pause.png"
)

// caption 是 details/state 两行文案。
type caption struct {
	Details string
	State   string
}

var (
	redactedCaption = caption{"Приватный режим", "Вам не следует знать лишнего!"}
	unknownCaption  = caption{"Где-то...", "Не пытайтесь найти!"}
)

const (
	wordEpisode = "эпизод"
	wordMovie   = "Фильм"
	textPaused  = "На паузе"
	textPlaying = "Воспроизводится"
)

// section 描述一个路由的静态部分：
//   - listing：没有第三段时的文案；nil 表示保持默认记录
//   - sentinel/creating：第三段等于 sentinel 时的“新建”文案
//   - static：与第三段无关，总是使用 listing
//   - button：详情页动作链接的文字
type section struct {
	listing  *caption
	sentinel string
	creating caption
	static   bool
	button   string
}

func captionPtr(details, state string) *caption { return &caption{details, state} }

var sections = map[route.Tag]section{
	route.Home: {
		static:  true,
		listing: captionPtr("Главная страница", "Так внимательно изучает..."),
	},
	route.Catalog: {
		static:  true,
		listing: captionPtr("В каталоге", "Что ждёт нас сегодня?"),
	},
	route.TopViews: {
		static:  true,
		listing: captionPtr("В топе по просмотрам", "Любуется популярными аниме"),
	},
	route.Messages: {
		static:  true,
		listing: captionPtr("В личных сообщениях", "С кем-то общается..."),
	},
	route.Downloads: {
		static:  true,
		listing: captionPtr("Страница загрузок", "Просматривает загруженные материалы"),
	},
	route.Unknown: {
		static:  true,
		listing: &unknownCaption,
	},

	route.Anime: {button: "Открыть аниме"},
	route.Characters: {
		listing:  captionPtr("Страница персонажей", "Ищет нового фаворита?"),
		sentinel: "new",
		creating: caption{"Добавляет персонажа", "Очередной аниме персонаж..."},
		button:   "Открыть персонажа",
	},
	route.People: {
		listing:  captionPtr("Страница людей", "Ищет нового фаворита?"),
		sentinel: "create",
		creating: caption{"Добавляет человека", "Какая-то известная личность?"},
		button:   "Открыть человека",
	},
	route.User: {
		listing:  captionPtr("Страница пользователей", "Столько интересных личностей!"),
		sentinel: "notifications",
		creating: caption{"Страница уведомлений", "Что-то новенькое?"},
		button:   "Открыть профиль",
	},
	route.Collections: {
		listing:  captionPtr("Страница коллекций", "Их так много..."),
		sentinel: "new",
		creating: caption{"Создаёт коллекцию", "В ней будет много интересного!"},
		button:   "Открыть коллекцию",
	},
	route.Reviews: {
		listing:  captionPtr("Страница отзывов", "Столько разных мнений!"),
		sentinel: "new",
		creating: caption{"Пишет отзыв", "Излагает свои мысли..."},
		button:   "Открыть отзыв",
	},
	route.Team: {
		listing:  captionPtr("Страница команд", "Они все такие разные!"),
		sentinel: "create",
		creating: caption{"Создаёт свою команду", "Она обязательно будет успешной!"},
		button:   "Открыть команду",
	},
	route.Franchise: {
		listing: captionPtr("Страница франшиз", "Их так много..."),
		button:  "Открыть франшизу",
	},
	route.Publisher: {
		listing:  captionPtr("Страница издателей", "Их так много..."),
		sentinel: "new",
		creating: caption{"Добавляет издательство", "Да что они там издают?"},
		button:   "Открыть издателя",
	},
	route.Media: {
		sentinel: "create",
		creating: caption{"Добавляет тайтл", "Он будет самым интересным!"},
	},
	route.News: {
		listing: captionPtr("На странице новостей", "Ищет, чего бы почитать"),
		button:  "Открыть новость",
	},
	route.FAQ: {
		listing: captionPtr("Страница вопросов и ответов", "Ответ на любой вопрос здесь!"),
		button:  "Открыть страницу",
	},
}

// 详情页的 details 行。
const (
	detailsAnime     = "Страница аниме"
	detailsCharacter = "Страница персонажа"
	detailsPerson    = "Страница человека"
	detailsUser      = "Страница пользователя"
	detailsTeam      = "Страница команды"
	detailsPublisher = "Страница издателя"
	detailsFranchise = "Страница франшизы"
	detailsNews      = "Читает новость"
	detailsFAQ       = "Страница вопросов и ответов"
)

// collectionWords 是收藏夹种类在 “Коллекция по …” 里的与格形式。
var collectionWords = map[domain.CollectionType]string{
	domain.CollectionTitles:     "тайтлам",
	domain.CollectionCharacters: "персонажам",
	domain.CollectionPeople:     "людям",
}
