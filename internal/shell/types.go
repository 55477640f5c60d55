package shell

import (
	"context"
	"net/url"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Layout — обрамление страницы.
type Layout int

const (
	// LayoutSite — навигация сайта сверху.
	LayoutSite Layout = iota
	// LayoutAdmin — шапка панели администратора.
	LayoutAdmin
	// LayoutBare — страница без навигации (вход, регистрация).
	LayoutBare
)

// Page — страница, на которую ведёт маршрут.
type Page string

const (
	PageHome         Page = "home"
	PageAbout        Page = "about"
	PageServices     Page = "services"
	PageSurveys      Page = "surveys"
	PageSurvey       Page = "survey"
	PageCreateSurvey Page = "create-survey"
	PageEditSurvey   Page = "edit-survey"
	PageAdmin        Page = "admin"
	PageLogin        Page = "login"
	PageRegister     Page = "register"
	PageAdminLogin   Page = "admin-login"
)

// Пути
const (
	PathHome  = "/"
	PathLogin = "/login"
	PathAdmin = "/admin"
)

// Названия в шапке.
const (
	SiteBrand  = "SurveySite"
	AdminBrand = "Sirbey"
)

// Route — запись таблицы маршрутов.
type Route struct {
	Pattern string
	Page    Page
	Layout  Layout
	Role    models.Role
}

// routes — таблица маршрутов. Role пустая, если страница открыта всем.
var routes = []Route{
	{Pattern: "/{$}", Page: PageHome, Layout: LayoutSite},
	{Pattern: "/about", Page: PageAbout, Layout: LayoutSite},
	{Pattern: "/services", Page: PageServices, Layout: LayoutSite},
	{Pattern: "/surveys", Page: PageSurveys, Layout: LayoutSite},
	{Pattern: "/survey/{id}", Page: PageSurvey, Layout: LayoutSite},
	{Pattern: "/create-survey", Page: PageCreateSurvey, Layout: LayoutAdmin, Role: models.RoleAdmin},
	{Pattern: "/edit-survey/{id}", Page: PageEditSurvey, Layout: LayoutAdmin, Role: models.RoleAdmin},
	{Pattern: "/admin", Page: PageAdmin, Layout: LayoutAdmin, Role: models.RoleAdmin},
	{Pattern: "/login", Page: PageLogin, Layout: LayoutBare},
	{Pattern: "/register", Page: PageRegister, Layout: LayoutBare},
	{Pattern: "/admin-login", Page: PageAdminLogin, Layout: LayoutBare},
}

// Session — то, что оболочка читает из состояния клиента.
type Session interface {
	Identity(ctx context.Context) (models.Identity, error)
	ActiveShare(ctx context.Context) (*models.ShareSession, error)
}

// Resolution — итог разбора пути: страница, её параметры и путь,
// по которому она в итоге открыта (после перенаправлений).
type Resolution struct {
	Route      Route
	Path       string
	SurveyID   int
	Query      url.Values
	Redirected bool
}

// Link — пункт навигации.
type Link struct {
	Title string
	Path  string
}

// Chrome — что показать вокруг страницы.
type Chrome struct {
	Visible    bool
	Layout     Layout
	Brand      string
	Links      []Link
	Username   string
	ShowLogout bool
	ShowLogin  bool
}
