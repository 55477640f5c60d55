package shell

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// Сколько перенаправлений подряд допускается при разборе пути.
const maxRedirects = 4

// Shell сопоставляет пути страницам и решает, что показать вокруг них.
type Shell struct {
	session Session
	mux     *http.ServeMux
}

// New собирает таблицу маршрутов.
func New(session Session) *Shell {
	mux := http.NewServeMux()

	for _, route := range routes {
		mux.HandleFunc("GET "+route.Pattern, func(w http.ResponseWriter, r *http.Request) {
			m, ok := w.(*match)
			if !ok {
				return
			}

			m.route = route
			m.found = true
			m.id = r.PathValue("id")
		})
	}

	return &Shell{session: session, mux: mux}
}

// Match находит маршрут для пути без перенаправлений.
// Регистр пути не важен.
func (s *Shell) Match(path string) (Route, int, url.Values, bool) {
	u, err := url.Parse(path)
	if err != nil {
		return Route{}, 0, nil, false
	}

	p := strings.ToLower(u.Path)
	if p == "" {
		p = PathHome
	}

	req, err := http.NewRequest(http.MethodGet, p, nil)
	if err != nil {
		return Route{}, 0, nil, false
	}

	m := &match{header: make(http.Header)}
	s.mux.ServeHTTP(m, req)

	if !m.found {
		return Route{}, 0, nil, false
	}

	var id int
	if m.id != "" {
		id, err = strconv.Atoi(m.id)
		if err != nil || id <= 0 {
			return Route{}, 0, nil, false
		}
	}

	return m.route, id, u.Query(), true
}

// Resolve разбирает путь по правилам, по порядку:
// неизвестный путь ведёт на главную; при активной общей ссылке любой
// другой путь ведёт на её опрос; страницы администратора без роли Admin
// ведут на вход.
func (s *Shell) Resolve(ctx context.Context, path string) (*Resolution, error) {
	identity, err := s.session.Identity(ctx)
	if err != nil {
		return nil, err
	}

	active, err := s.session.ActiveShare(ctx)
	if err != nil {
		return nil, err
	}

	redirected := false

	for range maxRedirects {
		route, id, query, ok := s.Match(path)

		var next string

		switch {
		case !ok:
			next = PathHome
		case active != nil && (route.Page != PageSurvey || id != active.SurveyID):
			next = SharedSurveyPath(active.SurveyID, active.Share)
		case route.Role == models.RoleAdmin && !identity.IsAdmin():
			next = PathLogin
		}

		if next == "" {
			return &Resolution{
				Route:      route,
				Path:       path,
				SurveyID:   id,
				Query:      query,
				Redirected: redirected,
			}, nil
		}

		slog.Debug("route redirected", "from", path, "to", next)

		path = next
		redirected = true
	}

	return nil, fmt.Errorf("too many redirects resolving %q", path)
}

// Chrome решает, что показать вокруг страницы маршрута.
// Во время общей ссылки навигация скрыта полностью.
func (s *Shell) Chrome(ctx context.Context, route Route) (Chrome, error) {
	identity, err := s.session.Identity(ctx)
	if err != nil {
		return Chrome{}, err
	}

	active, err := s.session.ActiveShare(ctx)
	if err != nil {
		return Chrome{}, err
	}

	if active != nil || route.Layout == LayoutBare {
		return Chrome{Layout: route.Layout}, nil
	}

	chrome := Chrome{
		Visible: true,
		Layout:  route.Layout,
	}

	if identity.Authenticated() {
		chrome.Username = identity.DisplayName()
		chrome.ShowLogout = true
	} else {
		chrome.ShowLogin = true
	}

	switch route.Layout {
	case LayoutAdmin:
		chrome.Brand = AdminBrand
		if route.Page == PageAdmin {
			chrome.Links = []Link{{Title: "Create Survey", Path: "/create-survey"}}
		} else {
			chrome.Links = []Link{{Title: "Back to Dashboard", Path: PathAdmin}}
		}

	default:
		chrome.Brand = SiteBrand
		chrome.Links = []Link{
			{Title: "Home", Path: "/"},
			{Title: "About", Path: "/about"},
			{Title: "Services", Path: "/services"},
			{Title: "Surveys", Path: "/surveys"},
		}

		if identity.IsAdmin() {
			chrome.Links = append(chrome.Links,
				Link{Title: "Create Survey", Path: "/create-survey"},
				Link{Title: "Admin", Path: PathAdmin},
			)
		}
	}

	return chrome, nil
}

// SharedSurveyPath — путь опроса из общей ссылки.
func SharedSurveyPath(surveyID int, token string) string {
	path := "/survey/" + strconv.Itoa(surveyID)
	if token == "" {
		return path
	}

	return path + "?share=" + url.QueryEscape(token)
}

// match принимает результат сопоставления маршрута из ServeMux.
type match struct {
	header http.Header
	route  Route
	found  bool
	id     string
}

func (m *match) Header() http.Header {
	return m.header
}

func (m *match) Write(b []byte) (int, error) {
	return len(b), nil
}

func (m *match) WriteHeader(int) {}
