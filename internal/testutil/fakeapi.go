package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/letsssgooo/surveySite/internal/client"
	"github.com/letsssgooo/surveySite/internal/domain/models"
)

// RecordedRequest — запрос, который получил FakeAPI.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type fakeUser struct {
	password string
	role     models.Role
}

type forcedFailure struct {
	status int
	body   string
}

// FakeAPI — REST API опросов в памяти поверх httptest.Server.
type FakeAPI struct {
	Server *httptest.Server

	mu          sync.Mutex
	users       map[string]fakeUser
	tokens      map[string]string
	surveys     map[int]*models.Survey
	responses   map[int][]models.Response
	answers     map[string]map[int][]models.Answer
	analytics   map[int]*models.Analytics
	shareKeys   map[int]string
	failures    map[string]forcedFailure
	requests    []RecordedRequest
	nextID      int
	now         func() time.Time
	completedOK map[string]bool
}

// NewFakeAPI запускает FakeAPI и закрывает его по окончании теста.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		users:     make(map[string]fakeUser),
		tokens:    make(map[string]string),
		surveys:   make(map[int]*models.Survey),
		responses: make(map[int][]models.Response),
		answers:   make(map[string]map[int][]models.Answer),
		analytics: make(map[int]*models.Analytics),
		shareKeys: make(map[int]string),
		failures:  make(map[string]forcedFailure),
		nextID:    1000,
		now:       func() time.Time { return time.Now().UTC() },
		completedOK: map[string]bool{
			"/api/users/me/completed-surveys": true,
			"/api/surveys/completed":          true,
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", f.handleLogin)
	mux.HandleFunc("POST /api/auth/register", f.handleRegister)
	mux.HandleFunc("GET /api/surveys", f.handleListSurveys)
	mux.HandleFunc("POST /api/surveys", f.handleCreateSurvey)
	mux.HandleFunc("GET /api/surveys/completed", f.handleCompleted)
	mux.HandleFunc("GET /api/users/me/completed-surveys", f.handleCompleted)
	mux.HandleFunc("GET /api/surveys/{id}", f.handleGetSurvey)
	mux.HandleFunc("PUT /api/surveys/{id}", f.handleUpdateSurvey)
	mux.HandleFunc("DELETE /api/surveys/{id}", f.handleDeleteSurvey)
	mux.HandleFunc("POST /api/surveys/{id}/questions", f.handleAddQuestion)
	mux.HandleFunc("GET /api/surveys/{id}/responses", f.handleListResponses)
	mux.HandleFunc("POST /api/surveys/{id}/responses", f.handleSubmit)
	mux.HandleFunc("GET /api/surveys/{id}/responses/user/me/answers", f.handleMyAnswers)
	mux.HandleFunc("DELETE /api/surveyresponses/{id}", f.handleDeleteResponse)
	mux.HandleFunc("GET /api/analytics/{id}", f.handleAnalytics)

	f.Server = httptest.NewServer(f.record(mux))
	t.Cleanup(f.Server.Close)

	return f
}

// URL возвращает адрес сервера.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// Client возвращает HTTP клиента API с токеном из tokens.
func (f *FakeAPI) Client(tokens client.TokenSource) *client.HTTPClient {
	return client.NewHTTPClient(f.URL(), tokens, client.WithHTTPClient(f.Server.Client()))
}

// AddUser регистрирует пользователя и возвращает его токен.
func (f *FakeAPI) AddUser(username, password string, role models.Role) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.users[username] = fakeUser{password: password, role: role}
	token := "tok-" + username
	f.tokens[token] = username

	return token
}

// AddSurvey добавляет опрос (с готовыми id).
func (f *FakeAPI) AddSurvey(s models.Survey) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := s
	f.surveys[s.ID] = &copied
}

// AddResponse добавляет сохранённый ответ.
func (f *FakeAPI) AddResponse(surveyID int, r models.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.SurveyID = surveyID
	f.responses[surveyID] = append(f.responses[surveyID], r)
}

// SetAnswers задаёт ответы пользователя, которые вернёт .../user/me/answers.
func (f *FakeAPI) SetAnswers(username string, surveyID int, answers []models.Answer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.answers[username] == nil {
		f.answers[username] = make(map[int][]models.Answer)
	}
	f.answers[username][surveyID] = answers
}

// SetAnalytics задаёт статистику опроса.
func (f *FakeAPI) SetAnalytics(surveyID int, a models.Analytics) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.analytics[surveyID] = &a
}

// RequireShareKey делает опрос закрытым: без ключа или токена — 403.
func (f *FakeAPI) RequireShareKey(surveyID int, key string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.shareKeys[surveyID] = key
}

// DisableCompletedEndpoint отключает один из адресов списка пройденных опросов (404).
func (f *FakeAPI) DisableCompletedEndpoint(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.completedOK[path] = false
}

// Fail заставляет запрос "METHOD path" отвечать status с телом body.
func (f *FakeAPI) Fail(method, path string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures[method+" "+path] = forcedFailure{status: status, body: body}
}

// Recover отменяет Fail.
func (f *FakeAPI) Recover(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.failures, method+" "+path)
}

// Requests возвращает копию журнала запросов.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]RecordedRequest(nil), f.requests...)
}

// Count возвращает число запросов с данными методом и путём.
func (f *FakeAPI) Count(method, path string) int {
	count := 0
	for _, r := range f.Requests() {
		if r.Method == method && r.Path == path {
			count++
		}
	}

	return count
}

// Last возвращает последний запрос с данными методом и путём.
func (f *FakeAPI) Last(method, path string) (RecordedRequest, bool) {
	requests := f.Requests()
	for i := len(requests) - 1; i >= 0; i-- {
		if requests[i].Method == method && requests[i].Path == path {
			return requests[i], true
		}
	}

	return RecordedRequest{}, false
}

// Responses возвращает сохранённые ответы на опрос.
func (f *FakeAPI) Responses(surveyID int) []models.Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]models.Response(nil), f.responses[surveyID]...)
}

// Survey возвращает опрос по id.
func (f *FakeAPI) Survey(id int) (models.Survey, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.surveys[id]
	if !ok {
		return models.Survey{}, false
	}

	return *s, true
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Header: r.Header.Clone(),
			Body:   body,
		})
		failure, failed := f.failures[r.Method+" "+r.URL.Path]
		f.mu.Unlock()

		if failed {
			http.Error(w, failure.body, failure.status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// caller возвращает имя пользователя по bearer токену.
func (f *FakeAPI) caller(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return "", false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	username, ok := f.tokens[token]

	return username, ok
}

func (f *FakeAPI) isAdmin(r *http.Request) bool {
	username, ok := f.caller(r)
	if !ok {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.users[username].role == models.RoleAdmin
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func (f *FakeAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds client.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	user, ok := f.users[creds.Username]
	f.mu.Unlock()

	if !ok || user.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}

	writeJSON(w, http.StatusOK, client.LoginResult{
		Token:    "tok-" + creds.Username,
		Role:     user.role,
		Username: creds.Username,
	})
}

func (f *FakeAPI) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req client.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	_, exists := f.users[req.Username]
	f.mu.Unlock()

	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Username is already taken."})
		return
	}

	f.AddUser(req.Username, req.Password, req.Role)
	writeJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (f *FakeAPI) handleListSurveys(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	ids := make([]int, 0, len(f.surveys))
	for id := range f.surveys {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	surveys := make([]models.Survey, 0, len(ids))
	for _, id := range ids {
		surveys = append(surveys, *f.surveys[id])
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, surveys)
}

func (f *FakeAPI) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	survey, found := f.surveys[id]
	key, private := f.shareKeys[id]
	f.mu.Unlock()

	if !found {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}

	if private {
		_, authed := f.caller(r)
		if !authed && r.URL.Query().Get("share") != key {
			http.Error(w, "Survey is not public", http.StatusForbidden)
			return
		}
	}

	writeJSON(w, http.StatusOK, survey)
}

func (f *FakeAPI) handleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	if !f.isAdmin(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var draft models.SurveyDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.nextID++
	survey := &models.Survey{
		ID:          f.nextID,
		Title:       draft.Title,
		Description: draft.Description,
		CreatedBy:   draft.CreatedBy,
	}
	for _, q := range draft.Questions {
		f.nextID++
		survey.Questions = append(survey.Questions, questionFromDraft(f.nextID, q))
	}
	f.surveys[survey.ID] = survey
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, survey)
}

func (f *FakeAPI) handleUpdateSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if !f.isAdmin(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var draft models.SurveyDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	survey, found := f.surveys[id]
	if !found {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}

	survey.Title = draft.Title
	survey.Description = draft.Description
	survey.Questions = survey.Questions[:0]
	for _, q := range draft.Questions {
		qid := q.ID
		if qid == 0 {
			f.nextID++
			qid = f.nextID
		}
		survey.Questions = append(survey.Questions, questionFromDraft(qid, q))
	}

	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if !f.isAdmin(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	delete(f.surveys, id)
	delete(f.responses, id)
	f.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if !f.isAdmin(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var draft models.QuestionDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	survey, found := f.surveys[id]
	if !found {
		f.mu.Unlock()
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}
	f.nextID++
	question := questionFromDraft(f.nextID, draft)
	survey.Questions = append(survey.Questions, question)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, question)
}

func (f *FakeAPI) handleListResponses(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if _, authed := f.caller(r); !authed {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, f.Responses(id))
}

func (f *FakeAPI) handleSubmit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var resp models.SurveyResponse
	if err := json.NewDecoder(r.Body).Decode(&resp); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !resp.ConsentGiven {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Consent is required."})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, found := f.surveys[id]; !found {
		http.Error(w, "Survey not found", http.StatusNotFound)
		return
	}

	f.nextID++
	f.responses[id] = append(f.responses[id], models.Response{
		ID:           f.nextID,
		SurveyID:     id,
		Username:     resp.Username,
		SubmittedAt:  models.Timestamp{Time: f.now()},
		ConsentGiven: resp.ConsentGiven,
		Answers:      resp.Answers,
	})

	if f.answers[resp.Username] == nil {
		f.answers[resp.Username] = make(map[int][]models.Answer)
	}
	f.answers[resp.Username][id] = resp.Answers

	writeJSON(w, http.StatusCreated, map[string]int{"id": f.nextID})
}

func (f *FakeAPI) handleMyAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	username, authed := f.caller(r)
	if !authed {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	answers := append([]models.Answer{}, f.answers[username][id]...)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, answers)
}

func (f *FakeAPI) handleCompleted(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	enabled := f.completedOK[r.URL.Path]
	f.mu.Unlock()

	if !enabled {
		http.NotFound(w, r)
		return
	}

	username, authed := f.caller(r)
	if !authed {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	ids := make([]int, 0)
	for id := range f.answers[username] {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	sort.Ints(ids)
	writeJSON(w, http.StatusOK, ids)
}

func (f *FakeAPI) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if !f.isAdmin(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for surveyID, list := range f.responses {
		for i, resp := range list {
			if resp.ID == id {
				f.responses[surveyID] = append(list[:i:i], list[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}

	http.Error(w, "Response not found", http.StatusNotFound)
}

func (f *FakeAPI) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	analytics, found := f.analytics[id]
	f.mu.Unlock()

	if !found {
		http.Error(w, "No analytics", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

func questionFromDraft(id int, q models.QuestionDraft) models.Question {
	question := models.Question{
		ID:           id,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		IsRequired:   q.IsRequired,
	}
	if q.Options != nil {
		question.Options = *q.Options
	}

	return question
}
