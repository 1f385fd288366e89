package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uberfrank/bierephilo/internal/game"
	"github.com/uberfrank/bierephilo/internal/i18n"
	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/session"
)

const testCatalogFR = `{
  "game": {"randomMode": "Mode aléatoire", "byTopicMode": "Mode par sujet", "customMode": "Mode personnalisé"},
  "topicCategories": {"movement": "Mouvements"},
  "messages": {
    "modeSelected": "sélectionné",
    "gameStarted": "Partie lancée avec",
    "questionsInMug": "questions dans la chope",
    "drew": "Tiré",
    "congratulations": "Bravo ! La chope est vide.",
    "selectAtLeastOneTopic": "Veuillez choisir un sujet",
    "selectAtLeastOneTag": "Veuillez choisir au moins une catégorie",
    "selectMode": "Veuillez choisir un mode",
    "gameEnded": "Partie terminée",
    "sessionNotFound": "Session introuvable",
    "languageNotLoaded": "Langue indisponible"
  },
  "questionsSection": {"question": "question", "questions": "questions", "questionNumber": "Question n°"},
  "stats": {"title": "Bilan"},
  "movements": {"stoicisme": "Stoïcisme"}
}`

// testBank holds 12 questions: 1-6 are ethics, 1-4 stoic, 7-12 about freedom.
func testBank() *questionbank.Bank {
	var qs []questionbank.Question
	for id := 1; id <= 12; id++ {
		q := questionbank.Question{ID: id, Text: fmt.Sprintf("Question %d ?", id)}
		if id <= 6 {
			q.Tags = append(q.Tags, "categorie:ethique")
		} else {
			q.Tags = append(q.Tags, "theme:liberte")
		}
		if id <= 4 {
			q.Tags = append(q.Tags, "mouvement:stoicisme")
		}
		qs = append(qs, q)
	}
	cats := []questionbank.Category{{ID: "ethique", Name: "Éthique"}}
	return questionbank.NewBank("fr", cats, qs)
}

type testEnv struct {
	srv      *httptest.Server
	sessions *session.Manager
}

// failingStore refuses every save while broken is set.
type failingStore struct {
	*session.MemoryStore
	broken atomic.Bool
}

func (f *failingStore) Save(ctx context.Context, s *session.Session) error {
	if f.broken.Load() {
		return errors.New("store unavailable")
	}
	return f.MemoryStore.Save(ctx, s)
}

func newTestEnv(t *testing.T, limiter *RateLimiter) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, session.NewMemoryStore(time.Hour), limiter)
}

func newTestEnvWithStore(t *testing.T, store session.Store, limiter *RateLimiter) *testEnv {
	t.Helper()
	lib := questionbank.NewLibrary()
	lib.Set("fr", testBank())

	cat, err := i18n.Parse([]byte(testCatalogFR), "fr")
	require.NoError(t, err)
	bundle := i18n.NewBundle("fr")
	bundle.Add(cat)

	sessions := session.NewManager(store)
	server := NewServer(lib, bundle, sessions, game.NewSeededEngine(game.PolicyPerTag, 42), Options{
		AllowedOrigins:  []string{"*"},
		DefaultLanguage: "fr",
		Languages:       []string{"fr", "en"},
		RateLimiter:     limiter,
	})
	srv := httptest.NewServer(server.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, sessions: sessions}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

// call performs a request that must answer with status and decodes the body into v.
func (e *testEnv) call(t *testing.T, method, path string, body any, status int, v any) {
	t.Helper()
	resp, data := e.do(t, method, path, body)
	require.Equal(t, status, resp.StatusCode, string(data))
	if v != nil {
		require.NoError(t, json.Unmarshal(data, v), string(data))
	}
}

func (e *testEnv) create(t *testing.T) string {
	t.Helper()
	var got sessionResponse
	e.call(t, http.MethodPost, "/api/sessions", map[string]string{"lang": "fr"}, http.StatusCreated, &got)
	return got.Session.ID
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodPost, "/api/sessions", map[string]string{"lang": "fr"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var got sessionResponse
	require.NoError(t, json.Unmarshal(body, &got))

	_, err := uuid.Parse(got.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, "fr", got.Session.Lang)
	assert.Equal(t, game.ModeUnset, got.Session.Mode)
	assert.False(t, got.Session.CanStart)
	assert.Equal(t, game.DefaultDrawCount, got.Session.SelectedDrawCount)
	require.Len(t, got.Session.DrawButtons, game.MaxDrawCount)
	for _, b := range got.Session.DrawButtons {
		assert.False(t, b.Enabled)
	}

	var langCookieSet bool
	for _, c := range resp.Cookies() {
		if c.Name == langCookie {
			langCookieSet = true
			assert.Equal(t, "fr", c.Value)
		}
	}
	assert.True(t, langCookieSet)
}

func TestCreateSession_Language(t *testing.T) {
	env := newTestEnv(t, nil)

	env.call(t, http.MethodPost, "/api/sessions", map[string]string{"lang": "de"}, http.StatusBadRequest, nil)

	// no body: the cookie picks the language
	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/api/sessions", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: langCookie, Value: "en"})
	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var got sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "en", got.Session.Lang)
}

func TestSession_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	var errResp errorResponse
	env.call(t, http.MethodGet, "/api/sessions/"+uuid.NewString(), nil, http.StatusNotFound, &errResp)
	assert.Equal(t, "Session introuvable", errResp.Error)

	env.call(t, http.MethodGet, "/api/sessions/not-a-uuid", nil, http.StatusBadRequest, nil)
	env.call(t, http.MethodPost, "/api/sessions/"+uuid.NewString()+"/draw", nil, http.StatusNotFound, nil)
}

func TestDeleteSession(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.create(t)

	env.call(t, http.MethodDelete, "/api/sessions/"+id, nil, http.StatusNoContent, nil)
	env.call(t, http.MethodGet, "/api/sessions/"+id, nil, http.StatusNotFound, nil)
	env.call(t, http.MethodDelete, "/api/sessions/"+id, nil, http.StatusNotFound, nil)
}

func TestRandomGameFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.create(t)
	base := "/api/sessions/" + id

	var errResp errorResponse
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusUnprocessableEntity, &errResp)
	assert.Equal(t, "Veuillez choisir un mode", errResp.Error)

	var got sessionResponse
	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "random"}, http.StatusOK, &got)
	assert.Equal(t, "Mode aléatoire sélectionné", got.Message)
	assert.True(t, got.Session.CanStart)

	env.call(t, http.MethodPut, base+"/count", map[string]any{"count": 5}, http.StatusOK, &got)
	assert.Equal(t, game.Limit(5), got.Session.QuestionCount)

	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, &got)
	assert.Equal(t, 5, got.Session.MugSize)
	assert.Equal(t, "Partie lancée avec 5 questions dans la chope", got.Message)
	assert.False(t, got.Session.Complete)

	var drawn drawResponse
	env.call(t, http.MethodPost, base+"/draw", map[string]int{"count": 3}, http.StatusOK, &drawn)
	assert.Len(t, drawn.Drawn, 3)
	assert.Equal(t, "Tiré 3 questions", drawn.Message)
	assert.False(t, drawn.Complete)
	assert.Equal(t, 2, drawn.Session.MugSize)
	assert.Equal(t, 1, drawn.Session.CurrentRound)
	enabled := map[int]bool{}
	for _, b := range drawn.Session.DrawButtons {
		enabled[b.Count] = b.Enabled
	}
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: false, 4: false, 5: false}, enabled)

	env.call(t, http.MethodPost, base+"/draw", nil, http.StatusOK, &drawn)
	assert.Len(t, drawn.Drawn, 2)
	assert.Equal(t, "Tiré 2 questions", drawn.Message)
	assert.True(t, drawn.Complete)
	assert.True(t, drawn.Session.Complete)

	env.call(t, http.MethodPost, base+"/draw", nil, http.StatusOK, &drawn)
	assert.Empty(t, drawn.Drawn)
	assert.True(t, drawn.Complete)
	assert.Equal(t, "Bravo ! La chope est vide.", drawn.Message)
	assert.Equal(t, 2, drawn.Session.Stats.TotalRounds)

	// drawing from the empty mug leaves the draw count alone
	env.call(t, http.MethodPost, base+"/draw", map[string]int{"count": 1}, http.StatusOK, &drawn)
	assert.True(t, drawn.Complete)
	assert.Equal(t, 3, drawn.Session.SelectedDrawCount)

	var stats statsResponse
	env.call(t, http.MethodGet, base+"/stats", nil, http.StatusOK, &stats)
	assert.Equal(t, game.Stats{TotalRounds: 2, QuestionsExplored: 2, QuestionsRemaining: 0}, stats.Stats)
	assert.True(t, stats.Complete)

	resp, body := env.do(t, http.MethodGet, base+"/report.pdf", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	env.call(t, http.MethodPost, base+"/reset", nil, http.StatusOK, &got)
	assert.Equal(t, "Partie terminée", got.Message)
	assert.Equal(t, game.ModeUnset, got.Session.Mode)
	assert.Zero(t, got.Session.Stats.TotalRounds)
}

func TestDrawSingular(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "random"}, http.StatusOK, nil)
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, nil)

	var drawn drawResponse
	env.call(t, http.MethodPost, base+"/draw", map[string]int{"count": 1}, http.StatusOK, &drawn)
	assert.Equal(t, "Tiré 1 question", drawn.Message)
	assert.Equal(t, 1, drawn.Session.SelectedDrawCount)
	assert.Equal(t, 11, drawn.Session.MugSize)
}

func TestDrawBeforeStart(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	var drawn drawResponse
	env.call(t, http.MethodPost, base+"/draw", map[string]int{"count": 1}, http.StatusOK, &drawn)
	assert.Empty(t, drawn.Drawn)
	assert.False(t, drawn.Complete)
	assert.False(t, drawn.Session.Complete)
	assert.Empty(t, drawn.Message)
	assert.Equal(t, game.DefaultDrawCount, drawn.Session.SelectedDrawCount)
	assert.Zero(t, drawn.Session.CurrentRound)
}

func TestEventsWaitForSave(t *testing.T) {
	store := &failingStore{MemoryStore: session.NewMemoryStore(time.Hour)}
	env := newTestEnvWithStore(t, store, nil)
	id := env.create(t)
	base := "/api/sessions/" + id

	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "random"}, http.StatusOK, nil)
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, nil)

	sid := uuid.MustParse(id)
	ch := env.sessions.Broadcaster(sid).Subscribe()
	defer env.sessions.Release(sid, ch)

	store.broken.Store(true)
	env.call(t, http.MethodPost, base+"/draw", nil, http.StatusInternalServerError, nil)
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusInternalServerError, nil)
	env.call(t, http.MethodPost, base+"/reset", nil, http.StatusInternalServerError, nil)
	select {
	case e := <-ch:
		t.Fatalf("unexpected %q event for an unsaved change", e.Type)
	default:
	}

	store.broken.Store(false)
	var got sessionResponse
	env.call(t, http.MethodGet, base, nil, http.StatusOK, &got)
	assert.Zero(t, got.Session.CurrentRound)
	assert.Equal(t, 12, got.Session.MugSize)

	env.call(t, http.MethodPost, base+"/draw", nil, http.StatusOK, nil)
	select {
	case e := <-ch:
		assert.Equal(t, session.EventRound, e.Type)
	default:
		t.Fatal("no round event after a saved draw")
	}
}

func TestDrawCountValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	for _, n := range []int{0, 6, -1} {
		env.call(t, http.MethodPut, base+"/draw-count", map[string]int{"count": n}, http.StatusBadRequest, nil)
		env.call(t, http.MethodPost, base+"/draw", map[string]int{"count": n}, http.StatusBadRequest, nil)
	}
	env.call(t, http.MethodPut, base+"/draw-count", map[string]any{}, http.StatusBadRequest, nil)

	var got sessionResponse
	env.call(t, http.MethodPut, base+"/draw-count", map[string]int{"count": 4}, http.StatusOK, &got)
	assert.Equal(t, 4, got.Session.SelectedDrawCount)
}

func TestModeAndCountValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "bogus"}, http.StatusBadRequest, nil)
	env.call(t, http.MethodPut, base+"/count", map[string]any{"count": 0}, http.StatusBadRequest, nil)
	env.call(t, http.MethodPut, base+"/count", map[string]any{"count": "many"}, http.StatusBadRequest, nil)
	env.call(t, http.MethodPut, base+"/count", map[string]any{}, http.StatusBadRequest, nil)

	var got sessionResponse
	env.call(t, http.MethodPut, base+"/count", map[string]any{"count": "all"}, http.StatusOK, &got)
	assert.True(t, got.Session.QuestionCount.IsAll())
}

func TestByTopicFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	var got sessionResponse
	env.call(t, http.MethodPut, base+"/count", map[string]any{"count": 2}, http.StatusOK, nil)
	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "by-topic"}, http.StatusOK, &got)
	assert.True(t, got.Session.QuestionCount.IsAll(), "by-topic plays every matching question")
	assert.Equal(t, "Mode par sujet sélectionné", got.Message)

	var errResp errorResponse
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusUnprocessableEntity, &errResp)
	assert.Equal(t, "Veuillez choisir un sujet", errResp.Error)

	env.call(t, http.MethodPut, base+"/topic", map[string]string{"type": "colour", "topic": "x"}, http.StatusBadRequest, nil)
	env.call(t, http.MethodPut, base+"/topic", map[string]string{"topic": "stoicisme"}, http.StatusBadRequest, nil)
	env.call(t, http.MethodPut, base+"/topic", map[string]string{"type": "movement", "topic": "stoicisme"}, http.StatusOK, &got)
	assert.Equal(t, questionbank.TopicMovement, got.Session.TopicCategory)
	assert.Equal(t, "stoicisme", got.Session.SelectedTopic)

	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, &got)
	assert.Equal(t, 4, got.Session.MugSize)

	// clearing the topic blocks the next start again
	env.call(t, http.MethodPut, base+"/topic", map[string]string{"topic": ""}, http.StatusOK, &got)
	assert.False(t, got.Session.CanStart)
}

func TestCustomFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	var got sessionResponse
	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "custom"}, http.StatusOK, &got)
	assert.Equal(t, "Mode personnalisé sélectionné", got.Message)

	var errResp errorResponse
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusUnprocessableEntity, &errResp)
	assert.Equal(t, "Veuillez choisir au moins une catégorie", errResp.Error)

	env.call(t, http.MethodPost, base+"/tags", map[string]any{"tag": "ethique"}, http.StatusBadRequest, nil)

	env.call(t, http.MethodPost, base+"/tags", map[string]any{"tag": "categorie:ethique"}, http.StatusOK, &got)
	assert.Equal(t, []string{"categorie:ethique"}, got.Session.SelectedTags)
	assert.Equal(t, 5, got.Session.CustomTagCounts["categorie:ethique"], "defaults to min(5, matches)")

	env.call(t, http.MethodPost, base+"/tags", map[string]any{"tag": "mouvement:stoicisme", "count": 2}, http.StatusOK, &got)
	assert.Equal(t, 2, got.Session.CustomTagCounts["mouvement:stoicisme"])

	env.call(t, http.MethodPut, base+"/tags/mouvement%3Astoicisme/count", map[string]int{"count": 1}, http.StatusOK, &got)
	assert.Equal(t, 1, got.Session.CustomTagCounts["mouvement:stoicisme"])
	env.call(t, http.MethodPut, base+"/tags/theme:liberte/count", map[string]int{"count": 1}, http.StatusBadRequest, nil)
	env.call(t, http.MethodPut, base+"/tags/mouvement:stoicisme/count", map[string]int{"count": -1}, http.StatusBadRequest, nil)

	var pool poolResponse
	env.call(t, http.MethodGet, base+"/pool", nil, http.StatusOK, &pool)
	assert.Equal(t, 6, pool.Available)
	assert.GreaterOrEqual(t, pool.Size, 5)
	assert.LessOrEqual(t, pool.Size, 6)
	assert.True(t, pool.CanStart)

	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, &got)
	assert.GreaterOrEqual(t, got.Session.MugSize, 5)
	assert.LessOrEqual(t, got.Session.MugSize, 6)

	env.call(t, http.MethodDelete, base+"/tags/mouvement:stoicisme", nil, http.StatusOK, &got)
	assert.Equal(t, []string{"categorie:ethique"}, got.Session.SelectedTags)
	assert.NotContains(t, got.Session.CustomTagCounts, "mouvement:stoicisme")
}

func TestByTagsFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/sessions/" + env.create(t)

	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "by-tags"}, http.StatusOK, nil)
	var got sessionResponse
	env.call(t, http.MethodPost, base+"/tags", map[string]any{"tag": "theme:liberte"}, http.StatusOK, &got)
	assert.Empty(t, got.Session.CustomTagCounts, "only custom mode seeds a count")
	env.call(t, http.MethodPost, base+"/tags", map[string]any{"tag": "mouvement:stoicisme"}, http.StatusOK, nil)

	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, &got)
	assert.Equal(t, 10, got.Session.MugSize)
}

func TestUnloadedLanguageGame(t *testing.T) {
	env := newTestEnv(t, nil)
	var created sessionResponse
	env.call(t, http.MethodPost, "/api/sessions", map[string]string{"lang": "en"}, http.StatusCreated, &created)
	base := "/api/sessions/" + created.Session.ID

	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "random"}, http.StatusOK, nil)
	var got sessionResponse
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, &got)
	assert.Zero(t, got.Session.MugSize)

	var drawn drawResponse
	env.call(t, http.MethodPost, base+"/draw", nil, http.StatusOK, &drawn)
	assert.Empty(t, drawn.Drawn)
	assert.False(t, drawn.Complete, "no round was ever played")
}

func TestLibraryEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	var langs languagesResponse
	env.call(t, http.MethodGet, "/api/languages", nil, http.StatusOK, &langs)
	assert.Equal(t, []string{"fr", "en"}, langs.Languages)
	assert.Equal(t, []string{"fr"}, langs.Loaded)
	assert.Equal(t, []string{"fr"}, langs.Translated)
	assert.Equal(t, "fr", langs.Default)

	var cats categoriesResponse
	env.call(t, http.MethodGet, "/api/fr/categories", nil, http.StatusOK, &cats)
	assert.Equal(t, 12, cats.Total)
	require.Len(t, cats.Categories, 1)
	assert.Equal(t, 6, cats.Categories[0].Count)

	var errResp errorResponse
	env.call(t, http.MethodGet, "/api/en/categories", nil, http.StatusNotFound, &errResp)

	var page questionbank.Page
	env.call(t, http.MethodGet, "/api/fr/questions?perPage=5&page=3", nil, http.StatusOK, &page)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 2)

	env.call(t, http.MethodGet, "/api/fr/questions?category=ethique", nil, http.StatusOK, &page)
	assert.Equal(t, 6, page.Total)

	var q questionbank.Question
	env.call(t, http.MethodGet, "/api/fr/questions/7", nil, http.StatusOK, &q)
	assert.Equal(t, "Question 7 ?", q.Text)
	env.call(t, http.MethodGet, "/api/fr/questions/99", nil, http.StatusNotFound, nil)
	env.call(t, http.MethodGet, "/api/fr/questions/abc", nil, http.StatusBadRequest, nil)

	var topics topicsResponse
	env.call(t, http.MethodGet, "/api/fr/topics/movement", nil, http.StatusOK, &topics)
	assert.Equal(t, "Mouvements", topics.Title)
	require.Len(t, topics.Topics, 1)
	assert.Equal(t, "Stoïcisme", topics.Topics[0].Label)
	assert.Equal(t, 4, topics.Topics[0].Count)

	env.call(t, http.MethodGet, "/api/fr/topics/theme", nil, http.StatusOK, &topics)
	require.Len(t, topics.Topics, 1)
	assert.Equal(t, "liberte", topics.Topics[0].Label, "untranslated topics are humanized")
	env.call(t, http.MethodGet, "/api/fr/topics/colour", nil, http.StatusBadRequest, nil)
}

func TestExportQuestions(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, http.MethodGet, "/api/fr/questions/export.xlsx?category=ethique", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "questions-fr.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Questions")
	require.NoError(t, err)
	require.Len(t, rows, 7)
	assert.Equal(t, "Éthique", rows[1][2])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("a"))

	now = now.Add(2 * time.Minute)
	rl.Prune()
	rl.mu.Lock()
	assert.Empty(t, rl.hits)
	rl.mu.Unlock()
}

func TestRateLimiterMiddleware(t *testing.T) {
	env := newTestEnv(t, NewRateLimiter(2, time.Minute))

	env.call(t, http.MethodGet, "/api/languages", nil, http.StatusOK, nil)
	env.call(t, http.MethodGet, "/api/languages", nil, http.StatusOK, nil)
	env.call(t, http.MethodGet, "/api/languages", nil, http.StatusTooManyRequests, nil)

	resp, _ := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventsStream(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.create(t)
	base := "/api/sessions/" + id

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + base + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	type event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	next := func() event {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var e event
		require.NoError(t, conn.ReadJSON(&e))
		return e
	}

	env.call(t, http.MethodPut, base+"/mode", map[string]string{"mode": "random"}, http.StatusOK, nil)
	env.call(t, http.MethodPut, base+"/count", map[string]any{"count": 2}, http.StatusOK, nil)
	env.call(t, http.MethodPost, base+"/start", nil, http.StatusOK, nil)

	e := next()
	assert.Equal(t, session.EventMug, e.Type)
	var mug mugEvent
	require.NoError(t, json.Unmarshal(e.Data, &mug))
	assert.Equal(t, 2, mug.MugSize)

	env.call(t, http.MethodPost, base+"/draw", map[string]int{"count": 2}, http.StatusOK, nil)
	e = next()
	assert.Equal(t, session.EventRound, e.Type)
	var round roundEvent
	require.NoError(t, json.Unmarshal(e.Data, &round))
	assert.Equal(t, 1, round.Round)
	assert.Len(t, round.Questions, 2)
	assert.Zero(t, round.MugSize)

	e = next()
	assert.Equal(t, session.EventComplete, e.Type)

	env.call(t, http.MethodPost, base+"/reset", nil, http.StatusOK, nil)
	assert.Equal(t, session.EventReset, next().Type)

	// deleting the session closes the stream
	env.call(t, http.MethodDelete, base, nil, http.StatusNoContent, nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestEventsStream_UnknownSession(t *testing.T) {
	env := newTestEnv(t, nil)
	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/sessions/" + uuid.NewString() + "/events"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
