package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/uberfrank/bierephilo/internal/game"
	"github.com/uberfrank/bierephilo/internal/i18n"
	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/report"
	"github.com/uberfrank/bierephilo/internal/session"
)

const (
	langCookie       = "lang"
	langCookieMaxAge = 365 * 24 * 60 * 60
)

// defaultTagCount caps the per-tag sample a freshly added custom tag gets.
const defaultTagCount = 5

var modeNameKeys = map[game.Mode]string{
	game.ModeRandom:  "game.randomMode",
	game.ModeByTopic: "game.byTopicMode",
	game.ModeCustom:  "game.customMode",
	game.ModeByTags:  "game.byTagsMode",
}

// SessionHandler is the flow controller: it sequences engine calls for one
// session per request.
type SessionHandler struct {
	server *Server
}

func (h *SessionHandler) RegisterRoutes(r chi.Router, timeout func(http.Handler) http.Handler) {
	r.Route("/sessions", func(r chi.Router) {
		r.With(timeout).Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/events", h.events)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Get("/", h.get)
				r.Delete("/", h.remove)
				r.Post("/reset", h.reset)
				r.Put("/mode", h.setMode)
				r.Put("/count", h.setCount)
				r.Put("/draw-count", h.setDrawCount)
				r.Put("/topic", h.setTopic)
				r.Post("/tags", h.addTag)
				r.Put("/tags/{tag}/count", h.setTagCount)
				r.Delete("/tags/{tag}", h.removeTag)
				r.Get("/pool", h.pool)
				r.Post("/start", h.start)
				r.Post("/draw", h.draw)
				r.Get("/stats", h.stats)
				r.Get("/report.pdf", h.reportPDF)
			})
		})
	})
}

func (h *SessionHandler) engine() *game.Engine { return h.server.engine }

func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid session id")
	}
	return id, nil
}

func tagParam(r *http.Request) (string, error) {
	tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
	if err != nil || !strings.Contains(tag, ":") {
		return "", badRequest("invalid tag")
	}
	return tag, nil
}

// requestLang is the language of a request that has no session yet.
func (h *SessionHandler) requestLang(r *http.Request) string {
	if c, err := r.Cookie(langCookie); err == nil && h.server.supportsLanguage(c.Value) {
		return c.Value
	}
	return h.server.opts.DefaultLanguage
}

// fail maps an error to a response. Messages shown to players are translated.
func (h *SessionHandler) fail(w http.ResponseWriter, r *http.Request, cat *i18n.Catalog, err error) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr.msg)
	case errors.Is(err, session.ErrNotFound):
		if cat == nil {
			cat = h.server.catalog(h.requestLang(r))
		}
		writeError(w, http.StatusNotFound, cat.T("messages.sessionNotFound"))
	default:
		logError(r, "session", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// outbox holds the events raised by a mutation until the session is saved.
type outbox []session.Event

func (o *outbox) add(e session.Event) { *o = append(*o, e) }

// publish sends the events once the mutation that raised them is stored.
func (h *SessionHandler) publish(id uuid.UUID, events outbox) {
	for _, e := range events {
		h.server.sessions.Publish(id, e)
	}
}

// mutate runs fn on the session under its lock and answers with the new view.
// fn returns the player notification, if any. Events fn adds to out reach
// viewers only when the session was saved.
func (h *SessionHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(s *session.Session, cat *i18n.Catalog, out *outbox) (string, error)) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	var (
		message string
		cat     *i18n.Catalog
		events  outbox
	)
	s, err := h.server.sessions.Update(r.Context(), id, func(s *session.Session) error {
		cat = h.server.catalog(s.Lang)
		events = nil
		m, err := fn(s, cat, &events)
		message = m
		return err
	})
	if err != nil {
		h.fail(w, r, cat, err)
		return
	}
	h.publish(s.ID, events)
	writeJSON(w, http.StatusOK, sessionResponse{Session: newSessionView(s), Message: message})
}

func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return nil, false
	}
	s, err := h.server.sessions.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, nil, err)
		return nil, false
	}
	return s, true
}

type createRequest struct {
	Lang string `json:"lang"`
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	lang := strings.TrimSpace(req.Lang)
	if lang == "" {
		lang = h.requestLang(r)
	}
	if !h.server.supportsLanguage(lang) {
		h.fail(w, r, nil, badRequest("unsupported language %q", lang))
		return
	}

	s, err := h.server.sessions.Create(r.Context(), lang)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     langCookie,
		Value:    lang,
		Path:     "/",
		MaxAge:   langCookieMaxAge,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{Session: newSessionView(s)})
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: newSessionView(s)})
}

func (h *SessionHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if err := h.server.sessions.Delete(r.Context(), id); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) reset(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *session.Session, cat *i18n.Catalog, out *outbox) (string, error) {
		inProgress := s.State.TotalRounds() > 0 || !s.State.IsMugEmpty()
		s.State.Reset()
		out.add(session.Event{Type: session.EventReset})
		if inProgress {
			return cat.T("messages.gameEnded"), nil
		}
		return "", nil
	})
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func (h *SessionHandler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	mode, ok := game.ParseMode(req.Mode)
	if !ok {
		h.fail(w, r, nil, badRequest("unknown mode %q", req.Mode))
		return
	}
	h.mutate(w, r, func(s *session.Session, cat *i18n.Catalog, _ *outbox) (string, error) {
		s.State.SetMode(mode)
		// by-topic plays every question of the chosen topic
		if mode == game.ModeByTopic {
			s.State.SetQuestionCount(game.AllQuestions())
		}
		return cat.T(modeNameKeys[mode]) + " " + cat.T("messages.modeSelected"), nil
	})
}

type countRequest struct {
	Count *game.QuestionCount `json:"count"`
}

func (h *SessionHandler) setCount(w http.ResponseWriter, r *http.Request) {
	var req countRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if req.Count == nil {
		h.fail(w, r, nil, badRequest("count is required"))
		return
	}
	h.mutate(w, r, func(s *session.Session, _ *i18n.Catalog, _ *outbox) (string, error) {
		s.State.SetQuestionCount(*req.Count)
		return "", nil
	})
}

type drawCountRequest struct {
	Count *int `json:"count"`
}

func validDrawCount(n *int) error {
	if n == nil {
		return badRequest("count is required")
	}
	if *n < game.MinDrawCount || *n > game.MaxDrawCount {
		return badRequest("draw count must be between %d and %d", game.MinDrawCount, game.MaxDrawCount)
	}
	return nil
}

func (h *SessionHandler) setDrawCount(w http.ResponseWriter, r *http.Request) {
	var req drawCountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if err := validDrawCount(req.Count); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	h.mutate(w, r, func(s *session.Session, _ *i18n.Catalog, _ *outbox) (string, error) {
		s.State.SetSelectedDrawCount(*req.Count)
		return "", nil
	})
}

type topicRequest struct {
	Type  questionbank.TopicType `json:"type"`
	Topic string                 `json:"topic"`
}

func (h *SessionHandler) setTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if req.Type != "" && !req.Type.Valid() {
		h.fail(w, r, nil, badRequest("unknown topic type %q", req.Type))
		return
	}
	h.mutate(w, r, func(s *session.Session, _ *i18n.Catalog, _ *outbox) (string, error) {
		if req.Type != "" {
			s.State.SetTopicCategory(req.Type)
		}
		topic := strings.TrimSpace(req.Topic)
		// a topic only names a tag together with its type
		if topic != "" && !s.State.TopicCategory().Valid() {
			return "", badRequest("topic type is required")
		}
		s.State.SetSelectedTopic(topic)
		return "", nil
	})
}

type tagRequest struct {
	Tag   string `json:"tag"`
	Count *int   `json:"count"`
}

func (h *SessionHandler) addTag(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	tag := strings.TrimSpace(req.Tag)
	if !strings.Contains(tag, ":") {
		h.fail(w, r, nil, badRequest("invalid tag %q", req.Tag))
		return
	}
	if req.Count != nil && *req.Count < 0 {
		h.fail(w, r, nil, badRequest("count must not be negative"))
		return
	}
	h.mutate(w, r, func(s *session.Session, _ *i18n.Catalog, _ *outbox) (string, error) {
		st := s.State
		st.AddSelectedTag(tag)
		switch {
		case req.Count != nil:
			st.SetCustomTagCount(tag, *req.Count)
		case st.Mode() == game.ModeCustom && h.engine().Policy() == game.PolicyPerTag:
			if _, ok := st.CustomTagCount(tag); !ok {
				st.SetCustomTagCount(tag, min(defaultTagCount, h.server.bank(s.Lang).CountTagged(tag)))
			}
		}
		return "", nil
	})
}

type tagCountRequest struct {
	Count *int `json:"count"`
}

func (h *SessionHandler) setTagCount(w http.ResponseWriter, r *http.Request) {
	tag, err := tagParam(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	var req tagCountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if req.Count == nil || *req.Count < 0 {
		h.fail(w, r, nil, badRequest("count must be a non-negative integer"))
		return
	}
	h.mutate(w, r, func(s *session.Session, _ *i18n.Catalog, _ *outbox) (string, error) {
		if !s.State.HasSelectedTag(tag) {
			return "", badRequest("tag %q is not selected", tag)
		}
		s.State.SetCustomTagCount(tag, *req.Count)
		return "", nil
	})
}

func (h *SessionHandler) removeTag(w http.ResponseWriter, r *http.Request) {
	tag, err := tagParam(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}
	h.mutate(w, r, func(s *session.Session, _ *i18n.Catalog, _ *outbox) (string, error) {
		s.State.RemoveSelectedTag(tag)
		s.State.RemoveCustomTagCount(tag)
		return "", nil
	})
}

// poolResponse previews the current selection. Available counts distinct
// questions matching any selected tag.
type poolResponse struct {
	Size      int    `json:"size"`
	Available int    `json:"available"`
	CanStart  bool   `json:"canStart"`
	Label     string `json:"label"`
}

func (h *SessionHandler) pool(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	bank := h.server.bank(s.Lang)
	size := len(h.engine().BuildPool(bank, s.State))
	cat := h.server.catalog(s.Lang)
	writeJSON(w, http.StatusOK, poolResponse{
		Size:      size,
		Available: bank.CountAnyTagged(s.State.SelectedTags()),
		CanStart:  s.State.CanStartGame(),
		Label:     fmt.Sprintf("%d %s", size, cat.T("questionsSection.questions")),
	})
}

// startBlockedKey is the validation message for a state that cannot start.
func startBlockedKey(m game.Mode) string {
	switch m {
	case game.ModeByTopic:
		return "messages.selectAtLeastOneTopic"
	case game.ModeCustom, game.ModeByTags:
		return "messages.selectAtLeastOneTag"
	}
	return "messages.selectMode"
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(s *session.Session, cat *i18n.Catalog, out *outbox) (string, error) {
		size, err := h.engine().Start(h.server.bank(s.Lang), s.State)
		if errors.Is(err, game.ErrCannotStart) {
			return "", &requestError{status: http.StatusUnprocessableEntity, msg: cat.T(startBlockedKey(s.State.Mode()))}
		}
		if err != nil {
			return "", err
		}
		out.add(session.Event{Type: session.EventMug, Data: mugEvent{MugSize: size}})
		return fmt.Sprintf("%s %d %s", cat.T("messages.gameStarted"), size, cat.T("messages.questionsInMug")), nil
	})
}

type mugEvent struct {
	MugSize int `json:"mugSize"`
}

type roundEvent struct {
	Round     int             `json:"round"`
	Questions []game.Question `json:"questions"`
	MugSize   int             `json:"mugSize"`
}

type drawResponse struct {
	sessionResponse
	Drawn    []game.Question `json:"drawn"`
	Complete bool            `json:"complete"`
}

func (h *SessionHandler) draw(w http.ResponseWriter, r *http.Request) {
	var req drawCountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, nil, err)
		return
	}
	if req.Count != nil {
		if err := validDrawCount(req.Count); err != nil {
			h.fail(w, r, nil, err)
			return
		}
	}
	id, err := sessionID(r)
	if err != nil {
		h.fail(w, r, nil, err)
		return
	}

	var (
		resp   drawResponse
		cat    *i18n.Catalog
		events outbox
	)
	s, err := h.server.sessions.Update(r.Context(), id, func(s *session.Session) error {
		cat = h.server.catalog(s.Lang)
		resp = drawResponse{}
		events = nil
		st := s.State
		// an empty mug draws nothing and changes nothing
		if st.IsMugEmpty() {
			resp.Drawn = []game.Question{}
			resp.Complete = gameComplete(st)
			if resp.Complete {
				resp.Message = cat.T("messages.congratulations")
			}
			return nil
		}
		if req.Count != nil {
			st.SetSelectedDrawCount(*req.Count)
		}
		resp.Drawn = st.Draw(st.SelectedDrawCount())
		n := len(resp.Drawn)
		resp.Message = fmt.Sprintf("%s %d %s", cat.T("messages.drew"), n,
			cat.Plural(n, "questionsSection.question", "questionsSection.questions"))
		events.add(session.Event{Type: session.EventRound, Data: roundEvent{
			Round:     st.CurrentRound(),
			Questions: resp.Drawn,
			MugSize:   st.MugSize(),
		}})
		if st.IsMugEmpty() {
			resp.Complete = true
			events.add(session.Event{Type: session.EventComplete, Data: st.Stats()})
		}
		return nil
	})
	if err != nil {
		h.fail(w, r, cat, err)
		return
	}
	h.publish(s.ID, events)
	resp.Session = newSessionView(s)
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	game.Stats
	Complete bool `json:"complete"`
}

func (h *SessionHandler) stats(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{Stats: s.State.Stats(), Complete: gameComplete(s.State)})
}

func (h *SessionHandler) reportPDF(w http.ResponseWriter, r *http.Request) {
	s, ok := h.load(w, r)
	if !ok {
		return
	}
	cat := h.server.catalog(s.Lang)
	modeName := "-"
	if key, ok := modeNameKeys[s.State.Mode()]; ok {
		modeName = cat.T(key)
	}
	pdf, err := report.GenerateSummaryPDF(report.SummaryData{
		SessionID: s.ID.String(),
		Date:      time.Now(),
		ModeName:  modeName,
		Stats:     s.State.Stats(),
		Round:     s.State.RoundQuestions(),
		Labels: report.Labels{
			Title:              cat.T("stats.title"),
			Mode:               cat.T("stats.mode"),
			TotalRounds:        cat.T("stats.totalRounds"),
			QuestionsExplored:  cat.T("stats.questionsExplored"),
			QuestionsRemaining: cat.T("stats.questionsRemaining"),
			LastRound:          cat.T("stats.lastRound"),
			EmptyRound:         cat.T("game.emptyRound"),
			QuestionNumber:     cat.T("questionsSection.questionNumber"),
		},
	})
	if err != nil {
		logError(r, "report pdf", err)
		writeError(w, http.StatusInternalServerError, "failed to generate report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=bierephilo-"+s.ID.String()+".pdf")
	w.Write(pdf)
}
