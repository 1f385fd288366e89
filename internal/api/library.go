package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/report"
)

// LibraryHandler serves the read-only question browser.
type LibraryHandler struct {
	server *Server
}

func (h *LibraryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/{lang}", func(r chi.Router) {
		r.Get("/categories", h.categories)
		r.Get("/questions", h.questions)
		r.Get("/questions/export.xlsx", h.exportQuestions)
		r.Get("/questions/{qid}", h.question)
		r.Get("/topics/{type}", h.topics)
	})
}

type languagesResponse struct {
	Languages  []string `json:"languages"`
	Loaded     []string `json:"loaded"`
	Translated []string `json:"translated"`
	Default    string   `json:"default"`
}

func (h *LibraryHandler) languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, languagesResponse{
		Languages:  h.server.opts.Languages,
		Loaded:     h.server.library.Languages(),
		Translated: h.server.bundle.Languages(),
		Default:    h.server.opts.DefaultLanguage,
	})
}

// bankFor resolves the {lang} URL parameter, answering 404 when it is not loaded.
func (h *LibraryHandler) bankFor(w http.ResponseWriter, r *http.Request) (*questionbank.Bank, string, bool) {
	lang := chi.URLParam(r, "lang")
	b, err := h.server.library.Lookup(lang)
	if err != nil {
		if errors.Is(err, questionbank.ErrUnknownLanguage) {
			writeError(w, http.StatusNotFound, h.server.catalog(lang).T("messages.languageNotLoaded"))
			return nil, lang, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, lang, false
	}
	return b, lang, true
}

type categoriesResponse struct {
	Total      int                          `json:"total"`
	Categories []questionbank.CategoryCount `json:"categories"`
}

func (h *LibraryHandler) categories(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.bankFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, categoriesResponse{Total: b.Len(), Categories: b.CategoryCounts()})
}

func filterFromQuery(r *http.Request) questionbank.Filter {
	q := r.URL.Query()
	return questionbank.Filter{Category: q.Get("category"), Search: q.Get("q")}
}

func atoiDefault(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func (h *LibraryHandler) questions(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.bankFor(w, r)
	if !ok {
		return
	}
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	perPage := atoiDefault(r.URL.Query().Get("perPage"), questionbank.DefaultPerPage)
	if perPage > 100 {
		perPage = 100
	}
	writeJSON(w, http.StatusOK, questionbank.Paginate(b.Filter(filterFromQuery(r)), page, perPage))
}

func (h *LibraryHandler) question(w http.ResponseWriter, r *http.Request) {
	b, _, ok := h.bankFor(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "qid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	q, found := b.QuestionByID(id)
	if !found {
		writeError(w, http.StatusNotFound, "question not found")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *LibraryHandler) exportQuestions(w http.ResponseWriter, r *http.Request) {
	b, lang, ok := h.bankFor(w, r)
	if !ok {
		return
	}
	categoryName := func(id string) string {
		if c, ok := b.Category(id); ok {
			return c.Name
		}
		return id
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"questions-%s.xlsx\"", lang))
	if err := report.WriteQuestionsXLSX(w, b.Filter(filterFromQuery(r)), categoryName); err != nil {
		logError(r, "export questions", err)
	}
}

type topicEntry struct {
	questionbank.TopicCount
	Label string `json:"label"`
}

type topicsResponse struct {
	Type   questionbank.TopicType `json:"type"`
	Title  string                 `json:"title"`
	Topics []topicEntry           `json:"topics"`
}

func (h *LibraryHandler) topics(w http.ResponseWriter, r *http.Request) {
	b, lang, ok := h.bankFor(w, r)
	if !ok {
		return
	}
	t := questionbank.TopicType(chi.URLParam(r, "type"))
	if !t.Valid() {
		writeError(w, http.StatusBadRequest, "unknown topic type")
		return
	}
	cat := h.server.catalog(lang)
	counts := b.TopicCounts(t)
	out := topicsResponse{Type: t, Title: cat.T("topicCategories." + string(t)), Topics: make([]topicEntry, 0, len(counts))}
	for _, c := range counts {
		label, found := cat.Lookup(t.LabelKey(c.Topic))
		if !found {
			label = questionbank.HumanizeTopic(c.Topic)
		}
		out.Topics = append(out.Topics, topicEntry{TopicCount: c, Label: label})
	}
	writeJSON(w, http.StatusOK, out)
}
