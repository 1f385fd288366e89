package api

import (
	"time"

	"github.com/uberfrank/bierephilo/internal/game"
	"github.com/uberfrank/bierephilo/internal/questionbank"
	"github.com/uberfrank/bierephilo/internal/session"
)

type drawButton struct {
	Count   int  `json:"count"`
	Enabled bool `json:"enabled"`
}

// sessionView is what clients render. The mug order stays server side.
type sessionView struct {
	ID                string                 `json:"id"`
	Lang              string                 `json:"lang"`
	Mode              game.Mode              `json:"mode"`
	QuestionCount     game.QuestionCount     `json:"questionCount"`
	SelectedTags      []string               `json:"selectedTags"`
	CustomTagCounts   map[string]int         `json:"customTagCounts"`
	TopicCategory     questionbank.TopicType `json:"topicCategory,omitempty"`
	SelectedTopic     string                 `json:"selectedTopic,omitempty"`
	CanStart          bool                   `json:"canStart"`
	MugSize           int                    `json:"mugSize"`
	CurrentRound      int                    `json:"currentRound"`
	RoundQuestions    []game.Question        `json:"roundQuestions"`
	SelectedDrawCount int                    `json:"selectedDrawCount"`
	DrawButtons       []drawButton           `json:"drawButtons"`
	Complete          bool                   `json:"complete"`
	Stats             game.Stats             `json:"stats"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// gameComplete reports whether a started game has emptied its mug.
func gameComplete(st *game.State) bool {
	return st.TotalRounds() > 0 && st.IsMugEmpty()
}

func newSessionView(s *session.Session) sessionView {
	st := s.State
	topic, _ := st.SelectedTopic()
	buttons := make([]drawButton, 0, game.MaxDrawCount)
	for n := game.MinDrawCount; n <= game.MaxDrawCount; n++ {
		buttons = append(buttons, drawButton{Count: n, Enabled: st.DrawEnabled(n)})
	}
	return sessionView{
		ID:                s.ID.String(),
		Lang:              s.Lang,
		Mode:              st.Mode(),
		QuestionCount:     st.QuestionCount(),
		SelectedTags:      st.SelectedTags(),
		CustomTagCounts:   st.CustomTagCounts(),
		TopicCategory:     st.TopicCategory(),
		SelectedTopic:     topic,
		CanStart:          st.CanStartGame(),
		MugSize:           st.MugSize(),
		CurrentRound:      st.CurrentRound(),
		RoundQuestions:    st.RoundQuestions(),
		SelectedDrawCount: st.SelectedDrawCount(),
		DrawButtons:       buttons,
		Complete:          gameComplete(st),
		Stats:             st.Stats(),
		UpdatedAt:         s.UpdatedAt,
	}
}

type sessionResponse struct {
	Session sessionView `json:"session"`
	Message string      `json:"message,omitempty"`
}
