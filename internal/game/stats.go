package game

// Stats summarises a session for the completion screen.
type Stats struct {
	TotalRounds int `json:"totalRounds"`
	// QuestionsExplored is the size of the latest round only.
	QuestionsExplored  int `json:"questionsExplored"`
	QuestionsRemaining int `json:"questionsRemaining"`
}

// Stats projects the state into a summary without mutating it.
func (s *State) Stats() Stats {
	return Stats{
		TotalRounds:        s.totalRounds,
		QuestionsExplored:  len(s.roundQuestions),
		QuestionsRemaining: len(s.mug),
	}
}
