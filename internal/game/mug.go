package game

import "math/rand/v2"

// Shuffle returns a uniformly permuted copy of qs (Fisher–Yates).
func Shuffle(qs []Question, rng *rand.Rand) []Question {
	out := make([]Question, len(qs))
	copy(out, qs)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// SampleMug shuffles the pool and applies the global question ceiling.
// Asking for more than the pool holds yields the whole pool.
func SampleMug(pool []Question, count QuestionCount, rng *rand.Rand) []Question {
	mug := Shuffle(pool, rng)
	if !count.IsAll() && count.N() < len(mug) {
		mug = mug[:count.N()]
	}
	return mug
}

// LoadMug installs a freshly sampled mug and resets the round state.
// It returns the mug size.
func (s *State) LoadMug(mug []Question) int {
	s.mug = append([]Question{}, mug...)
	s.currentRound = 0
	s.totalRounds = 0
	s.roundQuestions = []Question{}
	s.selectedDrawCount = DefaultDrawCount
	return len(s.mug)
}

// Draw removes up to count questions from the front of the mug and makes them
// the current round. An empty mug or a non-positive count draws nothing and
// leaves the state untouched.
func (s *State) Draw(count int) []Question {
	if len(s.mug) == 0 || count < 1 {
		return []Question{}
	}
	n := min(count, len(s.mug))
	drawn := make([]Question, n)
	copy(drawn, s.mug[:n])
	s.mug = append([]Question{}, s.mug[n:]...)

	s.currentRound++
	s.totalRounds++
	s.roundQuestions = drawn
	return append([]Question{}, drawn...)
}

// IsMugEmpty reports whether nothing is left to draw.
func (s *State) IsMugEmpty() bool {
	return len(s.mug) == 0
}

// DrawEnabled reports whether a draw button for n questions should be active.
func (s *State) DrawEnabled(n int) bool {
	return n >= MinDrawCount && n <= MaxDrawCount && n <= len(s.mug)
}
