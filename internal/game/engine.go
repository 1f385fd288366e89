package game

import (
	"errors"
	"math/rand/v2"
	"time"
)

// ErrCannotStart is returned by Start when the state fails CanStartGame.
var ErrCannotStart = errors.New("game cannot start with the current selection")

// Engine runs pool building and mug sampling. It holds no session data and
// may be shared by every session.
type Engine struct {
	policy CustomPolicy
	seed   uint64
	fixed  bool
}

// NewEngine returns an engine drawing randomness from the clock.
func NewEngine(policy CustomPolicy) *Engine {
	if policy == "" {
		policy = PolicyPerTag
	}
	return &Engine{policy: policy}
}

// NewSeededEngine returns an engine whose every call replays the same random
// sequence. Used for reproducible games and tests.
func NewSeededEngine(policy CustomPolicy, seed uint64) *Engine {
	e := NewEngine(policy)
	e.seed = seed
	e.fixed = true
	return e
}

// Policy returns the custom-mode policy in use.
func (e *Engine) Policy() CustomPolicy { return e.policy }

func (e *Engine) rand() *rand.Rand {
	if e.fixed {
		return rand.New(rand.NewPCG(e.seed, e.seed^0x9e3779b97f4a7c15))
	}
	now := uint64(time.Now().UnixNano())
	return rand.New(rand.NewPCG(now, rand.Uint64()))
}

// BuildPool computes the candidate pool for st without touching it.
func (e *Engine) BuildPool(src Source, st *State) []Question {
	return BuildPool(src, st, e.policy, e.rand())
}

// BuildMug builds the pool, samples the mug into st and returns its size.
func (e *Engine) BuildMug(src Source, st *State) int {
	rng := e.rand()
	pool := BuildPool(src, st, e.policy, rng)
	return st.LoadMug(SampleMug(pool, st.questionCount, rng))
}

// Start checks CanStartGame and then builds the mug.
func (e *Engine) Start(src Source, st *State) (int, error) {
	if !st.CanStartGame() {
		return 0, ErrCannotStart
	}
	return e.BuildMug(src, st), nil
}
