// internal/game/types.go
//
// Core type definitions for the movie guessing game.
// Defines:
//   - Status: active / won / lost.
//   - State: everything about a single game (target movie, reveal cursor, guesses left).
//   - Outcome: what a single guess did (correct / incorrect / exhausted).

package game

import (
	"time"

	"github.com/robalobadob/movieguess/apps/go-server/internal/movie"
)

// Status is the coarse lifecycle state of a game.
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
)

// State holds a single game. It is a plain value: operations return a new State
// rather than mutating the one passed in.
type State struct {
	ID               string         `json:"id"`
	Target           movie.Movie    `json:"target"` // chosen at start, never changes
	Category         movie.Category `json:"category"`
	RevealIndex      int            `json:"revealIndex"` // cursor into Target.Backdrops
	GuessesRemaining int            `json:"guessesRemaining"`
	MaxGuesses       int            `json:"maxGuesses"`
	Status           Status         `json:"status"`
	Guesses          []string       `json:"guesses"` // resolved titles, oldest first
	StartedAt        time.Time      `json:"startedAt"`
	FinishedAt       time.Time      `json:"finishedAt"`
}

// Finished reports whether the game accepts no further guesses.
func (s State) Finished() bool { return s.Status != StatusActive }

// GuessesUsed is the number of guesses spent so far.
func (s State) GuessesUsed() int { return s.MaxGuesses - s.GuessesRemaining }

// CurrentBackdrop returns the backdrop path at the reveal cursor, or "" when there is none.
func (s State) CurrentBackdrop() string {
	if s.RevealIndex < 0 || s.RevealIndex >= len(s.Target.Backdrops) {
		return ""
	}
	return s.Target.Backdrops[s.RevealIndex]
}

// OutcomeKind classifies the result of a guess.
type OutcomeKind string

const (
	OutcomeCorrect   OutcomeKind = "correct"
	OutcomeIncorrect OutcomeKind = "incorrect"
	OutcomeExhausted OutcomeKind = "exhausted"
)

// Outcome describes a single applied guess.
//   - Correct:   Guess is the matched candidate (== target).
//   - Incorrect: Guess is the wrong candidate; RevealIndex is the newly revealed backdrop.
//   - Exhausted: Guess is the wrong candidate; Target is the movie the player missed.
type Outcome struct {
	Kind        OutcomeKind    `json:"kind"`
	Guess       movie.Match    `json:"guess"`
	RevealIndex int            `json:"revealIndex"`
	Target      *movie.Summary `json:"target,omitempty"`
}
