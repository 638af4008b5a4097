// Package session drives a single selection round: choose a start position,
// reveal the suggestion, then record the confirmed or reported outcome.
//
//	Idle -> PositionChosen -> SuggestionShown -> Recorded
//	                                  \-> AwaitingFeedback -> Recorded
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/wonderpick/internal/logging"
	"github.com/TobiSchelling/wonderpick/internal/recommend"
	"github.com/TobiSchelling/wonderpick/internal/records"
)

// State is a step of a selection round.
type State int

const (
	Idle State = iota
	PositionChosen
	SuggestionShown
	AwaitingFeedback
	Recorded
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PositionChosen:
		return "position-chosen"
	case SuggestionShown:
		return "suggestion-shown"
	case AwaitingFeedback:
		return "awaiting-feedback"
	case Recorded:
		return "recorded"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition is returned when an action is not allowed in the current state.
var ErrInvalidTransition = errors.New("invalid session transition")

// Observer is notified of every record the session appends.
type Observer func(rec recommend.Record, confirmed bool)

// Session holds one user's round state over a snapshot of the history.
type Session struct {
	ID string

	store    records.Store
	history  []recommend.Record
	observer Observer
	log      zerolog.Logger

	state      State
	start      int
	suggestion *recommend.Result
	recorded   *recommend.Record
}

// New loads the current history from store and returns an idle session.
func New(ctx context.Context, store records.Store) (*Session, error) {
	history, err := store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	id := uuid.NewString()
	return &Session{
		ID:      id,
		store:   store,
		history: history,
		log:     logging.With().Str("session", id).Logger(),
	}, nil
}

// OnRecord registers fn to be called after each successful append.
func (s *Session) OnRecord(fn Observer) {
	s.observer = fn
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Start returns the chosen start position, or 0 when idle.
func (s *Session) Start() int { return s.start }

// HistorySize returns how many records the session currently knows about.
func (s *Session) HistorySize() int { return len(s.history) }

// Suggestion returns the computed recommendation. It is available once a
// position is chosen, but callers should present it only after Reveal.
func (s *Session) Suggestion() *recommend.Result { return s.suggestion }

// Recorded returns the record appended by this round, if any.
func (s *Session) Recorded() *recommend.Record { return s.recorded }

// Choose selects the start position and computes the suggestion. Choosing
// again before feedback replaces the previous choice and hides the suggestion.
func (s *Session) Choose(start int) error {
	if err := s.expect("choose", Idle, PositionChosen, SuggestionShown); err != nil {
		return err
	}
	res, err := recommend.Recommend(s.history, start)
	if err != nil {
		return err
	}
	s.start = start
	s.suggestion = res
	s.state = PositionChosen
	s.log.Debug().
		Int("start", start).
		Int("best", res.BestPosition).
		Int("matches", res.TotalMatches).
		Bool("default", res.IsDefaultSuggestion).
		Msg("suggestion computed")
	return nil
}

// Reveal shows the computed suggestion.
func (s *Session) Reveal() error {
	if err := s.expect("reveal", PositionChosen); err != nil {
		return err
	}
	s.state = SuggestionShown
	return nil
}

// Confirm records that the suggested position was the favorable one.
func (s *Session) Confirm(ctx context.Context) error {
	if err := s.expect("confirm", SuggestionShown); err != nil {
		return err
	}
	return s.record(ctx, recommend.Record{Start: s.start, Result: s.suggestion.BestPosition}, true)
}

// Reject marks the suggestion as wrong; the actual result must follow.
func (s *Session) Reject() error {
	if err := s.expect("reject", SuggestionShown); err != nil {
		return err
	}
	s.state = AwaitingFeedback
	return nil
}

// ReportActual records the position that actually turned out favorable.
func (s *Session) ReportActual(ctx context.Context, result int) error {
	if err := s.expect("report", AwaitingFeedback); err != nil {
		return err
	}
	return s.record(ctx, recommend.Record{Start: s.start, Result: result}, false)
}

// Reset returns the session to Idle, keeping its history.
func (s *Session) Reset() {
	s.state = Idle
	s.start = 0
	s.suggestion = nil
	s.recorded = nil
}

func (s *Session) record(ctx context.Context, rec recommend.Record, confirmed bool) error {
	if err := s.store.Append(ctx, rec); err != nil {
		return fmt.Errorf("recording outcome: %w", err)
	}
	s.history = append(s.history, rec)
	s.recorded = &rec
	s.state = Recorded
	s.log.Info().Int("start", rec.Start).Int("result", rec.Result).Bool("confirmed", confirmed).Msg("outcome recorded")
	if s.observer != nil {
		s.observer(rec, confirmed)
	}
	return nil
}

func (s *Session) expect(action string, allowed ...State) error {
	for _, st := range allowed {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidTransition, action, s.state)
}
