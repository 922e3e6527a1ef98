package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quizgram-bot/internal/domain"
)

// SessionRepository abstracts how per-user sessions are stored (in-memory, Redis-marked, etc).
type SessionRepository interface {
	Put(userID int64, session *Session)
	Get(userID int64) (*Session, bool)
	Delete(userID int64)
}

// QuestionSource provides the current question bank.
type QuestionSource interface {
	Questions(ctx context.Context) ([]domain.Question, error)
}

// QuizService contains the per-user quiz state machine: session start, the
// non-repeating question cycle, option rendering, and answer grading.
type QuizService struct {
	sessions SessionRepository
	bank     QuestionSource

	mu  sync.Mutex // guards rnd
	rnd *rand.Rand
}

func NewQuizService(sessions SessionRepository, bank QuestionSource) *QuizService {
	return &QuizService{
		sessions: sessions,
		bank:     bank,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartSession replaces any previous session for the user with a fresh shuffle
// cycle. A pending timer on the old session is canceled so it can never fire
// into the new one.
func (s *QuizService) StartSession(ctx context.Context, userID int64) error {
	questions, err := s.bank.Questions(ctx)
	if err != nil {
		return err
	}
	if prev, ok := s.sessions.Get(userID); ok {
		prev.cancelPending()
	}
	session := newSession(userID)
	session.order = s.permutation(len(questions))
	s.sessions.Put(userID, session)
	return nil
}

// NextQuestion pops the next bank index for the user and renders the question
// with shuffled options. When the cycle empties it is refilled with a fresh
// permutation, so every question is served exactly once per cycle and cycles
// may repeat indices across each other.
func (s *QuizService) NextQuestion(ctx context.Context, userID int64) (domain.Prompt, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Prompt{}, domain.ErrNoActiveSession
	}
	questions, err := s.bank.Questions(ctx)
	if err != nil {
		return domain.Prompt{}, err
	}
	if len(questions) == 0 {
		return domain.Prompt{}, domain.ErrNoQuestions
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	var idx int
	for {
		if len(session.order) == 0 {
			session.order = s.permutation(len(questions))
		}
		idx = session.order[len(session.order)-1]
		session.order = session.order[:len(session.order)-1]
		if idx < len(questions) {
			break
		}
		// The bank shrank since this cycle started; drop the stale index.
	}

	question := questions[idx]
	options, correctPos := s.renderOptions(question.Options, question.Correct)
	session.current = idx
	session.options = options
	session.correctPos = correctPos

	return domain.Prompt{
		Text:       question.Text,
		Options:    options,
		CorrectPos: correctPos,
	}, nil
}

// GradeAnswer checks the chosen position against the session's stored correct
// position. Positions outside the rendered keyboard come from stale or foreign
// keyboards and are reported the same way as a missing session.
func (s *QuizService) GradeAnswer(ctx context.Context, userID int64, position int) (domain.Review, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Review{}, domain.ErrNoActiveSession
	}
	questions, err := s.bank.Questions(ctx)
	if err != nil {
		return domain.Review{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.current < 0 || session.current >= len(questions) {
		return domain.Review{}, domain.ErrNoActiveSession
	}
	if position < 0 || position >= len(session.options) {
		return domain.Review{}, domain.ErrNoActiveSession
	}

	return domain.Review{
		Correct:      position == session.correctPos,
		QuestionText: questions[session.current].Text,
		CorrectText:  session.options[session.correctPos],
	}, nil
}

// ScheduleNext arms the pacing timer on the user's session. The previous timer,
// if any, is stopped first, so at most one continuation is ever pending per
// session.
func (s *QuizService) ScheduleNext(userID int64, delay time.Duration, fn func()) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return
	}
	session.schedule(delay, fn)
}

// EndSession drops the user's session and cancels its pending timer.
func (s *QuizService) EndSession(userID int64) {
	if session, ok := s.sessions.Get(userID); ok {
		session.cancelPending()
	}
	s.sessions.Delete(userID)
}

func (s *QuizService) permutation(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.rnd.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func (s *QuizService) renderOptions(options []string, correct int) ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ShuffleOptions(s.rnd, options, correct)
}

// ShuffleOptions returns a random permutation of the options together with the
// new position of the option found at correct in the original order. It works
// on (original index, text) pairs, so duplicate texts keep distinct identities.
func ShuffleOptions(rnd *rand.Rand, options []string, correct int) ([]string, int) {
	type indexed struct {
		orig int
		text string
	}
	pairs := make([]indexed, len(options))
	for i, text := range options {
		pairs[i] = indexed{orig: i, text: text}
	}
	for i := len(pairs) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}

	rendered := make([]string, len(pairs))
	correctPos := 0
	for i, pair := range pairs {
		rendered[i] = pair.text
		if pair.orig == correct {
			correctPos = i
		}
	}
	return rendered, correctPos
}

// Session tracks one user's progress through the current shuffle cycle. It
// lives only in process memory and disappears on restart.
type Session struct {
	userID int64

	mu         sync.Mutex
	order      []int    // bank indices not yet served this cycle
	current    int      // bank index of the pending question, -1 when none
	options    []string // options as rendered to the user
	correctPos int      // index into options marking the correct one
	pending    *time.Timer
}

// NewSession is exported for infrastructure layers and their tests.
func NewSession(userID int64) *Session {
	return newSession(userID)
}

func newSession(userID int64) *Session {
	return &Session{userID: userID, current: -1}
}

func (sess *Session) schedule(delay time.Duration, fn func()) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending != nil {
		sess.pending.Stop()
	}
	sess.pending = time.AfterFunc(delay, fn)
}

func (sess *Session) cancelPending() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending != nil {
		sess.pending.Stop()
		sess.pending = nil
	}
}
