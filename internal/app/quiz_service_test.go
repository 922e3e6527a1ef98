package app_test

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"quizgram-bot/internal/app"
	"quizgram-bot/internal/domain"
	"quizgram-bot/internal/infra/memory"
)

func TestNextQuestionTracksCorrectOption(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "2+2?", Options: []string{"3", "4", "5"}, Correct: 1},
	}))

	if err := service.StartSession(ctx, 1); err != nil {
		t.Fatalf("start session: %v", err)
	}
	prompt, err := service.NextQuestion(ctx, 1)
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if prompt.Text != "2+2?" {
		t.Fatalf("expected question text 2+2?, got %q", prompt.Text)
	}
	if len(prompt.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(prompt.Options))
	}
	seen := map[string]int{}
	for _, option := range prompt.Options {
		seen[option]++
	}
	if seen["3"] != 1 || seen["4"] != 1 || seen["5"] != 1 {
		t.Fatalf("options are not a permutation of the original: %v", prompt.Options)
	}
	if prompt.Options[prompt.CorrectPos] != "4" {
		t.Fatalf("correct position %d points at %q, want 4", prompt.CorrectPos, prompt.Options[prompt.CorrectPos])
	}
}

func TestCycleServesEachQuestionOnce(t *testing.T) {
	ctx := context.Background()
	questions := []domain.Question{
		{Text: "q0", Options: []string{"a", "b"}, Correct: 0},
		{Text: "q1", Options: []string{"a", "b"}, Correct: 0},
		{Text: "q2", Options: []string{"a", "b"}, Correct: 1},
		{Text: "q3", Options: []string{"a", "b"}, Correct: 1},
		{Text: "q4", Options: []string{"a", "b"}, Correct: 0},
	}
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank(questions))

	if err := service.StartSession(ctx, 7); err != nil {
		t.Fatalf("start session: %v", err)
	}

	for cycle := 0; cycle < 3; cycle++ {
		served := map[string]int{}
		for i := 0; i < len(questions); i++ {
			prompt, err := service.NextQuestion(ctx, 7)
			if err != nil {
				t.Fatalf("cycle %d question %d: %v", cycle, i, err)
			}
			served[prompt.Text]++
		}
		for _, question := range questions {
			if served[question.Text] != 1 {
				t.Fatalf("cycle %d served %q %d times: %v", cycle, question.Text, served[question.Text], served)
			}
		}
	}
}

func TestGradeIsPositionalNotTextual(t *testing.T) {
	ctx := context.Background()
	// Both options render the same text; only position can tell them apart.
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "дубль", Options: []string{"да", "да"}, Correct: 0},
	}))

	if err := service.StartSession(ctx, 2); err != nil {
		t.Fatalf("start session: %v", err)
	}
	prompt, err := service.NextQuestion(ctx, 2)
	if err != nil {
		t.Fatalf("next question: %v", err)
	}

	review, err := service.GradeAnswer(ctx, 2, prompt.CorrectPos)
	if err != nil {
		t.Fatalf("grade correct: %v", err)
	}
	if !review.Correct {
		t.Fatalf("expected correct verdict at position %d", prompt.CorrectPos)
	}

	other := (prompt.CorrectPos + 1) % len(prompt.Options)
	review, err = service.GradeAnswer(ctx, 2, other)
	if err != nil {
		t.Fatalf("grade wrong: %v", err)
	}
	if review.Correct {
		t.Fatalf("expected wrong verdict at position %d despite equal text", other)
	}
	if review.CorrectText != "да" || review.QuestionText != "дубль" {
		t.Fatalf("unexpected review: %+v", review)
	}
}

func TestGradeWithoutSession(t *testing.T) {
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "q", Options: []string{"a", "b"}, Correct: 0},
	}))

	if _, err := service.GradeAnswer(context.Background(), 99, 0); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestGradeBeforeFirstQuestion(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "q", Options: []string{"a", "b"}, Correct: 0},
	}))

	if err := service.StartSession(ctx, 3); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := service.GradeAnswer(ctx, 3, 0); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession before first question, got %v", err)
	}
}

func TestGradeOutOfRangePosition(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "q", Options: []string{"a", "b", "c"}, Correct: 2},
	}))

	if err := service.StartSession(ctx, 4); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := service.NextQuestion(ctx, 4); err != nil {
		t.Fatalf("next question: %v", err)
	}
	if _, err := service.GradeAnswer(ctx, 4, 9); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for out-of-range position, got %v", err)
	}
	if _, err := service.GradeAnswer(ctx, 4, -1); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession for negative position, got %v", err)
	}
}

func TestNextQuestionWithEmptyBank(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank(nil))

	if err := service.StartSession(ctx, 5); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := service.NextQuestion(ctx, 5); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
}

func TestStartSessionCancelsPendingTimer(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "q", Options: []string{"a", "b"}, Correct: 0},
	}))

	if err := service.StartSession(ctx, 6); err != nil {
		t.Fatalf("start session: %v", err)
	}
	fired := make(chan struct{}, 1)
	service.ScheduleNext(6, 30*time.Millisecond, func() { fired <- struct{}{} })

	// Restarting the session must stop the continuation of the old one.
	if err := service.StartSession(ctx, 6); err != nil {
		t.Fatalf("restart session: %v", err)
	}

	select {
	case <-fired:
		t.Fatalf("pending continuation fired after session restart")
	case <-time.After(120 * time.Millisecond):
	}
}

func TestScheduleNextFires(t *testing.T) {
	ctx := context.Background()
	service := app.NewQuizService(memory.NewSessionStore(), memory.NewStaticBank([]domain.Question{
		{Text: "q", Options: []string{"a", "b"}, Correct: 0},
	}))

	if err := service.StartSession(ctx, 8); err != nil {
		t.Fatalf("start session: %v", err)
	}
	fired := make(chan struct{}, 1)
	service.ScheduleNext(8, 10*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("scheduled continuation never fired")
	}
}

func TestShuffleOptionsKeepsCorrectIdentity(t *testing.T) {
	options := []string{"a", "b", "c", "d"}
	for seed := int64(0); seed < 50; seed++ {
		rnd := rand.New(rand.NewSource(seed))
		rendered, correctPos := app.ShuffleOptions(rnd, options, 2)
		if len(rendered) != len(options) {
			t.Fatalf("seed %d: lost options: %v", seed, rendered)
		}
		if rendered[correctPos] != "c" {
			t.Fatalf("seed %d: correct position %d holds %q, want c", seed, correctPos, rendered[correctPos])
		}
		seen := map[string]int{}
		for _, option := range rendered {
			seen[option]++
		}
		for _, option := range options {
			if seen[option] != 1 {
				t.Fatalf("seed %d: not a permutation: %v", seed, rendered)
			}
		}
	}
}
