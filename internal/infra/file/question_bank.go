package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"quizgram-bot/internal/domain"
)

// LoadQuestionBank reads and validates the JSON question file. Any problem —
// missing file, malformed JSON, empty list, bad record — wraps
// domain.ErrBankUnavailable and is fatal at startup.
func LoadQuestionBank(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBankUnavailable, err)
	}

	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrBankUnavailable, path, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: %s contains no questions", domain.ErrBankUnavailable, path)
	}
	for i, question := range questions {
		if err := validateQuestion(question); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", domain.ErrBankUnavailable, i, err)
		}
	}
	return questions, nil
}

func validateQuestion(q domain.Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return errors.New("empty question text")
	}
	if len(q.Options) < 2 {
		return errors.New("needs at least two options")
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("correct index %d out of range for %d options", q.Correct, len(q.Options))
	}
	return nil
}
