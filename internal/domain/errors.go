package domain

import "errors"

var (
	// ErrBankUnavailable means the question bank is missing, malformed, or empty.
	ErrBankUnavailable = errors.New("question bank unavailable")
	// ErrNoQuestions is returned when a question is requested from an empty bank.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNoActiveSession covers answer events with no matching pending question,
	// including positions that point outside the rendered keyboard.
	ErrNoActiveSession = errors.New("no active quiz session")
	// ErrEmptyBroadcast is returned when the admin supplies no broadcast text.
	ErrEmptyBroadcast = errors.New("broadcast text is empty")
)
