package domain

// Question is one multiple-choice entry of the bank. The JSON tags match the
// on-disk question file and the rows stored in Postgres.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Correct int      `json:"correct"` // index into Options
}

// User is a registered bot user. Records are append-only: created on the first
// /start and never updated afterwards.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Joined    string `json:"joined"`
}

// Prompt is a question as rendered to one user: options in display order,
// CorrectPos pointing into that order rather than into the bank record.
type Prompt struct {
	Text       string
	Options    []string
	CorrectPos int
}

// Review is the outcome of grading a single answer.
type Review struct {
	Correct      bool
	QuestionText string
	CorrectText  string
}

// Digest summarizes the registry for the admin.
type Digest struct {
	Total  int
	Recent []User
}

// BroadcastReport counts fan-out outcomes; Sent+Failed equals the number of
// delivery attempts.
type BroadcastReport struct {
	Sent   int
	Failed int
}
