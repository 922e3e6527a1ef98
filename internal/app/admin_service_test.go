package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"quizgram-bot/internal/app"
	"quizgram-bot/internal/domain"
)

func TestBroadcastCountsPartialFailures(t *testing.T) {
	users := makeUsers(5)
	service := app.NewAdminService(&fakeDirectory{users: users})
	sender := &fakeSender{failFor: map[int64]bool{2: true, 4: true}}

	report, err := service.Broadcast(context.Background(), "привет", sender)
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if report.Sent != 3 || report.Failed != 2 {
		t.Fatalf("expected sent=3 failed=2, got %+v", report)
	}
	if got := sender.attempted(); len(got) != 5 {
		t.Fatalf("expected delivery attempted for all 5 users, got %v", got)
	}
}

func TestBroadcastRejectsBlankText(t *testing.T) {
	service := app.NewAdminService(&fakeDirectory{users: makeUsers(2)})
	sender := &fakeSender{}

	if _, err := service.Broadcast(context.Background(), "   ", sender); !errors.Is(err, domain.ErrEmptyBroadcast) {
		t.Fatalf("expected ErrEmptyBroadcast, got %v", err)
	}
	if len(sender.attempted()) != 0 {
		t.Fatalf("expected no delivery attempts for blank text")
	}
}

func TestDigestListsLastTen(t *testing.T) {
	users := makeUsers(12)
	service := app.NewAdminService(&fakeDirectory{users: users})

	digest := service.Digest()
	if digest.Total != 12 {
		t.Fatalf("expected total 12, got %d", digest.Total)
	}
	if len(digest.Recent) != 10 {
		t.Fatalf("expected 10 recent users, got %d", len(digest.Recent))
	}
	if digest.Recent[0].ID != 3 || digest.Recent[9].ID != 12 {
		t.Fatalf("expected users 3..12 in insertion order, got %v", digest.Recent)
	}
}

func makeUsers(n int) []domain.User {
	users := make([]domain.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, domain.User{ID: int64(i), FirstName: fmt.Sprintf("user%d", i)})
	}
	return users
}

type fakeDirectory struct {
	users []domain.User
}

func (d *fakeDirectory) Count() int { return len(d.users) }

func (d *fakeDirectory) ListRecent(n int) []domain.User {
	if n > len(d.users) {
		n = len(d.users)
	}
	return d.users[len(d.users)-n:]
}

func (d *fakeDirectory) All() []domain.User { return d.users }

type fakeSender struct {
	failFor map[int64]bool

	mu  sync.Mutex
	ids []int64
}

func (s *fakeSender) SendDirect(_ context.Context, userID int64, _ string) error {
	s.mu.Lock()
	s.ids = append(s.ids, userID)
	s.mu.Unlock()
	if s.failFor[userID] {
		return errors.New("bot was blocked by the user")
	}
	return nil
}

func (s *fakeSender) attempted() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.ids...)
}
