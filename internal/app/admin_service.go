package app

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"quizgram-bot/internal/domain"
)

// UserDirectory is the registry view the admin operations need.
type UserDirectory interface {
	Count() int
	ListRecent(n int) []domain.User
	All() []domain.User
}

// DirectSender delivers one message to one user outside of any chat context.
type DirectSender interface {
	SendDirect(ctx context.Context, userID int64, text string) error
}

// digestSize fixes the recent-users window of /usinfo; the total count covers
// the rest of the registry.
const digestSize = 10

// broadcastConcurrency bounds parallel sends so a large fan-out cannot flood
// the bot API.
const broadcastConcurrency = 8

// AdminService implements the admin-only registry operations.
type AdminService struct {
	users UserDirectory
}

func NewAdminService(users UserDirectory) *AdminService {
	return &AdminService{users: users}
}

// Digest returns the registry size and the last registered users in insertion
// order.
func (a *AdminService) Digest() domain.Digest {
	return domain.Digest{
		Total:  a.users.Count(),
		Recent: a.users.ListRecent(digestSize),
	}
}

// Broadcast delivers text to every registered user. Sends are independent: a
// failure for one recipient is counted and never aborts the rest of the batch.
func (a *AdminService) Broadcast(ctx context.Context, text string, sender DirectSender) (domain.BroadcastReport, error) {
	if strings.TrimSpace(text) == "" {
		return domain.BroadcastReport{}, domain.ErrEmptyBroadcast
	}

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(broadcastConcurrency)
	for _, user := range a.users.All() {
		user := user
		g.Go(func() error {
			if err := sender.SendDirect(ctx, user.ID, text); err != nil {
				failed.Add(1)
			} else {
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return domain.BroadcastReport{
		Sent:   int(sent.Load()),
		Failed: int(failed.Load()),
	}, nil
}
