package file

import (
	"encoding/json"
	"log"
	"os"
	"sync"

	"quizgram-bot/internal/domain"
)

// UserRegistry is the durable list of everyone who ever started the quiz,
// backed by a JSON file that is rewritten in full on every insert. The
// in-memory copy stays authoritative for the process lifetime even when a
// flush fails.
type UserRegistry struct {
	path string

	mu    sync.RWMutex
	users []domain.User
	index map[int64]struct{}
}

// NewUserRegistry loads the registry from path. An unreadable or corrupt file
// degrades to an empty registry instead of failing startup.
func NewUserRegistry(path string) *UserRegistry {
	r := &UserRegistry{
		path:  path,
		index: make(map[int64]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("user registry %s unreadable, starting empty: %v", path, err)
		}
		return r
	}

	var users []domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		log.Printf("user registry %s corrupt, starting empty: %v", path, err)
		return r
	}
	r.users = users
	for _, user := range users {
		r.index[user.ID] = struct{}{}
	}
	return r
}

func (r *UserRegistry) Contains(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[id]
	return ok
}

// AddIfAbsent appends the user and flushes the file unless the id is already
// known. The returned bool reports whether an insertion happened; a non-nil
// error means only that the flush failed, the record is still held in memory.
func (r *UserRegistry) AddIfAbsent(user domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[user.ID]; ok {
		return false, nil
	}
	r.users = append(r.users, user)
	r.index[user.ID] = struct{}{}
	return true, r.flushLocked()
}

// ListRecent returns the last n users in insertion order.
func (r *UserRegistry) ListRecent(n int) []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n > len(r.users) {
		n = len(r.users)
	}
	out := make([]domain.User, n)
	copy(out, r.users[len(r.users)-n:])
	return out
}

func (r *UserRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// All returns a copy of every registered user, for broadcast fan-out.
func (r *UserRegistry) All() []domain.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.User, len(r.users))
	copy(out, r.users)
	return out
}

func (r *UserRegistry) flushLocked() error {
	data, err := json.MarshalIndent(r.users, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path, data, 0o644)
}
