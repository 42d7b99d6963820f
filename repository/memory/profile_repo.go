package memory

import (
	"context"
	"sync"

	"vibin_matchcore/models"
	"vibin_matchcore/repository"
)

// ProfileRepo is an in-process stand-in for the profile service.
type ProfileRepo struct {
	mu       sync.RWMutex
	profiles map[string]models.UserProfile
	blocks   map[[2]string]bool
}

func NewProfileRepo() *ProfileRepo {
	return &ProfileRepo{
		profiles: map[string]models.UserProfile{},
		blocks:   map[[2]string]bool{},
	}
}

// Save inserts or replaces a profile.
func (r *ProfileRepo) Save(p models.UserProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.UserHandle] = p
}

// Block records that blocker blocked blocked.
func (r *ProfileRepo) Block(blocker, blocked string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[[2]string{blocker, blocked}] = true
}

func (r *ProfileRepo) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProfileRepo) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blocks[[2]string{a, b}] || r.blocks[[2]string{b, a}], nil
}
