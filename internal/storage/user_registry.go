// ABOUTME: UserRegistry maps operator ids to usernames and roles
// ABOUTME: Registration rejects duplicate usernames; no credentials are stored
package storage

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/harper/chat2db/internal/errs"
	"github.com/harper/chat2db/internal/logger"
	"github.com/harper/chat2db/internal/models"
)

// UserRegistry is the users document
type UserRegistry struct {
	backend Backend
	log     *logger.Logger
	mu      sync.Mutex
}

// NewUserRegistry creates a registry over backend
func NewUserRegistry(backend Backend, log *logger.Logger) *UserRegistry {
	if log == nil {
		log = logger.Nop()
	}
	return &UserRegistry{backend: backend, log: log}
}

// Register adds a user and returns it with a fresh id
func (r *UserRegistry) Register(username, role string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if err := models.ValidateUser(username, role); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid user", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.load()
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return nil, errs.Newf(errs.ErrKindInvalidInput, "username %q already exists", username)
		}
	}

	user := models.User{ID: uuid.New().String(), Username: username, Role: role}
	users[user.ID] = user

	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindPersistence, "failed to encode users", err)
	}
	if err := r.backend.WriteDocument(UsersDocument, data); err != nil {
		return nil, errs.Wrap(errs.ErrKindPersistence, "failed to save users", err)
	}
	return &user, nil
}

// Lookup finds a user by username, case-insensitively
func (r *UserRegistry) Lookup(username string) (*models.User, error) {
	for _, u := range r.List() {
		if strings.EqualFold(u.Username, strings.TrimSpace(username)) {
			u := u
			return &u, nil
		}
	}
	return nil, errs.Newf(errs.ErrKindNotFound, "user %q not found", username)
}

// Get finds a user by id
func (r *UserRegistry) Get(id string) (*models.User, error) {
	u, ok := r.load()[id]
	if !ok {
		return nil, errs.Newf(errs.ErrKindNotFound, "user id %q not found", id)
	}
	return &u, nil
}

// FirstAdmin returns the earliest-named admin, used as the source of
// admin memory in every conversation.
func (r *UserRegistry) FirstAdmin() (*models.User, bool) {
	for _, u := range r.List() {
		if u.IsAdmin() {
			u := u
			return &u, true
		}
	}
	return nil, false
}

// List returns every user sorted by username
func (r *UserRegistry) List() []models.User {
	users := r.load()
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Username) < strings.ToLower(out[j].Username)
	})
	return out
}

// load fails open and fills each User.ID from its map key
func (r *UserRegistry) load() map[string]models.User {
	users := map[string]models.User{}
	data, err := r.backend.ReadDocument(UsersDocument)
	if err != nil {
		r.log.WarnErr("users document unreadable, treating as empty", err)
		return users
	}
	if len(data) == 0 {
		return users
	}
	if err := json.Unmarshal(data, &users); err != nil {
		r.log.WarnErr("users document malformed, treating as empty", err)
		return map[string]models.User{}
	}
	for id, u := range users {
		u.ID = id
		users[id] = u
	}
	return users
}
