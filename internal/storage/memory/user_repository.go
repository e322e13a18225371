package memory

import (
	"strings"
	"sync"

	"github.com/vladislavdragonenkov/textilestore/internal/domain"
)

type userRepositoryInMemory struct {
	mu      sync.RWMutex
	byEmail map[string]domain.User
}

// NewUserRepository возвращает in-memory репозиторий сотрудников.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{byEmail: make(map[string]domain.User)}
}

func (r *userRepositoryInMemory) Create(user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := r.byEmail[key]; exists {
		return domain.ErrUserExists
	}
	r.byEmail[key] = user
	return nil
}

func (r *userRepositoryInMemory) GetByEmail(email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
