package valueobject

import "github.com/ignatzorin/uslugi-backend/internal/pkg/apperror"

type ActorRole string

const (
	RoleClient ActorRole = "client"
	RoleWorker ActorRole = "worker"
	RoleAdmin  ActorRole = "admin"
)

func (r ActorRole) IsValid() bool {
	switch r {
	case RoleClient, RoleWorker, RoleAdmin:
		return true
	}
	return false
}

// NewActorRole отклоняет неизвестные роли на границе вместо того,
// чтобы доверять произвольным строкам из токена.
func NewActorRole(role string) (ActorRole, error) {
	r := ActorRole(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль пользователя")
	}
	return r, nil
}
