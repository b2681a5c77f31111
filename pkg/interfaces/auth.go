package interfaces

import (
	"context"
)

// Principal данные аутентифицированного клиента
type Principal struct {
	UserID string
	Roles  []string
}

// AuthPort определяет интерфейс для работы с аутентификацией
type AuthPort interface {
	// ValidateToken проверяет токен и возвращает данные клиента
	ValidateToken(ctx context.Context, token string) (*Principal, error)

	// HasRole проверяет наличие роли у клиента
	HasRole(principal *Principal, role string) bool
}
