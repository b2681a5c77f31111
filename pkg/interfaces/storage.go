package interfaces

import (
	"context"
)

// StoragePort общие операции постоянного хранилища сервиса-владельца
type StoragePort interface {
	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error

	// Close закрывает соединение с хранилищем
	Close() error
}
