package interfaces

import (
	"context"
	"time"
)

// CachePort определяет интерфейс для работы с системой кэширования
type CachePort interface {
	// Get получает значение из кэша по ключу.
	// Если значение не найдено, возвращает errors.ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение в кэше с указанным сроком действия.
	// Если expiration равно 0, используется срок по умолчанию
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// Delete удаляет значения по ключам
	Delete(ctx context.Context, keys ...string) error

	// DeleteByPattern удаляет все значения, соответствующие шаблону
	DeleteByPattern(ctx context.Context, pattern string) error

	Ping(ctx context.Context) error

	// Close закрывает соединение с системой кэширования
	Close() error
}

// VersionedCachePort кэш с версией ключа.
// Запись по версии не восстанавливает значение, удаленное после чтения версии.
type VersionedCachePort interface {
	CachePort

	// Version возвращает текущую версию, для неизвестного ключа 0
	Version(ctx context.Context, versionKey string) (int64, error)

	// BumpVersion увеличивает версию, все ранее прочитанные версии устаревают
	BumpVersion(ctx context.Context, versionKey string) error

	// SetIfVersion записывает значение, только если версия versionKey все еще равна version.
	// Возвращает false, если запись пропущена.
	SetIfVersion(ctx context.Context, versionKey string, version int64, key string, value []byte, expiration time.Duration) (bool, error)
}
