package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
)

// ProductStorage операции хранилища продуктов
type ProductStorage interface {
	interfaces.StoragePort
	SaveProduct(ctx context.Context, product models.Product) error
	GetProduct(ctx context.Context, productID int) (*models.Product, error)
	DeleteProduct(ctx context.Context, productID int) error
}

// ProductServiceInterface операции сервиса продуктов
type ProductServiceInterface interface {
	models.ProductService
	Health(ctx context.Context) models.Health
}

// ProductService предоставляет бизнес-логику для работы с продуктами
type ProductService struct {
	storage        ProductStorage
	cache          interfaces.VersionedCachePort
	cacheTTL       time.Duration
	serviceAddress string
	logger         interfaces.LoggerPort
}

// NewProductService создает новый экземпляр ProductService.
// cache может быть nil, тогда чтение идет напрямую из хранилища.
func NewProductService(storage ProductStorage, cache interfaces.VersionedCachePort, cacheTTL time.Duration, serviceAddress string, logger interfaces.LoggerPort) *ProductService {
	return &ProductService{
		storage:        storage,
		cache:          cache,
		cacheTTL:       cacheTTL,
		serviceAddress: serviceAddress,
		logger:         logger.WithComponent("product-service"),
	}
}

func cacheKey(productID int) string {
	return fmt.Sprintf("product:%d", productID)
}

func versionKey(productID int) string {
	return fmt.Sprintf("product:version:%d", productID)
}

// CreateProduct создает новый продукт
func (s *ProductService) CreateProduct(ctx context.Context, product models.Product) (models.Product, error) {
	if product.ProductID < 1 {
		return models.Product{}, apperrors.NewInvalidInputError("Invalid productId: %d", product.ProductID)
	}

	if err := s.storage.SaveProduct(ctx, product); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return models.Product{}, &apperrors.InvalidInputError{
				Message: fmt.Sprintf("Duplicate key, Product Id: %d", product.ProductID),
				Err:     err,
			}
		}
		return models.Product{}, fmt.Errorf("failed to create product: %w", err)
	}

	s.invalidate(ctx, product.ProductID)
	s.logger.InfoWithContext(ctx, "Продукт создан", interfaces.LogField{Key: "product_id", Value: product.ProductID})

	product.ServiceAddress = s.serviceAddress
	return product, nil
}

// GetProduct получает продукт по ID
func (s *ProductService) GetProduct(ctx context.Context, productID int) (models.Product, error) {
	if productID < 1 {
		return models.Product{}, apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}

	if product, ok := s.fromCache(ctx, productID); ok {
		product.ServiceAddress = s.serviceAddress
		return product, nil
	}

	// версия читается до хранилища: удаление между чтением и записью в кэш делает запись устаревшей
	version, cacheable := s.cacheVersion(ctx, productID)

	product, err := s.storage.GetProduct(ctx, productID)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return models.Product{}, apperrors.NewNotFoundError("No product found for productId: %d", productID)
	}

	if cacheable {
		s.toCache(ctx, *product, version)
	}

	result := *product
	result.ServiceAddress = s.serviceAddress
	return result, nil
}

// DeleteProduct удаляет продукт. Повторное удаление не является ошибкой
func (s *ProductService) DeleteProduct(ctx context.Context, productID int) error {
	if productID < 1 {
		return apperrors.NewInvalidInputError("Invalid productId: %d", productID)
	}

	if err := s.storage.DeleteProduct(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.invalidate(ctx, productID)

	s.logger.InfoWithContext(ctx, "Продукт удален", interfaces.LogField{Key: "product_id", Value: productID})
	return nil
}

// Health проверяет доступность хранилища и кэша
func (s *ProductService) Health(ctx context.Context) models.Health {
	components := map[string]models.ComponentHealth{
		"postgres": componentHealth(s.storage.Ping(ctx)),
	}
	if s.cache != nil {
		components["redis"] = componentHealth(s.cache.Ping(ctx))
	}

	status := models.StatusUp
	for _, c := range components {
		if c.Status != models.StatusUp {
			status = models.StatusDown
		}
	}
	return models.Health{Status: status, Components: components}
}

func componentHealth(err error) models.ComponentHealth {
	if err != nil {
		return models.ComponentHealth{
			Status:  models.StatusDown,
			Details: map[string]interface{}{"error": err.Error()},
		}
	}
	return models.ComponentHealth{Status: models.StatusUp}
}

// fromCache ошибки кэша не прерывают чтение, данные берутся из хранилища
func (s *ProductService) fromCache(ctx context.Context, productID int) (models.Product, bool) {
	if s.cache == nil {
		return models.Product{}, false
	}

	data, err := s.cache.Get(ctx, cacheKey(productID))
	if err != nil {
		if !errors.Is(err, apperrors.ErrCacheMiss) {
			s.logger.WarnWithContext(ctx, "Ошибка чтения из кэша",
				interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
		}
		return models.Product{}, false
	}

	var product models.Product
	if err := json.Unmarshal(data, &product); err != nil {
		s.logger.WarnWithContext(ctx, "Поврежденная запись в кэше",
			interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
		return models.Product{}, false
	}
	return product, true
}

func (s *ProductService) cacheVersion(ctx context.Context, productID int) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.Version(ctx, versionKey(productID))
	if err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка чтения версии кэша",
			interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
		return 0, false
	}
	return version, true
}

func (s *ProductService) toCache(ctx context.Context, product models.Product, version int64) {
	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	written, err := s.cache.SetIfVersion(ctx, versionKey(product.ProductID), version, cacheKey(product.ProductID), data, s.cacheTTL)
	if err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка записи в кэш",
			interfaces.LogField{Key: "product_id", Value: product.ProductID}, interfaces.Err(err))
		return
	}
	if !written {
		s.logger.DebugWithContext(ctx, "Продукт изменился во время чтения, запись в кэш пропущена",
			interfaces.LogField{Key: "product_id", Value: product.ProductID})
	}
}

// invalidate сначала меняет версию, затем удаляет значение
func (s *ProductService) invalidate(ctx context.Context, productID int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.BumpVersion(ctx, versionKey(productID)); err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка смены версии кэша",
			interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
	}
	if err := s.cache.Delete(ctx, cacheKey(productID)); err != nil {
		s.logger.WarnWithContext(ctx, "Ошибка инвалидации кэша",
			interfaces.LogField{Key: "product_id", Value: productID}, interfaces.Err(err))
	}
}
