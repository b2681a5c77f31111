package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/models"
	"github.com/athebyme/product-composite-platform/pkg/tx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation код ошибки PostgreSQL при нарушении уникальности
const uniqueViolation = "23505"

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS product`,
	`CREATE TABLE IF NOT EXISTS product.products (
		product_id INTEGER PRIMARY KEY,
		name       TEXT        NOT NULL,
		weight     INTEGER     NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// ProductStorage хранилище продуктов в PostgreSQL
type ProductStorage struct {
	pool      *pgxpool.Pool
	txManager tx.TxManager
}

// NewPostgresStorage создает новый экземпляр ProductStorage
func NewPostgresStorage(ctx context.Context, connectionString string, logger interfaces.LoggerPort) (*ProductStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresStorageWithPool(ctx, pool, logger)
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool, logger interfaces.LoggerPort) (*ProductStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &ProductStorage{
		pool:      pool,
		txManager: tx.NewTxManager(pool, logger),
	}, nil
}

// EnsureSchema создает схему и таблицы, если их нет
func (r *ProductStorage) EnsureSchema(ctx context.Context) error {
	return r.txManager.Do(ctx, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)
		for _, stmt := range schemaStatements {
			if _, err := exec.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
		}
		return nil
	})
}

// Close закрывает соединение с БД
func (r *ProductStorage) Close() error {
	r.pool.Close()
	return nil
}

// Ping проверяет соединение с БД
func (r *ProductStorage) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *ProductStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.FromContext(ctx); ok {
		return t
	}
	return r.pool
}

// SaveProduct сохраняет новый продукт.
// Если продукт с таким ID уже есть, возвращает ошибку, совместимую с errors.ErrDuplicateKey
func (r *ProductStorage) SaveProduct(ctx context.Context, product models.Product) error {
	query := `
		INSERT INTO product.products (product_id, name, weight, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.getExecutor(ctx).Exec(ctx, query, product.ProductID, product.Name, product.Weight, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product %d already exists: %w", product.ProductID, apperrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

// GetProduct получает продукт по ID.
// Возвращает nil, nil если продукт не найден
func (r *ProductStorage) GetProduct(ctx context.Context, productID int) (*models.Product, error) {
	query := `
		SELECT product_id, name, weight
		FROM product.products
		WHERE product_id = $1
	`

	var product models.Product
	err := r.getExecutor(ctx).QueryRow(ctx, query, productID).Scan(&product.ProductID, &product.Name, &product.Weight)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// DeleteProduct удаляет продукт. Удаление отсутствующего продукта не является ошибкой
func (r *ProductStorage) DeleteProduct(ctx context.Context, productID int) error {
	if _, err := r.getExecutor(ctx).Exec(ctx, `DELETE FROM product.products WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
