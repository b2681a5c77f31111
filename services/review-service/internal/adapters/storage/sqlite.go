// Package storage хранилище отзывов на SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/athebyme/product-composite-platform/pkg/errors"
	"github.com/athebyme/product-composite-platform/pkg/models"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS reviews (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	review_id  INTEGER NOT NULL,
	author     TEXT    NOT NULL DEFAULT '',
	subject    TEXT    NOT NULL DEFAULT '',
	content    TEXT    NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	UNIQUE (product_id, review_id)
);
CREATE INDEX IF NOT EXISTS reviews_product_id_idx ON reviews (product_id);
`

// ReviewStorage хранит отзывы в SQLite
type ReviewStorage struct {
	db *sql.DB
}

// Open открывает базу по пути path и создает таблицы
func Open(ctx context.Context, path string, maxOpenConns int) (*ReviewStorage, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &ReviewStorage{db: db}, nil
}

// SaveReview сохраняет отзыв.
// Повтор пары (productId, reviewId) возвращает errors.ErrDuplicateKey
func (s *ReviewStorage) SaveReview(ctx context.Context, review models.Review) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reviews (product_id, review_id, author, subject, content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		review.ProductID, review.ReviewID, review.Author, review.Subject, review.Content,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review %d/%d already exists: %w", review.ProductID, review.ReviewID, apperrors.ErrDuplicateKey)
		}
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// FindByProductID возвращает отзывы продукта, упорядоченные по reviewId
func (s *ReviewStorage) FindByProductID(ctx context.Context, productID int) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, review_id, author, subject, content
		 FROM reviews WHERE product_id = ? ORDER BY review_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ProductID, &r.ReviewID, &r.Author, &r.Subject, &r.Content); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reviews: %w", err)
	}
	return reviews, nil
}

// DeleteByProductID удаляет все отзывы продукта
func (s *ReviewStorage) DeleteByProductID(ctx context.Context, productID int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("failed to delete reviews: %w", err)
	}
	return nil
}

func (s *ReviewStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ReviewStorage) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
