package utils

import (
	"strconv"
	"strings"
	"time"
)

// PostgresParams параметры подключения к PostgreSQL
type PostgresParams struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	PoolSize int
	Timeout  time.Duration
}

// GenerateConnectionString собирает строку подключения в формате key=value для pgxpool
func GenerateConnectionString(p PostgresParams) (string, error) {
	if p.Host == "" {
		return "", ErrStorageEmptyHostName
	}
	if p.Port <= 0 || p.Port > 65535 {
		return "", ErrStorageInvalidPortNumber
	}
	if p.User == "" {
		return "", ErrStorageEmptyUsername
	}
	if p.DBName == "" {
		return "", ErrStorageInvalidDatabaseName
	}
	if p.SSLMode == "" {
		return "", ErrStorageInvalidSslMode
	}
	if p.Timeout < 0 {
		return "", ErrStorageInvalidTimeout
	}
	if p.PoolSize < 0 {
		return "", ErrStorageInvalidPoolSize
	}

	parts := []string{
		"host=" + p.Host,
		"port=" + strconv.Itoa(p.Port),
		"user=" + p.User,
	}
	if p.Password != "" {
		parts = append(parts, "password="+quote(p.Password))
	}
	parts = append(parts, "dbname="+p.DBName, "sslmode="+p.SSLMode)

	if p.Timeout > 0 {
		parts = append(parts, "connect_timeout="+strconv.Itoa(int(p.Timeout.Seconds())))
	}
	if p.PoolSize > 0 {
		parts = append(parts, "pool_max_conns="+strconv.Itoa(p.PoolSize))
	}

	return strings.Join(parts, " "), nil
}

// quote экранирует значение, содержащее пробелы или кавычки
func quote(value string) string {
	if !strings.ContainsAny(value, ` '\`) {
		return value
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(value) + "'"
}
