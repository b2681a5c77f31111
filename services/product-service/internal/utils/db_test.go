package utils

import (
	"errors"
	"testing"
	"time"
)

func validParams() PostgresParams {
	return PostgresParams{
		Host:     "postgres",
		Port:     5432,
		User:     "user",
		Password: "pwd",
		DBName:   "product-db",
		SSLMode:  "disable",
		PoolSize: 10,
		Timeout:  5 * time.Second,
	}
}

func TestGenerateConnectionString(t *testing.T) {
	got, err := GenerateConnectionString(validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "host=postgres port=5432 user=user password=pwd dbname=product-db sslmode=disable connect_timeout=5 pool_max_conns=10"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestGenerateConnectionStringQuotesPassword(t *testing.T) {
	p := validParams()
	p.Password = "it's secret"
	p.Timeout = 0
	p.PoolSize = 0

	got, err := GenerateConnectionString(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `host=postgres port=5432 user=user password='it\'s secret' dbname=product-db sslmode=disable`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestGenerateConnectionStringValidation(t *testing.T) {
	cases := []struct {
		mutate func(*PostgresParams)
		want   error
	}{
		{func(p *PostgresParams) { p.Host = "" }, ErrStorageEmptyHostName},
		{func(p *PostgresParams) { p.Port = 70000 }, ErrStorageInvalidPortNumber},
		{func(p *PostgresParams) { p.User = "" }, ErrStorageEmptyUsername},
		{func(p *PostgresParams) { p.DBName = "" }, ErrStorageInvalidDatabaseName},
		{func(p *PostgresParams) { p.SSLMode = "" }, ErrStorageInvalidSslMode},
		{func(p *PostgresParams) { p.Timeout = -time.Second }, ErrStorageInvalidTimeout},
		{func(p *PostgresParams) { p.PoolSize = -1 }, ErrStorageInvalidPoolSize},
	}

	for _, c := range cases {
		p := validParams()
		c.mutate(&p)
		if _, err := GenerateConnectionString(p); !errors.Is(err, c.want) {
			t.Fatalf("got %v want %v", err, c.want)
		}
	}
}
