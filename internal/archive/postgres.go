package archive

import (
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresArchive struct {
	*sqlArchive
}

type PostgresOptions struct {
	MigrationsDir string
}

func NewPostgresArchive(dsn string, opts PostgresOptions) (*PostgresArchive, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	a, err := openSQL(postgresDialect, dsn, opts.MigrationsDir)
	if err != nil {
		return nil, err
	}
	return &PostgresArchive{a}, nil
}
