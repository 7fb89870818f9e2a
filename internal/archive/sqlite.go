package archive

import (
	"errors"
	"strings"

	_ "modernc.org/sqlite"
)

type SQLiteArchive struct {
	*sqlArchive
}

type SQLiteOptions struct {
	MigrationsDir string
}

func NewSQLiteArchive(path string, opts SQLiteOptions) (*SQLiteArchive, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	a, err := openSQL(sqliteDialect, path, opts.MigrationsDir)
	if err != nil {
		return nil, err
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	a.db.SetMaxOpenConns(1)
	return &SQLiteArchive{a}, nil
}
