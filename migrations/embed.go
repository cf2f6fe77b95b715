// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
// Each supported SQL dialect has its own directory.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Postgres returns the migrations for the postgres storage backend.
// Pass the result to goose.NewProvider with goose.DialectPostgres.
func Postgres() fs.FS {
	return mustSub("postgres")
}

// SQLite returns the migrations for the sqlite storage backend.
// Pass the result to goose.NewProvider with goose.DialectSQLite3.
func SQLite() fs.FS {
	return mustSub("sqlite")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(files, dir)
	if err != nil {
		panic("migrations: " + err.Error())
	}
	return sub
}
