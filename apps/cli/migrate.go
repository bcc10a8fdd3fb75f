package main

import (
	"log"

	"github.com/pressly/goose/v3"

	"github.com/kohkiet/swp-lms/storage/database"
)

var gooseRunFunc = goose.Run // mockable

// migrate runs a goose command against the local sqlite session store.
func (cli *commandLine) migrate(args []string) error {
	db, err := database.OpenSQLite(cli.dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	goose.SetLogger(log.New(cli.out, "", 0))

	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], db, "migrations", arguments...)
}
