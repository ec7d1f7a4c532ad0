// Command migrate manages the schema of the monitor database.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"telemonitorrent/migrations"
)

type command struct {
	run  func(*sql.DB, string, ...goose.OptionsFunc) error
	help string
}

var commands = map[string]command{
	"up":      {goose.Up, "Migrate to the latest version"},
	"up-one":  {goose.UpByOne, "Migrate one version up"},
	"down":    {goose.Down, "Roll back one version"},
	"status":  {goose.Status, "Show migration status"},
	"version": {goose.Version, "Show current version"},
	"reset":   {goose.Reset, "Roll back all migrations"},
}

func main() {
	dbPath := flag.String("db", defaultDBPath(), "path to sqlite database")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		log.Fatalf("unknown command: %s", flag.Arg(0))
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	if err := cmd.run(db, "."); err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [-db path] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, name := range []string{"up", "up-one", "down", "status", "version", "reset"} {
		fmt.Fprintf(os.Stderr, "  %-11s %s\n", name, commands[name].help)
	}
}

func defaultDBPath() string {
	if v := os.Getenv("DB_PATH"); v != "" {
		return v
	}
	return "./data/monitor.db"
}
