package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	usrRepo, closeDB, err := setUpRepository(conf)
	errAndDie(err)
	defer closeDB()

	// start CLI
	cli := commandLine{usrRepo: usrRepo}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func setUpRepository(conf *core.Config) (user.Repository, func() error, error) {
	if conf.Database.Host == "" {
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, err
		}
		return inmemdb.NewUserRepository(db), func() error { return nil }, nil
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.EnsureSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewUserRepository(db), db.Close, nil
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
