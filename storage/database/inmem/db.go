package inmemdb

import (
	"sync"

	"github.com/trezcool/academia/core/user"
)

// DB is an in-memory directory used in development and tests.
type DB struct {
	user *userTable
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User // keyed by ID
}

func Open() (*DB, error) {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
	}, nil
}
