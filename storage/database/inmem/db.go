package inmemdb

import (
	"sync"

	"github.com/trezcool/dailies/core/access"
	"github.com/trezcool/dailies/core/daily"
	"github.com/trezcool/dailies/core/directory"
)

type (
	// DB keeps every table in process memory. Data is lost on restart.
	DB struct {
		directory *directoryTable
		daily     *dailyTable
		session   *sessionTable
	}

	directoryTable struct {
		sync.RWMutex
		table map[string]directory.Entry // by email
		order []string                   // insertion order of emails
	}

	dailyTable struct {
		sync.RWMutex
		rows []daily.Record
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]access.Session
	}
)

func Open() *DB {
	return &DB{
		directory: &directoryTable{table: make(map[string]directory.Entry)},
		daily:     &dailyTable{},
		session:   &sessionTable{table: make(map[string]access.Session)},
	}
}
