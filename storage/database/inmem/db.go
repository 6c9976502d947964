// Package inmemdb keeps documents and revisions in process memory, for tests and local runs.
package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo/core/page"
)

type (
	DB struct {
		document *documentTable
		revision *revisionTable
	}

	documentTable struct {
		sync.RWMutex
		table map[string]*page.Document
	}

	revisionTable struct {
		sync.RWMutex
		table map[string][]page.Revision // by document ID, oldest first
	}
)

func Open() *DB {
	return &DB{
		document: &documentTable{table: make(map[string]*page.Document)},
		revision: &revisionTable{table: make(map[string][]page.Revision)},
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.document.Lock()
	db.document.table = make(map[string]*page.Document)
	db.document.Unlock()

	db.revision.Lock()
	db.revision.table = make(map[string][]page.Revision)
	db.revision.Unlock()
}
