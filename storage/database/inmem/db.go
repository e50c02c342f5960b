// Package inmemdb keeps every repository in memory. It backs tests and local runs without MySQL.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/vitrine/core/enquiry"
	"github.com/trezcool/vitrine/core/section"
	"github.com/trezcool/vitrine/core/showcase"
	"github.com/trezcool/vitrine/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex

		sections  map[section.Key][]byte
		items     map[showcase.Kind]*itemTable
		users     map[int]*user.User
		enquiries map[int]*enquiry.Enquiry
		userSeq   int
		enqSeq    int
	}

	// itemTable holds JSON encoded records by id.
	itemTable struct {
		seq  int
		rows map[int][]byte
	}

	snapshot struct {
		sections map[section.Key][]byte
		items    map[showcase.Kind]itemTable
	}
)

func Open() *DB {
	db := &DB{
		sections:  make(map[section.Key][]byte),
		items:     make(map[showcase.Kind]*itemTable),
		users:     make(map[int]*user.User),
		enquiries: make(map[int]*enquiry.Enquiry),
	}
	for _, kind := range showcase.Kinds {
		db.items[kind] = &itemTable{rows: make(map[int][]byte)}
	}
	return db
}

func (db *DB) Sections() section.Repository  { return NewSectionRepository(db) }
func (db *DB) Showcase() showcase.Repository { return NewShowcaseRepository(db) }
func (db *DB) Users() user.Repository        { return NewUserRepository(db) }
func (db *DB) Enquiries() enquiry.Repository { return NewEnquiryRepository(db) }

// WithinTx runs fn and restores the sections and collections if it fails.
func (db *DB) WithinTx(_ context.Context, fn func(sections section.Repository, items showcase.Repository) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	if err := fn(db.Sections(), db.Showcase()); err != nil {
		db.restore(snap)
		return err
	}
	return nil
}

func (db *DB) snapshot() snapshot {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	snap := snapshot{
		sections: make(map[section.Key][]byte, len(db.sections)),
		items:    make(map[showcase.Kind]itemTable, len(db.items)),
	}
	for k, v := range db.sections {
		snap.sections[k] = v
	}
	for kind, t := range db.items {
		rows := make(map[int][]byte, len(t.rows))
		for id, row := range t.rows {
			rows[id] = row
		}
		snap.items[kind] = itemTable{seq: t.seq, rows: rows}
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.sections = snap.sections
	for kind := range snap.items {
		t := snap.items[kind]
		db.items[kind] = &t
	}
}
