package database

import (
	"sync"
)

// Provider opens the database on first use and hands out the same handle
// afterwards. A failed open is remembered; callers get the same error.
type Provider struct {
	path string
	opts []Option

	once sync.Once
	db   *Database
	err  error
}

func NewProvider(path string, opts ...Option) *Provider {
	return &Provider{path: path, opts: opts}
}

func (p *Provider) Get() (*Database, error) {
	p.once.Do(func() {
		p.db, p.err = NewDatabase(p.path, p.opts...)
	})
	return p.db, p.err
}

// Close closes the handle if it was ever opened.
func (p *Provider) Close() error {
	var db *Database
	p.once.Do(func() {})
	db = p.db
	if db == nil {
		return nil
	}
	return db.Close()
}
