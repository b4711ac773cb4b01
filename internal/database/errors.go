package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrConflict      = errors.New("record already exists")
	ErrStaleRevision = errors.New("stale revision")
)

const (
	EntityTimer    = "timer"
	EntityEntry    = "time entry"
	EntityProject  = "project"
	EntitySettings = "settings"
)

type OpError struct {
	Op     string
	Entity string
	Key    string
	Err    error
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	if e.Key != "" {
		return fmt.Sprintf("%s %s %s: %v", e.Op, e.Entity, e.Key, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func wrapErr(entity, op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Entity: entity, Key: key, Err: err}
}

// isConstraintErr reports a UNIQUE or PRIMARY KEY violation.
func isConstraintErr(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrConstraint &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}
