// Package repository holds the MySQL repositories and the Store that
// composes them into transactional operations.  The sentinel errors below
// let higher layers tell failure scenarios apart without inspecting driver
// errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate it into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write collides with existing state, such
// as a duplicate username or email.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
