// Package repository defines the data access layer on top of database/sql.
// Sentinel errors declared here let handlers pick an HTTP status with
// errors.Is without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
)

// ErrConflict is returned when a write cannot proceed because of the
// current state of the row, such as deleting a slot that is still booked.
// Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrSlotUnavailable is returned when a booking targets a slot that does
// not exist or is already taken. Both cases look the same to the customer.
var ErrSlotUnavailable = errors.New("slot not available")

// ErrUsernameExists is returned when registration hits the unique index on
// users.username.
var ErrUsernameExists = errors.New("username already exists")

// ErrSessionInvalid is returned for unknown, revoked or expired refresh tokens.
var ErrSessionInvalid = errors.New("session invalid")

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrServiceNotFound       = errors.New("service not found")
	ErrGalleryItemNotFound   = errors.New("gallery item not found")
	ErrSlotNotFound          = errors.New("booking slot not found")
	ErrBookingNotFound       = errors.New("booking not found")
	ErrWaitlistEntryNotFound = errors.New("waitlist entry not found")
	ErrContactNotFound       = errors.New("contact message not found")
	ErrProductNotFound       = errors.New("product not found")
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicateKey reports a duplicate entry on a unique index.
func isDuplicateKey(err error) bool {
	return mysqlErrorNumber(err) == mysqlDuplicateEntry
}

// isForeignKeyViolation reports that the row is still referenced from
// another table.
func isForeignKeyViolation(err error) bool {
	return mysqlErrorNumber(err) == mysqlRowIsReferenced
}
