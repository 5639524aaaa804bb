// Package repository contains the MySQL data access layer for movies,
// users and reservations.  Handlers and the recommender talk to the store
// only through the repositories defined here.
//
// The sentinel errors below let higher layers tell failure kinds apart:
// not-found errors become 404 responses, constraint violations become 409
// responses and ErrNotInitialized becomes 503.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// Not-found errors.
var (
	ErrMovieNotFound = errors.New("movie not found")
	ErrUserNotFound  = errors.New("user not found")
)

// Constraint violations.  Nothing is written when one of them is returned.
var (
	ErrMovieExists   = errors.New("movie already exists")
	ErrUserExists    = errors.New("user already exists")
	ErrAlreadyBooked = errors.New("movie already booked by user")
	ErrFullyBooked   = errors.New("movie fully booked")
	ErrNotBooked     = errors.New("movie not booked by user")
	ErrAlreadyRated  = errors.New("movie already rated by user")
)

// Schema state errors.
var (
	ErrNotInitialized     = errors.New("database initialization is required")
	ErrAlreadyInitialized = errors.New("database already initialized")
)

// MySQL server error numbers the repositories translate.
const (
	mysqlDupEntry     = 1062 // ER_DUP_ENTRY
	mysqlNoSuchTable  = 1146 // ER_NO_SUCH_TABLE
	mysqlNoReferenced = 1452 // ER_NO_REFERENCED_ROW_2
)

// mysqlErrNumber returns the server error number carried by err, or 0 when
// err did not come from the MySQL server.
func mysqlErrNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// translate maps server errors every repository shares.
func translate(err error) error {
	if mysqlErrNumber(err) == mysqlNoSuchTable {
		return ErrNotInitialized
	}
	return err
}
