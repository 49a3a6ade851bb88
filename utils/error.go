package utils

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var ErrorRecordNotFound = errors.New("record not found")

// mysql error number for a unique key collision
const mysqlErrDuplicateEntry = 1062

// IsDuplicateKeyError reports whether err is a MySQL duplicate entry error.
func IsDuplicateKeyError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDuplicateEntry
	}
	return false
}
