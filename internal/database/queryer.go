package database

import "database/sql"

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods that must run both standalone and inside a ledger
// transaction take a Queryer instead of holding a connection, so one
// implementation serves both paths.
type Queryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var (
	_ Queryer = (*sql.DB)(nil)
	_ Queryer = (*sql.Tx)(nil)
)
