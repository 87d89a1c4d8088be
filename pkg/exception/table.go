package exception

import "errors"

var (
	ErrDuplicateKey = errors.New("table: duplicate primary key")
	ErrNotFound     = errors.New("table: row not found")
	ErrUnknownIndex = errors.New("table: unknown secondary index")
)
