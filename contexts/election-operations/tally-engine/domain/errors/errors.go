package errors

import "errors"

var (
	ErrElectionNotFound = errors.New("election not found")
	ErrZoneNotFound     = errors.New("zone not found")
)
