package repository

import "errors"

var (
	// ErrResultNotFound indicates no stored result exists for the key
	ErrResultNotFound = errors.New("analysis result not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
