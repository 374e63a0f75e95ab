package app

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials covers unknown email, wrong password and any
	// rejected or unresolvable token.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveAccount    = errors.New("inactive account")
	ErrUniquenessConflict = errors.New("uniqueness conflict")
	ErrEmailExists        = fmt.Errorf("%w: email already registered", ErrUniquenessConflict)
	ErrUsernameExists     = fmt.Errorf("%w: username already taken", ErrUniquenessConflict)
	ErrNotFound           = errors.New("user not found")
	ErrForbidden          = errors.New("not enough permissions")
	ErrInvalidFile        = errors.New("invalid file type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrBlobStore          = errors.New("store profile image failed")
)
