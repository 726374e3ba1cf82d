package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrValidation          = errors.New("validation")           // 400
	ErrNotFound            = errors.New("not found")            // 404
	ErrConflict            = errors.New("conflict")             // 409
	ErrInvalidState        = errors.New("invalid state")        // 409
	ErrInvalidTransition   = errors.New("invalid transition")   // 409
	ErrInvalidCredentials  = errors.New("invalid credentials")  // 401
	ErrInvalidRefreshToken = errors.New("invalid refresh token") // 401
)

// notFound turns a missing-record error from the store into ErrNotFound and
// passes everything else through.
func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
	}
	return err
}
