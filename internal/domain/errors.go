package domain

import (
	"errors"
	"fmt"
)

var (
	// Vendor errors
	ErrVendorAuth      = errors.New("vendor authentication failed")
	ErrVendorTransport = errors.New("vendor transport error")
	ErrVendorBusiness  = errors.New("vendor rejected request")

	// Local errors
	ErrPersistence           = errors.New("persistence error")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidVendorResponse = fmt.Errorf("%w: vendor response is not successful", ErrInvalidInput)
)
