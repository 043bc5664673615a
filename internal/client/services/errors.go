package services

import "errors"

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrScanNotFound = errors.New("scan not found")
	ErrNotEligible  = errors.New("not eligible")
	ErrInvalidScan  = errors.New("invalid scan")
	ErrInvalidPIN   = errors.New("invalid PIN")
	ErrUnknownGroup = errors.New("unknown group")
)
