// Package common defines shared constants and sentinel errors used across
// filevault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Input errors.
	ErrValidation = errors.New("validation error")

	// Lookup errors, returned by repositories and blob stores alike.
	ErrNotFound = errors.New("not found")

	// Codec errors.
	ErrDecryption = errors.New("decryption error")

	// Gateway errors wrapping an underlying store failure.
	ErrUpload   = errors.New("upload error")
	ErrDownload = errors.New("download error")
	ErrDelete   = errors.New("delete error")
	ErrList     = errors.New("list error")

	// Audit errors never leave the recorder; they are only logged.
	ErrAuditWrite = errors.New("audit write error")
)
