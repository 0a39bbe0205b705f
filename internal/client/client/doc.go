// Package client is a typed HTTP client for the filevault REST API.
//
// Error responses are mapped back onto the sentinels in internal/common:
// 400 becomes common.ErrValidation, 404 becomes common.ErrNotFound, and any
// other failure status becomes ErrServer. Transport failures are reported as
// ErrUnavailable.
package client
