// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the write lost a race with another writer.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates malformed input.
var ErrValidation = errors.New("validation failed")

// ErrRunInProgress is returned when another lifecycle run holds the run lock.
var ErrRunInProgress = errors.New("lifecycle run already in progress")

// ErrNotConfigured indicates a required setting, such as SMTP credentials, is missing.
var ErrNotConfigured = errors.New("not configured")
