// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrTerminal indicates the workflow instance has reached a terminal
// phase and accepts no further dispatch.
var ErrTerminal = errors.New("instance is terminal")
