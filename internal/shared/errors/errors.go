// Package errors holds sentinel errors shared across commands.
package errors

import "errors"

var (
	// ErrNoHosts means the host list produced zero usable entries.
	ErrNoHosts = errors.New("host list is empty")
	// ErrNoDomains means no target domains were provided to discovery.
	ErrNoDomains = errors.New("no target domains provided")
	// ErrNoEntries means the combined result stream held no sections.
	ErrNoEntries = errors.New("no result entries found")
)
