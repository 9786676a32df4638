package models

import "fmt"

// StoreKind identifies one of the provisioned storage backends.
type StoreKind string

const (
	StoreRelational StoreKind = "relational"
	StoreGraph      StoreKind = "graph"
	StoreObject     StoreKind = "object"
	StoreDocument   StoreKind = "document"
	StorePhotos     StoreKind = "photos"
)

// StoreFailure records a non-critical store's provisioning failure. It is
// attached to the authentication result as metadata and never surfaced to
// the caller as a hard error.
type StoreFailure struct {
	Store StoreKind
	Err   error
}

func (f StoreFailure) Error() string {
	return fmt.Sprintf("store %s: %v", f.Store, f.Err)
}

func (f StoreFailure) Unwrap() error {
	return f.Err
}
