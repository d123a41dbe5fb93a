package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interfaces are importable and usable.
func TestStoreInterfacesExist(t *testing.T) {
	var _ StateStore
	var _ AuditLog
	_ = LoadReport{}
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{
		ErrValidation, ErrAlreadyExists, ErrExhausted, ErrRateLimited,
		ErrExpired, ErrNotFound, ErrPersistence, ErrCorrupted, ErrLocked,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v should not match %v", a, b)
			}
		}
	}

	wrapped := fmt.Errorf("save state: %w", ErrPersistence)
	if !errors.Is(wrapped, ErrPersistence) {
		t.Errorf("wrapped error lost its sentinel: %v", wrapped)
	}
}
