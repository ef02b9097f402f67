// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package backends

import (
	"github.com/pkg/errors"
)

// ErrNotImplemented is the sentinel wrapped by backend methods for operations
// (or dtypes) they don't support. Check with IsNotImplemented.
var ErrNotImplemented = errors.New("not implemented")

// NotImplementedError returns an error for op constructors a backend doesn't
// support. The returned error wraps ErrNotImplemented.
func NotImplementedError(format string, args ...any) error {
	return errors.Wrapf(ErrNotImplemented, format, args...)
}

// IsNotImplemented returns whether the error indicates an operation not
// implemented by the backend.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrNotImplemented)
}
