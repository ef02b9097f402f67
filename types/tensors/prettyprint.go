// Copyright 2024-2026 The SymTensor Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"github.com/dustin/go-humanize"
)

// memoryString pretty-prints a storage size in bytes.
func memoryString(bytes int) string {
	if bytes < 0 {
		return "? bytes"
	}
	return humanize.Bytes(uint64(bytes))
}
