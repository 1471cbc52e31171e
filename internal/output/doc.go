// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output filters, transforms, sorts and renders the row sets that
// commands produce.
package output
