// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package gifitem defines the catalog item model, its persisted favorite
// record, and the lenient decoding of catalog API documents.
package gifitem
