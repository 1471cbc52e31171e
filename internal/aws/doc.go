// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws connects gifctl's blob store to S3 or an S3 compatible endpoint.
package aws
