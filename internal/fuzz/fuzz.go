// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package fuzz scores how closely two strings match.
package fuzz

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

var levenshtein = metrics.NewLevenshtein()

// Ratio returns a similarity score in [0, 1]; 1 means equal.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, levenshtein)
}
