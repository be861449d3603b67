/*
   Velociraptor - Dig Deeper
   Copyright (C) 2019-2025 Rapid7 Inc.

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU Affero General Public License as published
   by the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU Affero General Public License for more details.

   You should have received a copy of the GNU Affero General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package detectors

import (
	"context"
	"fmt"

	"www.velocidex.com/golang/macroscan/document"
)

type Verdict int

const (
	NEGATIVE Verdict = iota
	POSITIVE
	INCONCLUSIVE
)

func (self Verdict) String() string {
	switch self {
	case POSITIVE:
		return "POSITIVE"
	case INCONCLUSIVE:
		return "INCONCLUSIVE"
	default:
		return "NEGATIVE"
	}
}

// The outcome of a single strategy. INCONCLUSIVE counts as NEGATIVE
// when aggregating but is kept distinct for diagnostics.
type Result struct {
	Verdict Verdict
	Reason  string
}

func (self Result) String() string {
	if self.Reason == "" {
		return self.Verdict.String()
	}
	return fmt.Sprintf("%v (%v)", self.Verdict, self.Reason)
}

func Positive(format string, args ...interface{}) Result {
	return Result{Verdict: POSITIVE, Reason: fmt.Sprintf(format, args...)}
}

func Negative(format string, args ...interface{}) Result {
	return Result{Verdict: NEGATIVE, Reason: fmt.Sprintf(format, args...)}
}

func Inconclusive(format string, args ...interface{}) Result {
	return Result{Verdict: INCONCLUSIVE, Reason: fmt.Sprintf(format, args...)}
}

// A Strategy is one independent way of recognizing macro content. It
// must treat the document as read only. Any failure is reported as an
// error which the caller downgrades to INCONCLUSIVE.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, doc *document.Document) (Result, error)
}
