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
	"errors"
	"fmt"
)

type ErrorKind int

const (
	ToolUnavailable ErrorKind = iota + 1
	ToolTimeout
	ToolAbnormalExit
	MalformedContainer
	UnreadableEntry
	ParserFailure
)

var (
	ErrToolUnavailable    = errors.New("tool unavailable")
	ErrToolTimeout        = errors.New("tool timed out")
	ErrToolAbnormalExit   = errors.New("tool exited abnormally")
	ErrMalformedContainer = errors.New("malformed container")
	ErrUnreadableEntry    = errors.New("unreadable entry")
	ErrParserFailure      = errors.New("parser failure")
)

func (self ErrorKind) sentinel() error {
	switch self {
	case ToolUnavailable:
		return ErrToolUnavailable
	case ToolTimeout:
		return ErrToolTimeout
	case ToolAbnormalExit:
		return ErrToolAbnormalExit
	case MalformedContainer:
		return ErrMalformedContainer
	case UnreadableEntry:
		return ErrUnreadableEntry
	case ParserFailure:
		return ErrParserFailure
	}
	return nil
}

func (self ErrorKind) String() string {
	err := self.sentinel()
	if err == nil {
		return fmt.Sprintf("ErrorKind(%d)", int(self))
	}
	return err.Error()
}

// DetectionError is how a strategy reports that it could not reach a
// verdict. errors.Is matches it against the Err* sentinel of its
// kind as well as the wrapped cause.
type DetectionError struct {
	Kind     ErrorKind
	Strategy string
	Err      error
}

func (self *DetectionError) Error() string {
	if self.Strategy == "" {
		return fmt.Sprintf("%v: %v", self.Kind, self.Err)
	}
	return fmt.Sprintf("%v: %v: %v", self.Strategy, self.Kind, self.Err)
}

func (self *DetectionError) Unwrap() error {
	return self.Err
}

func (self *DetectionError) Is(target error) bool {
	return target != nil && target == self.Kind.sentinel()
}

func newDetectionError(kind ErrorKind, strategy string, err error) error {
	return &DetectionError{Kind: kind, Strategy: strategy, Err: err}
}

// Tags an error with the strategy that produced it. Errors which are
// not yet classified become a ParserFailure.
func withStrategy(strategy string, err error) error {
	if err == nil {
		return nil
	}

	var detection_err *DetectionError
	if errors.As(err, &detection_err) {
		if detection_err.Strategy != "" {
			return err
		}
		return &DetectionError{
			Kind:     detection_err.Kind,
			Strategy: strategy,
			Err:      detection_err.Err,
		}
	}
	return newDetectionError(ParserFailure, strategy, err)
}

// KindOf extracts the ErrorKind of err, if it is a DetectionError.
func KindOf(err error) (ErrorKind, bool) {
	var detection_err *DetectionError
	if errors.As(err, &detection_err) {
		return detection_err.Kind, true
	}
	return 0, false
}
