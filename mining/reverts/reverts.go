// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the user facing failures of mining operations.
// A revert leaves every piece of state untouched.
package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies a revert.
type Kind string

const (
	KindInsufficientAllowance          Kind = "insufficient allowance"
	KindInsufficientStake              Kind = "insufficient stake"
	KindLockedByActiveCycle            Kind = "stake locked by active cycle"
	KindNotEligible                    Kind = "not eligible"
	KindWindowNotYetOpen               Kind = "submission window not yet open"
	KindWindowClosed                   Kind = "submission window closed"
	KindWindowStillOpen                Kind = "submission window still open"
	KindDuplicateEntry                 Kind = "duplicate entry"
	KindConflictingSubmission          Kind = "conflicting submission"
	KindEntryLimitReached              Kind = "entry limit reached"
	KindNotCurrentCycle                Kind = "not current cycle"
	KindNotOpposing                    Kind = "submissions not opposing"
	KindOnlySurvivorCannotBeEliminated Kind = "only survivor cannot be eliminated"
	KindUnresolvable                   Kind = "unresolvable"
	KindMultipleCandidatesRemain       Kind = "multiple candidates remain"
	KindNoSubmissions                  Kind = "no submissions"
	KindInvalidAmount                  Kind = "invalid amount"
)

// Sentinels, one per kind, for errors.Is.
var (
	ErrInsufficientAllowance          = New(KindInsufficientAllowance, "")
	ErrInsufficientStake              = New(KindInsufficientStake, "")
	ErrLockedByActiveCycle            = New(KindLockedByActiveCycle, "")
	ErrNotEligible                    = New(KindNotEligible, "")
	ErrWindowNotYetOpen               = New(KindWindowNotYetOpen, "")
	ErrWindowClosed                   = New(KindWindowClosed, "")
	ErrWindowStillOpen                = New(KindWindowStillOpen, "")
	ErrDuplicateEntry                 = New(KindDuplicateEntry, "")
	ErrConflictingSubmission          = New(KindConflictingSubmission, "")
	ErrEntryLimitReached              = New(KindEntryLimitReached, "")
	ErrNotCurrentCycle                = New(KindNotCurrentCycle, "")
	ErrNotOpposing                    = New(KindNotOpposing, "")
	ErrOnlySurvivorCannotBeEliminated = New(KindOnlySurvivorCannotBeEliminated, "")
	ErrUnresolvable                   = New(KindUnresolvable, "")
	ErrMultipleCandidatesRemain       = New(KindMultipleCandidatesRemain, "")
	ErrNoSubmissions                  = New(KindNoSubmissions, "")
	ErrInvalidAmount                  = New(KindInvalidAmount, "")
)

type ErrRevert struct {
	kind    Kind
	message string
}

// New creates a revert of the given kind. The message adds detail and may be empty.
func New(kind Kind, message string) *ErrRevert {
	return &ErrRevert{
		kind:    kind,
		message: message,
	}
}

// Newf is New with a formatted message.
func Newf(kind Kind, format string, args ...any) *ErrRevert {
	return New(kind, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Kind() Kind {
	return e.kind
}

func (e *ErrRevert) Error() string {
	if e.message == "" {
		return string(e.kind)
	}
	return string(e.kind) + ": " + e.message
}

// Is matches any revert of the same kind.
func (e *ErrRevert) Is(target error) bool {
	var t *ErrRevert
	if !errors.As(target, &t) {
		return false
	}
	return t.kind == e.kind
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// KindOf returns the kind of a revert error, or "" if err is not a revert.
func KindOf(err error) Kind {
	var ve *ErrRevert
	if errors.As(err, &ve) {
		return ve.kind
	}
	return ""
}
