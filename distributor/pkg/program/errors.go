package program

import (
	"regexp"
	"strconv"
	"strings"
)

// Custom error codes emitted by the program (Anchor numbers custom errors
// from 6000).
const (
	ErrCodeInvalidProof = 6000 + iota
	ErrCodePaused
	ErrCodeUnauthorized
	ErrCodeInvalidVault
	ErrCodeOverflow
	ErrCodeProofTooLong
)

var (
	customHexRe  = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	customJSONRe = regexp.MustCompile(`"?Custom"?\s*:\s*(\d+)`)
)

// CustomErrorCode extracts the program's custom error code from an RPC
// error, if one is present. RPC implementations surface program errors in a
// couple of textual shapes; both are handled here.
func CustomErrorCode(err error) (uint32, bool) {
	if err == nil {
		return 0, false
	}
	msg := err.Error()
	if m := customHexRe.FindStringSubmatch(msg); m != nil {
		code, parseErr := strconv.ParseUint(m[1], 16, 32)
		if parseErr == nil {
			return uint32(code), true
		}
	}
	if m := customJSONRe.FindStringSubmatch(msg); m != nil {
		code, parseErr := strconv.ParseUint(m[1], 10, 32)
		if parseErr == nil {
			return uint32(code), true
		}
	}
	return 0, false
}

// IsAlreadyClaimed reports whether the error indicates the claim marker
// account already exists, i.e. the leaf was already paid. Account-in-use
// comes from the system program when the marker PDA init fails.
func IsAlreadyClaimed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already in use") ||
		strings.Contains(msg, "already been processed") ||
		strings.Contains(msg, "alreadyprocessed")
}

// IsBlockhashExpired reports whether the error indicates the transaction's
// recent blockhash fell out of the validity window.
func IsBlockhashExpired(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "blockhash not found") ||
		strings.Contains(msg, "blockhashnotfound") ||
		strings.Contains(msg, "block height exceeded")
}
