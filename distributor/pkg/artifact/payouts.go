package artifact

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// ParsePayoutCSV parses the canonical payout list: one "recipient,amount"
// line per entry, amounts in base units. Indices are assigned in line order.
// Blank lines and lines starting with '#' are skipped; an optional
// "recipient,amount" header is tolerated.
//
// The raw bytes passed here are also what Build fingerprints, so the file
// must be treated as immutable once the artifact is produced.
func ParsePayoutCSV(data []byte) ([]Entry, error) {
	var entries []Entry
	seen := make(map[solana.PublicKey]uint64)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if lineNo == 1 && strings.EqualFold(line, "recipient,amount") {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected 2 fields, got %d", ErrInvalidInput, lineNo, len(fields))
		}

		recipient, err := solana.PublicKeyFromBase58(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad recipient: %v", ErrInvalidInput, lineNo, err)
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad amount: %v", ErrInvalidInput, lineNo, err)
		}
		if amount == 0 {
			return nil, fmt.Errorf("%w: line %d: zero amount", ErrInvalidInput, lineNo)
		}
		if prev, ok := seen[recipient]; ok {
			return nil, fmt.Errorf("%w: line %d: duplicate recipient %s (first at index %d)",
				ErrInvalidInput, lineNo, recipient, prev)
		}

		index := uint64(len(entries))
		seen[recipient] = index
		entries = append(entries, Entry{Index: index, Recipient: recipient, Amount: amount})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan payout list: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: empty payout list", ErrInvalidInput)
	}

	return entries, nil
}
