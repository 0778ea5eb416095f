package client

import (
	"fmt"
	"strconv"
	"strings"
)

// EventKey identifies a scheduled event so that it can be cancelled.
type EventKey struct {
	Subkey1 uint64 `json:"subkey1"`
	Subkey2 uint64 `json:"subkey2"`
}

func (k EventKey) String() string {
	return fmt.Sprintf("%d:%d", k.Subkey1, k.Subkey2)
}

// ParseEventKey parses the "<subkey1>:<subkey2>" form produced by String.
func ParseEventKey(s string) (*EventKey, error) {
	a, b, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return nil, fmt.Errorf("invalid event key %q: expected <subkey1>:<subkey2>", s)
	}
	k1, err := strconv.ParseUint(a, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid event key %q: %w", s, err)
	}
	k2, err := strconv.ParseUint(b, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid event key %q: %w", s, err)
	}
	return &EventKey{Subkey1: k1, Subkey2: k2}, nil
}
