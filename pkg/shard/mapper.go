// Package shard maps scheduler array-task indices onto analysis symbols.
//
// A batch submission expands into N indexed tasks; each task derives the
// symbol it must analyze from its 1-based array index. The mapping is pure
// and deterministic so that a re-run of the same index always lands on the
// same symbol.
package shard

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when an array index falls outside [1, len].
var ErrOutOfRange = errors.New("array index out of range")

// DefaultSymbols is the stock symbol list used by batch submissions when no
// override is configured. The ordering is part of the submission contract:
// array task i analyzes DefaultSymbols[i-1].
var DefaultSymbols = []string{
	"NVDA", "MSFT", "AAPL", "GOOGL", "AMZN",
	"META", "TSLA", "AVGO", "JPM", "V",
}

// Mapper resolves array-task indices to symbols over a fixed symbol list.
//
// The zero value is not usable; construct with NewMapper.
type Mapper struct {
	symbols []string
}

// NewMapper returns a Mapper over the given symbol list. A nil or empty list
// falls back to DefaultSymbols. The list is copied so later mutation by the
// caller cannot change the mapping.
func NewMapper(symbols []string) *Mapper {
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}
	out := make([]string, len(symbols))
	copy(out, symbols)
	return &Mapper{symbols: out}
}

// Len reports the number of shards, which equals the array range size.
func (m *Mapper) Len() int {
	return len(m.symbols)
}

// Symbols returns a copy of the configured symbol list in shard order.
func (m *Mapper) Symbols() []string {
	out := make([]string, len(m.symbols))
	copy(out, m.symbols)
	return out
}

// Map resolves a 1-based array-task index to its symbol.
//
// Indices outside [1, Len()] fail with ErrOutOfRange rather than wrapping;
// a silent modulo here would let a misconfigured array range reprocess the
// wrong symbols without anyone noticing.
func (m *Mapper) Map(index int) (string, error) {
	if index < 1 || index > len(m.symbols) {
		return "", fmt.Errorf("%w: index %d (valid range 1-%d)", ErrOutOfRange, index, len(m.symbols))
	}
	return m.symbols[index-1], nil
}
