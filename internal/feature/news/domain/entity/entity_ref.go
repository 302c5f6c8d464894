package entity

import (
	"errors"
	"strings"
)

// EntityRef links an article to a symbol. Name and Exchange are optional.
type EntityRef struct {
	Symbol   string
	Name     *string
	Exchange *string
}

// ErrEmptyEntitySymbol is returned when an entity string has no symbol part.
var ErrEmptyEntitySymbol = errors.New("entity has no symbol")

// ParseEntityRef parses "SYMBOL|Name|Exchange". Missing or blank trailing
// parts are left nil; parts beyond the third are ignored.
func ParseEntityRef(raw string) (EntityRef, error) {
	parts := strings.Split(raw, "|")
	ref := EntityRef{Symbol: strings.ToUpper(strings.TrimSpace(parts[0]))}
	if ref.Symbol == "" {
		return EntityRef{}, ErrEmptyEntitySymbol
	}
	if len(parts) > 1 {
		ref.Name = optional(parts[1])
	}
	if len(parts) > 2 {
		ref.Exchange = optional(parts[2])
	}
	return ref, nil
}

// FormatEntityRef is the inverse of ParseEntityRef.
func FormatEntityRef(symbol, name, exchange string) string {
	switch {
	case exchange != "":
		return symbol + "|" + name + "|" + exchange
	case name != "":
		return symbol + "|" + name
	default:
		return symbol
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
