package models

import (
	"database/sql/driver"
	"sort"

	"github.com/lib/pq"
)

// SeatIDs is a set of seat identifiers stored as TEXT[] in PostgreSQL.
// Order is preserved as supplied; set semantics are provided by the helpers below.
type SeatIDs []string

// Value implements the driver.Valuer interface
func (s SeatIDs) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return pq.Array([]string(s)).Value()
}

// Scan implements the sql.Scanner interface
func (s *SeatIDs) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	slice := (*[]string)(s)
	return pq.Array(slice).Scan(src)
}

// Contains reports whether seatID is part of the set
func (s SeatIDs) Contains(seatID string) bool {
	for _, id := range s {
		if id == seatID {
			return true
		}
	}
	return false
}

// Duplicates returns the identifiers that appear more than once
func (s SeatIDs) Duplicates() []string {
	seen := make(map[string]int, len(s))
	var dups []string
	for _, id := range s {
		seen[id]++
		if seen[id] == 2 {
			dups = append(dups, id)
		}
	}
	return dups
}

// SameSet reports whether both slices contain exactly the same identifiers
func (s SeatIDs) SameSet(other []string) bool {
	if len(s) != len(other) {
		return false
	}
	set := make(map[string]struct{}, len(s))
	for _, id := range s {
		set[id] = struct{}{}
	}
	for _, id := range other {
		if _, ok := set[id]; !ok {
			return false
		}
		delete(set, id)
	}
	return len(set) == 0
}

// Sorted returns a sorted copy
func (s SeatIDs) Sorted() []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}
