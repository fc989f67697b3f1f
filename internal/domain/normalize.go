package domain

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// maxHistoryEntries bounds metric histories in the processed snapshot.
const maxHistoryEntries = 5

// ParseLocaleFloat parses a Swedish-formatted numeric string ("217,6") into
// a float. The source sentinels "." and "-" mean "no value", as does any
// string that fails to parse. Absence is a nil pointer, never zero.
func ParseLocaleFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == "-" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// sortNewestFirst returns the observations ordered by descending time
// period. The source claims to deliver series newest-first already, but
// that ordering is undocumented, so it is re-established here rather than
// trusted. Period labels ("2023", "2022/2023") compare correctly as strings.
func sortNewestFirst(obs []Observation) []Observation {
	out := make([]Observation, len(obs))
	copy(out, obs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimePeriod > out[j].TimePeriod
	})
	return out
}

// LatestValue returns the parsed value of the most recent observation whose
// validity marker says the value exists, or nil if no observation qualifies.
// Suppressed and not-yet-measured entries are skipped, not read as zero.
func LatestValue(obs []Observation) *float64 {
	for _, o := range sortNewestFirst(obs) {
		if o.Exists() {
			return ParseLocaleFloat(o.Value)
		}
	}
	return nil
}

// HasExistingValue reports whether any observation in the series carries a
// real value. Classification signals use this without parsing.
func HasExistingValue(obs []Observation) bool {
	for _, o := range obs {
		if o.Exists() {
			return true
		}
	}
	return false
}

// History maps a series to {period, value} pairs newest-first, keeping only
// existing observations and at most maxHistoryEntries of them. Unparseable
// values inside the history are coerced to 0.0: the history feeds trend
// charts only, while headline figures always go through LatestValue.
func History(obs []Observation) []HistoryEntry {
	var out []HistoryEntry
	for _, o := range sortNewestFirst(obs) {
		if !o.Exists() {
			continue
		}
		value := 0.0
		if v := ParseLocaleFloat(o.Value); v != nil {
			value = *v
		}
		out = append(out, HistoryEntry{Period: o.TimePeriod, Value: value})
		if len(out) == maxHistoryEntries {
			break
		}
	}
	return out
}

// firstNonNil returns the first non-absent value among the candidates.
// Used for the gr -> gy fallback on common figures.
func firstNonNil(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
