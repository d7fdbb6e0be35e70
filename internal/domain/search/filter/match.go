package filter

import "github.com/rikitraki/trackapi/internal/domain/track"

// Matches reports whether t satisfies every present field of c.
func Matches(t *track.Track, c Condition) bool {
	if c.Username != nil && t.Username != *c.Username {
		return false
	}
	if c.Favorite != nil && t.Favorite != *c.Favorite {
		return false
	}
	if len(c.Level) > 0 && !anyOf(c.Level, t.Level) {
		return false
	}
	if len(c.Activity) > 0 && !anyOf(c.Activity, t.Type) {
		return false
	}
	if len(c.Country) > 0 && !anyOf(c.Country, t.Regions.Country) {
		return false
	}
	if len(c.Region) > 0 && !anyOf(c.Region, t.Regions.Region) {
		return false
	}
	return true
}

// Eval reports whether t satisfies e.
func Eval(t *track.Track, e Expression) bool {
	switch e.kind {
	case KindFlat, KindAnd:
		for _, c := range e.conditions {
			if !Matches(t, c) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range e.conditions {
			if Matches(t, c) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// Apply returns the tracks satisfying e, in input order. An empty
// expression returns tracks unchanged. Input records are never modified.
func Apply(tracks []track.Track, e Expression) []track.Track {
	if e.IsEmpty() {
		return tracks
	}
	out := make([]track.Track, 0, len(tracks))
	for i := range tracks {
		if Eval(&tracks[i], e) {
			out = append(out, tracks[i])
		}
	}
	return out
}

func anyOf(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, want := range values {
		if want == v {
			return true
		}
	}
	return false
}
