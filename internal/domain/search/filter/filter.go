// Package filter implements the client filter language for track listings:
// a flat condition, an and-list or an or-list of conditions over a closed
// set of keys, and its evaluation against track records.
package filter

// MaxConditionsPerGroup is the maximum number of conditions in an and/or list.
const MaxConditionsPerGroup = 32

// Key is a recognized filter key.
type Key string

// Recognized keys. Anything else in a client filter is ignored.
const (
	KeyUsername Key = "username"
	KeyTrackFav Key = "trackFav"
	KeyLevel    Key = "level"
	KeyActivity Key = "activity"
	KeyCountry  Key = "country"
	KeyRegion   Key = "region"
)

// Keys lists the recognized keys in evaluation order.
var Keys = []Key{KeyUsername, KeyTrackFav, KeyLevel, KeyActivity, KeyCountry, KeyRegion}

// IsKnown reports whether k is a recognized key.
func IsKnown(k string) bool {
	for _, key := range Keys {
		if string(key) == k {
			return true
		}
	}
	return false
}

// Condition is one filter object. Every present field must match.
// List fields come from comma-separated client values; a record matches
// a list field when it equals any of the values.
type Condition struct {
	Username *string
	Favorite *bool
	Level    []string
	Activity []string
	Country  []string
	Region   []string
}

// IsEmpty reports whether the condition constrains nothing.
func (c Condition) IsEmpty() bool {
	return c.Username == nil && c.Favorite == nil &&
		len(c.Level) == 0 && len(c.Activity) == 0 &&
		len(c.Country) == 0 && len(c.Region) == 0
}

// Has reports whether the condition carries a value for k.
func (c Condition) Has(k Key) bool {
	switch k {
	case KeyUsername:
		return c.Username != nil
	case KeyTrackFav:
		return c.Favorite != nil
	case KeyLevel:
		return len(c.Level) > 0
	case KeyActivity:
		return len(c.Activity) > 0
	case KeyCountry:
		return len(c.Country) > 0
	case KeyRegion:
		return len(c.Region) > 0
	}
	return false
}

// Kind discriminates Expression variants.
type Kind int

const (
	// KindEmpty matches everything.
	KindEmpty Kind = iota
	// KindFlat is a single condition.
	KindFlat
	// KindAnd requires every condition.
	KindAnd
	// KindOr requires at least one condition.
	KindOr
)

func (k Kind) String() string {
	switch k {
	case KindFlat:
		return "flat"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "empty"
	}
}

// Expression is Flat(Condition) | And([]Condition) | Or([]Condition).
type Expression struct {
	kind       Kind
	conditions []Condition
}

// Empty returns the expression that matches every record.
func Empty() Expression { return Expression{} }

// Flat wraps a single condition. An empty condition yields Empty().
func Flat(c Condition) Expression {
	if c.IsEmpty() {
		return Expression{}
	}
	return Expression{kind: KindFlat, conditions: []Condition{c}}
}

// And requires every condition to hold.
func And(cs ...Condition) Expression {
	return Expression{kind: KindAnd, conditions: cs}
}

// Or requires at least one condition to hold.
func Or(cs ...Condition) Expression {
	return Expression{kind: KindOr, conditions: cs}
}

// Kind returns the variant.
func (e Expression) Kind() Kind { return e.kind }

// Conditions returns the conditions of the expression.
func (e Expression) Conditions() []Condition { return e.conditions }

// IsEmpty reports whether the expression matches everything.
func (e Expression) IsEmpty() bool { return e.kind == KindEmpty }

// HasExtraFilters reports whether any recognized key is present, i.e.
// whether records must be post-filtered after the index query.
func (e Expression) HasExtraFilters() bool {
	for _, c := range e.conditions {
		if !c.IsEmpty() {
			return true
		}
	}
	return false
}

// DrivingConditions returns the conditions that every matching record is
// guaranteed to satisfy: the flat condition or all members of an and-list.
// An or-list guarantees none of its members.
func (e Expression) DrivingConditions() []Condition {
	switch e.kind {
	case KindFlat, KindAnd:
		return e.conditions
	default:
		return nil
	}
}
