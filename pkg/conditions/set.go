package conditions

import (
	"errors"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var (
	// ErrEmptyHappyType is returned when a ConditionSet is declared without a happy type.
	ErrEmptyHappyType = errors.New("happy condition type must not be empty")
	// ErrHappyIsDependent is returned when the happy type is also listed as a dependent.
	ErrHappyIsDependent = errors.New("dependents may not contain the happy condition type")
	// ErrDuplicateDependent is returned when a dependent type is listed twice.
	ErrDuplicateDependent = errors.New("duplicate dependent condition type")
	// ErrMissingHappy is returned when seeded conditions lack the happy type.
	ErrMissingHappy = errors.New("conditions must be initialized with the happy condition type")
	// ErrDuplicateType is returned when seeded conditions repeat a type.
	ErrDuplicateType = errors.New("condition type must be unique to each condition")
)

// ConditionSet declares the happy condition of a resource kind and the dependents that
// determine it. It is immutable once built and safe to share.
type ConditionSet struct {
	happy      ConditionType
	dependents []ConditionType
}

// NewConditionSet builds a ConditionSet for the given happy type and dependents.
func NewConditionSet(happy ConditionType, dependents ...ConditionType) (ConditionSet, error) {
	if happy == "" {
		return ConditionSet{}, ErrEmptyHappyType
	}
	seen := make(map[ConditionType]struct{}, len(dependents))
	for _, d := range dependents {
		if d == happy {
			return ConditionSet{}, fmt.Errorf("%w: %s", ErrHappyIsDependent, d)
		}
		if _, ok := seen[d]; ok {
			return ConditionSet{}, fmt.Errorf("%w: %s", ErrDuplicateDependent, d)
		}
		seen[d] = struct{}{}
	}
	return ConditionSet{
		happy:      happy,
		dependents: append([]ConditionType(nil), dependents...),
	}, nil
}

// MustConditionSet is NewConditionSet that panics on an invalid declaration.
// It is meant for package-level variables.
func MustConditionSet(happy ConditionType, dependents ...ConditionType) ConditionSet {
	set, err := NewConditionSet(happy, dependents...)
	if err != nil {
		panic(err)
	}
	return set
}

// Happy returns the top-level condition type.
func (s ConditionSet) Happy() ConditionType {
	return s.happy
}

// Dependents returns a copy of the dependent condition types.
func (s ConditionSet) Dependents() []ConditionType {
	return append([]ConditionType(nil), s.dependents...)
}

// IsDependent reports whether t contributes to the happy condition.
func (s ConditionSet) IsDependent(t ConditionType) bool {
	for _, d := range s.dependents {
		if d == t {
			return true
		}
	}
	return false
}

// IsTerminal reports whether t is the happy type or one of its dependents.
func (s ConditionSet) IsTerminal(t ConditionType) bool {
	return t == s.happy || s.IsDependent(t)
}

// Severity is the default severity of t: Error for terminal types, Info otherwise.
func (s ConditionSet) Severity(t ConditionType) ConditionSeverity {
	if s.IsTerminal(t) {
		return ConditionSeverityError
	}
	return ConditionSeverityInfo
}

// Initial returns the happy condition followed by every dependent, all Unknown.
func (s ConditionSet) Initial() Conditions {
	conds := make(Conditions, 0, len(s.dependents)+1)
	for _, t := range append([]ConditionType{s.happy}, s.dependents...) {
		conds = append(conds, Condition{
			Type:     t,
			Status:   metav1.ConditionUnknown,
			Severity: s.Severity(t),
		})
	}
	return conds
}

// Seed validates a pre-built list of conditions: the happy type must be present and
// types must be unique. The input order is kept.
func (s ConditionSet) Seed(conds ...Condition) (Conditions, error) {
	seen := make(map[ConditionType]struct{}, len(conds))
	for i := range conds {
		if _, ok := seen[conds[i].Type]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, conds[i].Type)
		}
		seen[conds[i].Type] = struct{}{}
	}
	if _, ok := seen[s.happy]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingHappy, s.happy)
	}
	return append(Conditions(nil), conds...), nil
}

// MustSeed is Seed that panics on invalid input.
func (s ConditionSet) MustSeed(conds ...Condition) Conditions {
	out, err := s.Seed(conds...)
	if err != nil {
		panic(err)
	}
	return out
}
