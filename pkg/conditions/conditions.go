package conditions

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/clock"
)

// Conditions is the ordered record of conditions on a resource status, unique by type.
// Entries keep their position once added; new types are appended.
type Conditions []Condition

// Get returns the condition with the given type, or nil. The pointer refers into the slice.
func (c Conditions) Get(t ConditionType) *Condition {
	for i := range c {
		if c[i].Type == t {
			return &c[i]
		}
	}
	return nil
}

// Types returns the condition types in store order.
func (c Conditions) Types() []ConditionType {
	types := make([]ConditionType, 0, len(c))
	for i := range c {
		types = append(types, c[i].Type)
	}
	return types
}

// Upsert adds or replaces a condition and reports whether the store changed.
// A condition that only differs in LastTransitionTime from the stored one is ignored,
// so repeated observations do not churn the transition time.
func (c *Conditions) Upsert(cond Condition, clk clock.PassiveClock) bool {
	now := metav1.NewTime(clk.Now())

	if existing := c.Get(cond.Type); existing != nil {
		if existing.SameAs(&cond) {
			return false
		}
		cond.LastTransitionTime = &now
		*existing = cond
		return true
	}

	cond.LastTransitionTime = &now
	*c = append(*c, cond)
	return true
}

// ToMetav1 converts every condition, keeping the store order.
func (c Conditions) ToMetav1(generation int64) []metav1.Condition {
	if c == nil {
		return nil
	}
	out := make([]metav1.Condition, 0, len(c))
	for i := range c {
		out = append(out, c[i].ToMetav1(generation))
	}
	return out
}
