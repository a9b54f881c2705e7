package conditions

const (
	// ReasonNewObservedGenFailure is used when reconciliation of a new generation starts.
	ReasonNewObservedGenFailure = "NewObservedGenFailure"

	newObservedGenMessage = "unsuccessfully observed a new generation"
)

// Accessor is implemented by resource status types that carry a Conditions store.
type Accessor interface {
	// GetConditionSet returns the set that governs the status' conditions.
	GetConditionSet() ConditionSet
	// GetConditions returns the live store. It must not be nil.
	GetConditions() *Conditions
}

// Manage returns a Manager bound to the accessor's conditions.
func Manage(a Accessor, opts ...Option) *Manager {
	return a.GetConditionSet().Manage(a.GetConditions(), opts...)
}

// IsReady reports whether the accessor's happy condition is True.
func IsReady(a Accessor) bool {
	return Manage(a).IsHappy()
}

// MarkTopLevelFalse sets the happy condition to False.
func MarkTopLevelFalse(a Accessor, reason, message string, opts ...Option) {
	m := Manage(a, opts...)
	m.MarkFalse(m.set.Happy(), reason, "%s", message)
}

// MarkTopLevelUnknown sets the happy condition to Unknown. It is typically called when
// reconciliation of a new generation begins.
func MarkTopLevelUnknown(a Accessor, opts ...Option) {
	m := Manage(a, opts...)
	m.MarkUnknown(m.set.Happy(), ReasonNewObservedGenFailure, newObservedGenMessage)
}

// MarkTopLevelUnknownWithMessage sets the happy condition to Unknown with the given reason.
func MarkTopLevelUnknownWithMessage(a Accessor, reason, message string, opts ...Option) {
	m := Manage(a, opts...)
	m.MarkUnknown(m.set.Happy(), reason, "%s", message)
}
