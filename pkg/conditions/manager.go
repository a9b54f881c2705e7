package conditions

import (
	"fmt"

	"github.com/go-logr/logr"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/clock"
)

// Manager mutates a Conditions store and keeps its happy condition derived from the
// dependents declared by a ConditionSet. It does no locking; callers serialize access
// to a store.
type Manager struct {
	set        ConditionSet
	conditions *Conditions
	clock      clock.PassiveClock
	log        logr.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the source of transition timestamps.
func WithClock(clk clock.PassiveClock) Option {
	return func(m *Manager) {
		m.clock = clk
	}
}

// WithLogger sets the logger used to report happy condition transitions.
func WithLogger(log logr.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// Manage returns a Manager over conds. conds must be non-nil.
func (s ConditionSet) Manage(conds *Conditions, opts ...Option) *Manager {
	if conds == nil {
		panic("conditions: Manage called with nil conditions")
	}
	m := &Manager{
		set:        s,
		conditions: conds,
		clock:      clock.RealClock{},
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ConditionSet returns the set the manager enforces.
func (m *Manager) ConditionSet() ConditionSet {
	return m.set
}

// InitializeConditions adds any missing happy or dependent condition as Unknown.
func (m *Manager) InitializeConditions() {
	for _, t := range append([]ConditionType{m.set.happy}, m.set.dependents...) {
		if m.conditions.Get(t) != nil {
			continue
		}
		m.conditions.Upsert(Condition{
			Type:     t,
			Status:   metav1.ConditionUnknown,
			Severity: m.set.Severity(t),
		}, m.clock)
	}
}

// GetCondition returns the condition of the given type, or nil.
func (m *Manager) GetCondition(t ConditionType) *Condition {
	return m.conditions.Get(t)
}

// GetTopLevelCondition returns the happy condition. It panics if the conditions were never
// initialized with it.
func (m *Manager) GetTopLevelCondition() *Condition {
	cond := m.conditions.Get(m.set.happy)
	if cond == nil {
		panic(fmt.Sprintf("conditions: top level condition %q is not initialized", m.set.happy))
	}
	return cond
}

// IsHappy reports whether the happy condition is True.
func (m *Manager) IsHappy() bool {
	return m.GetTopLevelCondition().IsTrue()
}

// MarkTrue sets t to True, clearing reason and message, and recomputes the happy condition.
func (m *Manager) MarkTrue(t ConditionType) {
	m.set.markTrue(m.conditions, t, "", "", m.clock)
	m.recomputeHappiness(t)
}

// MarkTrueWithReason sets t to True while keeping a reason and message, and recomputes the
// happy condition.
func (m *Manager) MarkTrueWithReason(t ConditionType, reason, messageFormat string, messageA ...interface{}) {
	m.set.markTrue(m.conditions, t, reason, fmt.Sprintf(messageFormat, messageA...), m.clock)
	m.recomputeHappiness(t)
}

// MarkFalse sets t to False. When t is a dependent the happy condition is set False with the
// same reason and message regardless of the other dependents.
func (m *Manager) MarkFalse(t ConditionType, reason, messageFormat string, messageA ...interface{}) {
	message := fmt.Sprintf(messageFormat, messageA...)
	m.set.markFalse(m.conditions, t, reason, message, m.clock)

	if m.set.IsDependent(t) {
		m.setHappy(metav1.ConditionFalse, reason, message)
	}
}

// MarkUnknown sets t to Unknown. If another dependent is already False the happy condition
// is moved to False rather than Unknown; otherwise a terminal t moves the happy condition to
// Unknown.
func (m *Manager) MarkUnknown(t ConditionType, reason, messageFormat string, messageA ...interface{}) {
	message := fmt.Sprintf(messageFormat, messageA...)
	m.set.markUnknown(m.conditions, t, reason, message, m.clock)

	if d := m.findUnhappyDependent(); d != nil && d.IsFalse() {
		if !m.GetTopLevelCondition().IsFalse() {
			m.setHappy(metav1.ConditionFalse, reason, message)
		}
		return
	}
	if m.set.IsTerminal(t) {
		m.setHappy(metav1.ConditionUnknown, reason, message)
	}
}

// findUnhappyDependent returns the most unhappy non-True dependent: False before Unknown,
// then the latest transition. The first one found wins ties. The store is not reordered.
func (m *Manager) findUnhappyDependent() *Condition {
	var worst *Condition
	for i := range *m.conditions {
		cond := &(*m.conditions)[i]
		if cond.Type == m.set.happy || !m.set.IsTerminal(cond.Type) || cond.IsTrue() {
			continue
		}
		if worst == nil || cond.moreUnhappy(worst) {
			worst = cond
		}
	}
	return worst
}

// recomputeHappiness mirrors the worst dependent onto the happy condition, or marks it True
// when every dependent is True. A direct write to the happy type is left alone, and
// informational types never move the happy condition.
func (m *Manager) recomputeHappiness(t ConditionType) {
	if !m.set.IsTerminal(t) {
		return
	}
	if d := m.findUnhappyDependent(); d != nil {
		m.setHappy(d.Status, d.Reason, d.Message)
		return
	}
	if t != m.set.happy {
		m.setHappy(metav1.ConditionTrue, "", "")
	}
}

func (m *Manager) setHappy(status metav1.ConditionStatus, reason, message string) {
	before := metav1.ConditionStatus("")
	if cur := m.conditions.Get(m.set.happy); cur != nil {
		before = cur.Status
	}

	changed := m.conditions.Upsert(Condition{
		Type:     m.set.happy,
		Status:   status,
		Severity: m.set.Severity(m.set.happy),
		Reason:   reason,
		Message:  message,
	}, m.clock)

	if changed && before != status {
		m.log.V(1).Info("happy condition transitioned", "type", m.set.happy, "status", status, "reason", reason)
	}
}

func (s ConditionSet) markTrue(conds *Conditions, t ConditionType, reason, message string, clk clock.PassiveClock) {
	conds.Upsert(Condition{Type: t, Status: metav1.ConditionTrue, Severity: s.Severity(t), Reason: reason, Message: message}, clk)
}

func (s ConditionSet) markFalse(conds *Conditions, t ConditionType, reason, message string, clk clock.PassiveClock) {
	conds.Upsert(Condition{Type: t, Status: metav1.ConditionFalse, Severity: s.Severity(t), Reason: reason, Message: message}, clk)
}

func (s ConditionSet) markUnknown(conds *Conditions, t ConditionType, reason, message string, clk clock.PassiveClock) {
	conds.Upsert(Condition{Type: t, Status: metav1.ConditionUnknown, Severity: s.Severity(t), Reason: reason, Message: message}, clk)
}
