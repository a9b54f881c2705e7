// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package conditions

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ConditionType names a condition tracked on a resource status.
type ConditionType string

func (t ConditionType) String() string {
	return string(t)
}

// ConditionSeverity expresses how much a condition's failure matters.
type ConditionSeverity string

const (
	// ConditionSeverityError specifies that a failure of the condition is an error.
	// It is the empty string so that the default is omitted when serialized.
	ConditionSeverityError ConditionSeverity = ""
	// ConditionSeverityWarning specifies that a failure of the condition is a warning.
	ConditionSeverityWarning ConditionSeverity = "Warning"
	// ConditionSeverityInfo specifies that a failure of the condition is informational.
	ConditionSeverityInfo ConditionSeverity = "Info"
)

// Condition is a single observation of a resource's state.
type Condition struct {
	// Type of condition.
	// +required
	Type ConditionType `json:"type"`
	// Status of the condition, one of True, False, Unknown.
	// +kubebuilder:validation:Enum=True;False;Unknown
	// +required
	Status metav1.ConditionStatus `json:"status"`
	// Severity of the condition when it is not True. Empty means Error.
	// +optional
	Severity ConditionSeverity `json:"severity,omitempty"`
	// LastTransitionTime is the last time the observable value of the condition changed.
	// +optional
	LastTransitionTime *metav1.Time `json:"lastTransitionTime,omitempty"`
	// Reason is a one-word CamelCase reason for the last transition.
	// +optional
	Reason string `json:"reason,omitempty"`
	// Message is a human readable explanation of the last transition.
	// +optional
	Message string `json:"message,omitempty"`
}

// IsTrue reports whether the condition status is True.
func (c *Condition) IsTrue() bool {
	return c != nil && c.Status == metav1.ConditionTrue
}

// IsFalse reports whether the condition status is False.
func (c *Condition) IsFalse() bool {
	return c != nil && c.Status == metav1.ConditionFalse
}

// IsUnknown reports whether the condition status is Unknown. An unset status counts as Unknown.
func (c *Condition) IsUnknown() bool {
	return c != nil && !c.IsTrue() && !c.IsFalse()
}

// SameAs compares every field except LastTransitionTime.
func (c *Condition) SameAs(other *Condition) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.Type == other.Type &&
		c.Status == other.Status &&
		c.Severity == other.Severity &&
		c.Reason == other.Reason &&
		c.Message == other.Message
}

// unhappiness ranks statuses: False outranks Unknown, Unknown outranks True.
func (c *Condition) unhappiness() int {
	switch {
	case c.IsFalse():
		return 2
	case c.IsTrue():
		return 0
	default:
		return 1
	}
}

// moreUnhappy reports whether c strictly outranks other. Equal statuses are broken by the later
// transition time; a missing timestamp on either side leaves them equal.
// metav1.Time serializes at second precision, so transitions within the same second tie
// once the status has round-tripped through the API server.
func (c *Condition) moreUnhappy(other *Condition) bool {
	if a, b := c.unhappiness(), other.unhappiness(); a != b {
		return a > b
	}
	if c.LastTransitionTime == nil || other.LastTransitionTime == nil {
		return false
	}
	return other.LastTransitionTime.Before(c.LastTransitionTime)
}

// ToMetav1 converts the condition for use with the apimachinery condition helpers.
// Severity has no metav1 counterpart and is dropped.
func (c *Condition) ToMetav1(generation int64) metav1.Condition {
	out := metav1.Condition{
		Type:               string(c.Type),
		Status:             c.Status,
		ObservedGeneration: generation,
		Reason:             c.Reason,
		Message:            c.Message,
	}
	if out.Status == "" {
		out.Status = metav1.ConditionUnknown
	}
	if c.LastTransitionTime != nil {
		out.LastTransitionTime = *c.LastTransitionTime
	}
	// metav1.Condition requires a reason.
	if out.Reason == "" {
		out.Reason = string(out.Status)
	}
	return out
}
