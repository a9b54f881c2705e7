// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"github.com/apollo/readiness/pkg/conditions"
)

// ConditionReady is the happy condition type shared by most resource kinds.
const ConditionReady conditions.ConditionType = "Ready"

// Status is the common status block embedded by resource kinds.
type Status struct {
	// ObservedGeneration is the 'Generation' of the resource that was last processed by the controller.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
	// Conditions are the latest available observations of the resource's current state.
	// +optional
	Conditions conditions.Conditions `json:"conditions,omitempty"`
	// Annotations carry additional status fields the reconciler wants to expose.
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`
}

// GetConditions returns the live condition store.
func (s *Status) GetConditions() *conditions.Conditions {
	return &s.Conditions
}

// InitializeConditions seeds the happy and dependent conditions of set as Unknown. Existing
// conditions are left as they are.
func (s *Status) InitializeConditions(set conditions.ConditionSet) {
	if len(s.Conditions) == 0 {
		s.Conditions = set.Initial()
		return
	}
	set.Manage(&s.Conditions).InitializeConditions()
}

// GetCondition returns the condition of the given type, or nil.
func (s *Status) GetCondition(t conditions.ConditionType) *conditions.Condition {
	return s.Conditions.Get(t)
}
