// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	duckv1 "github.com/apollo/readiness/pkg/apis/duck/v1"
	"github.com/apollo/readiness/pkg/conditions"
)

const (
	// ConditionReady is the top-level readiness of a resource, derived from its dependents.
	ConditionReady = duckv1.ConditionReady

	// Agent connection / readiness
	ConditionAgentConnected conditions.ConditionType = "AgentConnected"
	// Spec observation / drift tracking
	ConditionSpecObserved conditions.ConditionType = "SpecObserved"
	// Spec warnings (e.g., semantic mismatches or deprecated fields); informational only.
	ConditionSpecWarning conditions.ConditionType = "SpecWarning"
	// Process lifecycle
	ConditionProcessStarted conditions.ConditionType = "ProcessStarted"
	ConditionHealthy        conditions.ConditionType = "Healthy"

	// Deployment fan-out
	ConditionDevicesSelected  conditions.ConditionType = "DevicesSelected"
	ConditionProcessesApplied conditions.ConditionType = "ProcessesApplied"
	ConditionProcessesReady   conditions.ConditionType = "ProcessesReady"
	// Progressing is informational: True while processes are still converging.
	ConditionProgressing conditions.ConditionType = "Progressing"
)

var (
	// DeviceProcessConditions governs DeviceProcess readiness.
	DeviceProcessConditions = conditions.MustConditionSet(ConditionReady,
		ConditionAgentConnected,
		ConditionSpecObserved,
		ConditionProcessStarted,
		ConditionHealthy,
	)

	// DeploymentConditions governs DeviceProcessDeployment readiness.
	DeploymentConditions = conditions.MustConditionSet(ConditionReady,
		ConditionDevicesSelected,
		ConditionProcessesApplied,
		ConditionProcessesReady,
	)
)
