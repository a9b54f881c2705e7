// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/url"

	"github.com/apollo/readiness/pkg/conditions"
)

// ConditionSinkProvided is True once a sink URI has been configured on the source.
const ConditionSinkProvided conditions.ConditionType = "SinkProvided"

// SourceConditions is the baseline condition set of a source: Ready depends on SinkProvided.
var SourceConditions = conditions.MustConditionSet(ConditionReady, ConditionSinkProvided)

// SourceSpec is the common spec of resources that emit events to a sink.
type SourceSpec struct {
	// Sink is a reference to an object that resolves to a URI to use as the sink.
	// +optional
	Sink *Destination `json:"sink,omitempty"`
	// CloudEventOverrides defines overrides to control the output format and
	// modifications of the event sent to the sink.
	// +optional
	CloudEventOverrides *CloudEventOverrides `json:"ceOverrides,omitempty"`
}

// CloudEventOverrides controls the output format of the events produced by a source.
type CloudEventOverrides struct {
	// Extensions are added or overridden as attribute extensions on each outbound event.
	// +optional
	Extensions map[string]string `json:"extensions,omitempty"`
}

// CloudEventAttributes are the attributes a source uses for its events.
type CloudEventAttributes struct {
	// Type of the events.
	Type string `json:"type,omitempty"`
	// Source of the events.
	Source string `json:"source,omitempty"`
}

// SourceStatus is how sources are expected to embed sink tracking in their status.
type SourceStatus struct {
	Status `json:",inline"`
	// SinkURI is the current active sink URI configured for the source.
	// +optional
	SinkURI string `json:"sinkUri,omitempty"`
	// CloudEventAttributes are the attributes the source uses for its events.
	// +optional
	CloudEventAttributes []CloudEventAttributes `json:"ceAttributes,omitempty"`
}

// GetConditionSet returns SourceConditions. Statuses that embed SourceStatus with a wider
// condition set shadow this method.
func (s *SourceStatus) GetConditionSet() conditions.ConditionSet {
	return SourceConditions
}

// GetSourceStatus returns s.
func (s *SourceStatus) GetSourceStatus() *SourceStatus {
	return s
}

// SinkManager is implemented by statuses that carry a SourceStatus. The accessor's condition
// set is expected to declare ConditionSinkProvided as a dependent.
type SinkManager interface {
	conditions.Accessor
	GetSourceStatus() *SourceStatus
}

// ReasonSinkEmpty is used when MarkSink is handed no URI.
const ReasonSinkEmpty = "SinkEmpty"

// MarkSink records the sink URI and marks SinkProvided True. A nil uri is treated as
// MarkNoSink with ReasonSinkEmpty.
func MarkSink(s SinkManager, uri *url.URL, opts ...conditions.Option) {
	if uri == nil {
		MarkNoSink(s, ReasonSinkEmpty, "sink URI is empty", opts...)
		return
	}
	s.GetSourceStatus().SinkURI = uri.String()
	conditions.Manage(s, opts...).MarkTrue(ConditionSinkProvided)
}

// MarkNoSink clears the sink URI and marks SinkProvided False.
func MarkNoSink(s SinkManager, reason, message string, opts ...conditions.Option) {
	s.GetSourceStatus().SinkURI = ""
	conditions.Manage(s, opts...).MarkFalse(ConditionSinkProvided, reason, "%s", message)
}
