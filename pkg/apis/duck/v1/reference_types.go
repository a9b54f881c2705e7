// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"errors"
	"net/url"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ErrEmptyDestination is returned when a Destination carries neither a Ref nor a URI.
var ErrEmptyDestination = errors.New("destination missing ref and uri, expected at least one")

// KReference contains enough information to refer to another object.
// It's a trimmed down version of corev1.ObjectReference.
type KReference struct {
	// Kind of the referent.
	Kind string `json:"kind"`
	// Namespace of the referent. Defaults to the namespace of the object holding the reference.
	// +optional
	Namespace string `json:"namespace,omitempty"`
	// Name of the referent.
	Name string `json:"name"`
	// APIVersion of the referent.
	// +optional
	APIVersion string `json:"apiVersion,omitempty"`
	// Group of the API, without the version. Alternative to APIVersion.
	// +optional
	Group string `json:"group,omitempty"`
}

// ToObjectReference converts the reference to a corev1.ObjectReference.
func (r *KReference) ToObjectReference() corev1.ObjectReference {
	return corev1.ObjectReference{
		Kind:       r.Kind,
		Namespace:  r.Namespace,
		Name:       r.Name,
		APIVersion: r.APIVersion,
	}
}

// Destination is the target of an invocation over HTTP.
type Destination struct {
	// Ref points to an Addressable.
	// +optional
	Ref *KReference `json:"ref,omitempty"`
	// URI is an absolute URL or a URI relative to the one resolved from Ref.
	// +optional
	URI string `json:"uri,omitempty"`
}

// DestinationFromReference builds a Destination from ref, folding Group into APIVersion.
// An APIVersion that already carries a group is kept as is.
func DestinationFromReference(ref KReference) Destination {
	apiVersion := ref.APIVersion
	if apiVersion != "" && !strings.Contains(apiVersion, "/") && ref.Group != "" {
		apiVersion = ref.Group + "/" + apiVersion
	}
	return Destination{
		Ref: &KReference{
			Kind:       ref.Kind,
			Namespace:  ref.Namespace,
			Name:       ref.Name,
			APIVersion: apiVersion,
		},
	}
}

// DestinationFromURI builds a Destination pointing at uri.
func DestinationFromURI(uri *url.URL) Destination {
	return Destination{URI: uri.String()}
}

// Validate checks that the destination can be resolved at all.
func (d *Destination) Validate() error {
	if d.Ref == nil && d.URI == "" {
		return ErrEmptyDestination
	}
	if d.URI != "" {
		if _, err := url.Parse(d.URI); err != nil {
			return err
		}
	}
	return nil
}

// BindingSpec specifies the subject a binding augments.
type BindingSpec struct {
	// Subject references the resource(s) whose spec is augmented.
	Subject Reference `json:"subject"`
}

// Reference points at one object by name, or at a set of objects by selector.
type Reference struct {
	// +optional
	Kind string `json:"kind,omitempty"`
	// +optional
	APIVersion string `json:"apiVersion,omitempty"`
	// +optional
	Namespace string `json:"namespace,omitempty"`
	// Name of the referent. Mutually exclusive with Selector.
	// +optional
	Name string `json:"name,omitempty"`
	// Selector of the referents. Mutually exclusive with Name.
	// +optional
	Selector *metav1.LabelSelector `json:"selector,omitempty"`
}

// ToObjectReference converts the reference. Selector based references have no name.
func (r *Reference) ToObjectReference() corev1.ObjectReference {
	ref := corev1.ObjectReference{
		Kind:       r.Kind,
		APIVersion: r.APIVersion,
		Namespace:  r.Namespace,
	}
	if r.Selector == nil {
		ref.Name = r.Name
	}
	return ref
}
