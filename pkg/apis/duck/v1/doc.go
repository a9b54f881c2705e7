// Copyright 2025 Apollo
// SPDX-License-Identifier: Apache-2.0

// Package v1 contains shared status and reference shapes that resource kinds embed to get
// condition management, sink tracking and object references without redefining them.
// +kubebuilder:object:generate=true
package v1

//go:generate go run sigs.k8s.io/controller-tools/cmd/controller-gen object paths=.
