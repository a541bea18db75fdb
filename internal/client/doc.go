// SPDX-License-Identifier: Apache-2.0

// Package client implements the field client application runtime.
//
// It wires the local storages, the backend adapter, the connectivity
// monitor, the client services and the background workers into a single
// process lifecycle.
package client
