// SPDX-License-Identifier: Apache-2.0

package service

// NetworkStatus reports the last known connectivity state. Satisfied by
// *netmon.Monitor.
type NetworkStatus interface {
	Online() bool
}
