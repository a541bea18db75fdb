// SPDX-License-Identifier: Apache-2.0

package models

// StorageHealthLevel grades how close the local database is to its
// configured size ceiling.
type StorageHealthLevel string

const (
	StorageHealthy  StorageHealthLevel = "healthy"
	StorageWarning  StorageHealthLevel = "warning"
	StorageCritical StorageHealthLevel = "critical"
	// StorageDanger means new offline writes are refused up front instead
	// of being attempted and failed.
	StorageDanger StorageHealthLevel = "danger"
)

// StorageHealth is an advisory snapshot of local storage capacity. It is not
// an error: only the danger level changes store behavior.
type StorageHealth struct {
	Level       StorageHealthLevel `json:"level"`
	UsedBytes   int64              `json:"used_bytes"`
	LimitBytes  int64              `json:"limit_bytes"`
	UsedPercent float64            `json:"used_percent"`
}
