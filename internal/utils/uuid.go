// SPDX-License-Identifier: Apache-2.0

// Package utils provides small general-purpose helpers shared across
// fieldsync packages.
package utils

import "github.com/google/uuid"

// UUIDGenerator produces time-ordered identifiers for sync queue entries.
// UUIDv7 keeps queue ids roughly sortable by creation time, which makes logs
// and manual queue inspection easier to follow.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
