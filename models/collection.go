// SPDX-License-Identifier: Apache-2.0

package models

// Collection declares a named record collection and the record fields that
// get a secondary equality index in the local store. Index values are
// extracted from the record document on every write, so only top-level
// string or numeric fields should be listed.
type Collection struct {
	Name    string
	Indexes []string
}

// Collections enumerates every collection the local store accepts. The set
// mirrors the project-management backend schema: adding a collection here is
// enough to start storing and syncing it, no migration required.
var Collections = []Collection{
	{Name: "projects", Indexes: []string{"status"}},
	{Name: "floor_plans", Indexes: []string{"project_id"}},
	{Name: "markups", Indexes: []string{"floor_plan_id", "project_id"}},
	{Name: "budget_items", Indexes: []string{"project_id", "category"}},
	{Name: "cable_schedules", Indexes: []string{"project_id"}},
	{Name: "handover_items", Indexes: []string{"project_id", "status"}},
	{Name: "attachments", Indexes: []string{"record_id", "project_id"}},
}

// CollectionByName looks up a declared collection.
func CollectionByName(name string) (Collection, bool) {
	for _, c := range Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}

// HasIndex reports whether the collection declares the named secondary index.
func (c Collection) HasIndex(name string) bool {
	for _, idx := range c.Indexes {
		if idx == name {
			return true
		}
	}
	return false
}
