// Package audit records the actions the framework takes on behalf of
// requesting services: queries dispatched, mappings changed, metadata
// edited. Events are transport-agnostic so stores and sinks can fan out.
package audit

import "time"

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// anything that changes which person data a service can reach.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and
	// operational visibility. These can be sampled with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions.
type Event struct {
	Category      EventCategory
	Timestamp     time.Time
	Action        string
	Subject       string // entity the action concerns (person identifier, mapping key, entity name)
	Service       string // authenticated caller from the request context
	Outcome       string // e.g. "ok", "partial", "failed", "conflict"
	Reason        string
	CorrelationID string
}

type AuditEvent string

const (
	// Query events
	EventQueryReceived  AuditEvent = "query_received"
	EventQueryCompleted AuditEvent = "query_completed"
	EventQueryFailed    AuditEvent = "query_failed"

	// Identity mapping events
	EventMappingRegistered AuditEvent = "mapping_registered"
	EventMappingConflict   AuditEvent = "mapping_conflict"
	EventMappingDeleted    AuditEvent = "mapping_deleted"

	// Metadata registry events
	EventEntityCreated  AuditEvent = "mdr_entity_created"
	EventEntityUpdated  AuditEvent = "mdr_entity_updated"
	EventEntityDeleted  AuditEvent = "mdr_entity_deleted"
	EventRegistryImport AuditEvent = "mdr_registry_imported"
	EventRegistryExport AuditEvent = "mdr_registry_exported"
)

// eventCategories maps each audit event to its category. Mapping and
// metadata mutations change what person data is reachable, so they are
// compliance events; query traffic is operational.
var eventCategories = map[AuditEvent]EventCategory{
	EventMappingRegistered: CategoryCompliance,
	EventMappingConflict:   CategoryCompliance,
	EventMappingDeleted:    CategoryCompliance,
	EventEntityCreated:     CategoryCompliance,
	EventEntityUpdated:     CategoryCompliance,
	EventEntityDeleted:     CategoryCompliance,
	EventRegistryImport:    CategoryCompliance,

	EventQueryReceived:  CategoryOperations,
	EventQueryCompleted: CategoryOperations,
	EventQueryFailed:    CategoryOperations,
	EventRegistryExport: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}
