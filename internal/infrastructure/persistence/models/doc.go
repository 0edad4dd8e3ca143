// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Key Principles:
// 1. Domain entities should be free of GORM tags and infrastructure concerns
// 2. Persistence models contain all GORM annotations and table mappings
// 3. Mappers convert between domain entities and persistence models
// 4. Repositories use persistence models for database operations
//
// Structure:
// - base.go: Base persistence models (BaseModel, TenantAggregateModel)
// - stock.go: Ledger rows and journal entries
// - inventory.go: Reservations, transfers, counts and adjustments
// - traceability.go: Lots and serial numbers
// - reorder.go: Reorder rules and suggestions
// - outbox.go: Outbox pattern model for event delivery
//
// The schema of record lives in the SQL migrations; All feeds AutoMigrate for local
// development and tests.
package models
