package shared

import "github.com/google/uuid"

// AggregateRoot is an entity that owns a consistency boundary: it versions
// itself for optimistic locking and records domain events for publication
// after a successful commit.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot is the embeddable implementation of AggregateRoot.
// Pending events live only in memory and are never persisted.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// NewBaseAggregateRoot returns a fresh aggregate at version 1.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

func (a *BaseAggregateRoot) GetVersion() int   { return a.Version }
func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent { return a.domainEvents }
func (a *BaseAggregateRoot) ClearDomainEvents()             { a.domainEvents = nil }

// AuditedAggregateRoot additionally records which staff member created the
// aggregate. A nil CreatedBy means the write came from the system itself.
type AuditedAggregateRoot struct {
	BaseAggregateRoot
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// NewAuditedAggregateRoot builds an aggregate attributed to createdBy.
// uuid.Nil leaves the attribution empty.
func NewAuditedAggregateRoot(createdBy uuid.UUID) AuditedAggregateRoot {
	root := AuditedAggregateRoot{BaseAggregateRoot: NewBaseAggregateRoot()}
	if createdBy != uuid.Nil {
		root.CreatedBy = &createdBy
	}
	return root
}

func (a *AuditedAggregateRoot) SetCreatedBy(userID uuid.UUID) { a.CreatedBy = &userID }
func (a *AuditedAggregateRoot) GetCreatedBy() *uuid.UUID      { return a.CreatedBy }
