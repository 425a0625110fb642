package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// HistoryAction tags what kind of mutation a history entry records
type HistoryAction string

const (
	HistoryActionCreate HistoryAction = "CREATE"
	HistoryActionUpdate HistoryAction = "UPDATE"
	HistoryActionDelete HistoryAction = "DELETE"
)

// IsValid checks if the action is a valid HistoryAction
func (a HistoryAction) IsValid() bool {
	return a == HistoryActionCreate || a == HistoryActionUpdate || a == HistoryActionDelete
}

// PaymentSnapshot is a typed before/after capture of a payment transaction's
// audited fields. Volatile timestamps (created_at/updated_at) are deliberately
// excluded so diffs only reflect meaningful changes.
// Stored as JSONB via the Valuer/Scanner implementations below.
type PaymentSnapshot struct {
	OrderID     uuid.UUID       `json:"order_id"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Method      PaymentMethod   `json:"payment_method"`
	PaymentDate time.Time       `json:"payment_date"`
	DueDate     *time.Time      `json:"due_date,omitempty"`
	Status      PaymentStatus   `json:"status,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// Value implements driver.Valuer for GORM to store as JSONB
func (s *PaymentSnapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for GORM to read from JSONB
func (s *PaymentSnapshot) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentSnapshot: unsupported type")
	}

	if len(bytes) == 0 {
		return nil
	}

	return json.Unmarshal(bytes, s)
}

// FieldChange is a single field-level difference between two snapshots
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// PaymentHistoryEntry is an immutable audit record of a payment mutation.
// Entries are write-once: the history store exposes no update or delete.
type PaymentHistoryEntry struct {
	ID        uuid.UUID        `json:"id"`
	PaymentID uuid.UUID        `json:"payment_id"`
	OrderID   uuid.UUID        `json:"order_id"`
	Action    HistoryAction    `json:"action"`
	OldValues *PaymentSnapshot `json:"old_values,omitempty"`
	NewValues *PaymentSnapshot `json:"new_values,omitempty"`
	ChangedBy *uuid.UUID       `json:"changed_by"`
	ChangedAt time.Time        `json:"changed_at"`
	Notes     string           `json:"notes,omitempty"`
}

func newHistoryEntry(paymentID, orderID uuid.UUID, action HistoryAction, changedBy uuid.UUID, notes string) *PaymentHistoryEntry {
	e := &PaymentHistoryEntry{
		ID:        uuid.New(),
		PaymentID: paymentID,
		OrderID:   orderID,
		Action:    action,
		ChangedAt: time.Now(),
		Notes:     notes,
	}
	if changedBy != uuid.Nil {
		e.ChangedBy = &changedBy
	}
	return e
}

// NewCreateEntry records the creation of a payment transaction
func NewCreateEntry(payment *PaymentTransaction, changedBy uuid.UUID, notes string) (*PaymentHistoryEntry, error) {
	if payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	e := newHistoryEntry(payment.ID, payment.OrderID, HistoryActionCreate, changedBy, notes)
	e.NewValues = payment.Snapshot()
	return e, nil
}

// NewUpdateEntry records an update with before and after snapshots
func NewUpdateEntry(paymentID, orderID uuid.UUID, old, new *PaymentSnapshot, changedBy uuid.UUID, notes string) (*PaymentHistoryEntry, error) {
	if old == nil || new == nil {
		return nil, shared.NewDomainError("INVALID_SNAPSHOT", "Update entries require both old and new values")
	}
	e := newHistoryEntry(paymentID, orderID, HistoryActionUpdate, changedBy, notes)
	e.OldValues = old
	e.NewValues = new
	return e, nil
}

// NewDeleteEntry records the deletion (reversal) of a payment transaction
func NewDeleteEntry(payment *PaymentTransaction, changedBy uuid.UUID, notes string) (*PaymentHistoryEntry, error) {
	if payment == nil {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Payment cannot be nil")
	}
	e := newHistoryEntry(payment.ID, payment.OrderID, HistoryActionDelete, changedBy, notes)
	e.OldValues = payment.Snapshot()
	return e, nil
}

// Diff derives the field-level changes between the entry's snapshots.
// For Create entries every new field appears with an empty old value; for
// Delete entries every old field appears with an empty new value. The
// comparison is exhaustive over the snapshot's typed fields.
func (e *PaymentHistoryEntry) Diff() []FieldChange {
	old := e.OldValues
	new := e.NewValues

	fields := []struct {
		name string
		old  string
		new  string
	}{
		{"amount_paid", snapshotAmount(old), snapshotAmount(new)},
		{"payment_method", snapshotMethod(old), snapshotMethod(new)},
		{"payment_date", snapshotDate(old), snapshotDate(new)},
		{"due_date", snapshotDueDate(old), snapshotDueDate(new)},
		{"status", snapshotStatus(old), snapshotStatus(new)},
		{"notes", snapshotNotes(old), snapshotNotes(new)},
	}

	changes := make([]FieldChange, 0, len(fields))
	for _, f := range fields {
		if f.old != f.new {
			changes = append(changes, FieldChange{Field: f.name, Old: f.old, New: f.new})
		}
	}
	return changes
}

func snapshotAmount(s *PaymentSnapshot) string {
	if s == nil {
		return ""
	}
	return s.AmountPaid.String()
}

func snapshotMethod(s *PaymentSnapshot) string {
	if s == nil {
		return ""
	}
	return string(s.Method)
}

func snapshotDate(s *PaymentSnapshot) string {
	if s == nil {
		return ""
	}
	return s.PaymentDate.Format(time.RFC3339)
}

func snapshotDueDate(s *PaymentSnapshot) string {
	if s == nil || s.DueDate == nil {
		return ""
	}
	return s.DueDate.Format(time.RFC3339)
}

func snapshotStatus(s *PaymentSnapshot) string {
	if s == nil {
		return ""
	}
	return string(s.Status)
}

func snapshotNotes(s *PaymentSnapshot) string {
	if s == nil {
		return ""
	}
	return s.Notes
}
