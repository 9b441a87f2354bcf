package appointment

import (
	"context"
	"fmt"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
)

var ErrAppointmentNotFound = fmt.Errorf("appointment %w", apperror.ErrNotFound)

// Repository is the persistence boundary of the store. The in-memory
// implementation simulates network latency; PgRepository is the durable one.
type Repository interface {
	NextID(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	List(ctx context.Context) ([]Appointment, error)

	// Insert and Save write the whole record. They must not apply the write
	// when ctx is already done.
	Insert(ctx context.Context, a Appointment) error
	Save(ctx context.Context, a Appointment) error

	InsertEvent(ctx context.Context, ev EventLog) error
}
