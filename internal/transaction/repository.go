package transaction

import (
	"context"
	"fmt"

	"github.com/hackgods/practice-scheduling-billing/internal/apperror"
)

var ErrTransactionNotFound = fmt.Errorf("transaction %w", apperror.ErrNotFound)

type Repository interface {
	NextID(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id int64) (*Transaction, error)
	List(ctx context.Context) ([]Transaction, error)

	// Writes must not apply once ctx is done.
	Insert(ctx context.Context, t Transaction) error
	Save(ctx context.Context, t Transaction) error
	Delete(ctx context.Context, id int64) error
}
