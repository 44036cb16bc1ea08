package ports

import "context"

// UnitOfWork runs a function inside a database transaction. The derived
// context passed to fn carries the transaction; repositories pick it up
// transparently. fn returning nil commits, an error rolls back.
//
// Row locks taken inside fn are held until commit or rollback, so no
// external HTTP call may run inside a unit of work.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}
