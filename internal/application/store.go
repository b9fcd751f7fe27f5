package application

import "context"

// Store is the application registry: exactly one aggregate per id, ids never
// reused, enumeration in creation order.
type Store interface {
	Create(ctx context.Context, app *Application) error
	FindByID(ctx context.Context, id string) (*Application, error)
	Save(ctx context.Context, app *Application) error
	List(ctx context.Context) ([]*Application, error)
}
