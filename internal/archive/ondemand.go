// ABOUTME: Salvager that opens the archive only for the duration of a salvage call.
// ABOUTME: Keeps the badger directory lock free for other processes the rest of the time.
package archive

import (
	"context"
	"log/slog"

	"github.com/harperreed/liftlog/internal/schema"
)

// OnDemand implements schema.Salvager by opening the archive in Dir per call.
type OnDemand struct {
	Dir    string
	Logger *slog.Logger
}

var _ schema.Salvager = OnDemand{}

// Salvage opens the archive, stores rows, and closes it again.
func (o OnDemand) Salvage(ctx context.Context, runID, table string, rows []schema.SalvagedRow) error {
	a, err := Open(o.Dir, o.Logger)
	if err != nil {
		return err
	}
	if err := a.Salvage(ctx, runID, table, rows); err != nil {
		_ = a.Close()
		return err
	}
	return a.Close()
}
