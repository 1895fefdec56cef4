package interfaces

import (
	"context"

	"github.com/secmon-lab/tally/pkg/domain/model"
	"github.com/secmon-lab/tally/pkg/domain/types"
)

// Dashboard builds the page model and its figures
type Dashboard interface {
	Page(ctx context.Context) (*model.Page, error)
	Figure(ctx context.Context, id types.ChartID, opts model.ChartOptions) (*model.Figure, error)
}
