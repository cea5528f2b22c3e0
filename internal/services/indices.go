package services

import (
	"context"

	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
)

// indexSnapshot is a point-in-time view of the latest cost index per system.
// It satisfies industry.CostIndices.
type indexSnapshot map[int64]*types.IndustryIndex

func (s indexSnapshot) CostIndex(systemID int64, activity string) (float64, bool) {
	row, ok := s[systemID]
	if !ok || row == nil {
		return 0, false
	}
	switch activity {
	case types.ActivityManufacturing:
		return row.Manufacturing, true
	case types.ActivityReaction:
		return row.Reaction, true
	default:
		return 0, false
	}
}

// loadIndexSnapshot pulls the newest index row for each system.
func loadIndexSnapshot(ctx context.Context, indices repos.IndustryIndexRepo, systemIDs []int64) (indexSnapshot, error) {
	out := indexSnapshot{}
	for _, systemID := range systemIDs {
		if _, done := out[systemID]; done {
			continue
		}
		row, err := indices.Latest(ctx, nil, systemID)
		if err != nil {
			return nil, err
		}
		out[systemID] = row
	}
	return out, nil
}
