package activity

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type Service struct {
	agg    *Aggregator
	logger zerolog.Logger
}

func NewService(agg *Aggregator, logger zerolog.Logger) *Service {
	return &Service{agg: agg, logger: logger}
}

// Feed returns the filtered feed of ownerID. Failures are logged and yield
// an empty feed.
func (s *Service) Feed(ctx context.Context, ownerID uuid.UUID, f Filter) Feed {
	feed, err := s.agg.Aggregate(ctx, ownerID)
	if err != nil {
		s.logger.Error().Err(err).Str("owner_id", ownerID.String()).Msg("activity feed aggregation failed")
		return Feed{Items: []Activity{}}
	}
	feed.Items = ApplyFilter(feed.Items, f)
	return feed
}
