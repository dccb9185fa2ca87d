/*
summary.go - Rider-facing aggregates

PURPOSE:
  Computes the history header the rider sees: total rides, spend,
  distance, and tokens earned. A pure fold over the rider's rides,
  recomputed on each read.

SCOPE NOTE:
  Totals cover ALL the rider's rides regardless of status - a cancelled
  ride still counts toward totalRides and its estimated fare toward
  totalSpent. That matches the product's history screen, which shows
  every booking. Recomputing per read is fine at rider scale; if ride
  counts ever explode this becomes an incrementally maintained view
  (a scalability caveat, not a correctness one).
*/
package ride

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/riide/ride-engine/ledger"
)

// Summary aggregates a rider's full ride history.
type Summary struct {
	TotalRides    int
	TotalSpent    decimal.Decimal
	TotalEarned   decimal.Decimal
	TotalDistance decimal.Decimal
}

// Summarize folds rides into a Summary. Zero-valued fields (absent
// numerics) contribute zero, which decimal's zero value already does.
func Summarize(rides []Ride) Summary {
	s := Summary{TotalRides: len(rides)}
	for _, r := range rides {
		s.TotalSpent = s.TotalSpent.Add(r.FareAmount)
		s.TotalEarned = s.TotalEarned.Add(r.RiideEarned).Add(r.EveeEarned)
		s.TotalDistance = s.TotalDistance.Add(r.DistanceKm)
	}
	return s
}

// SummaryFor loads a rider's rides and folds them.
func (s *Service) SummaryFor(ctx context.Context, riderID ledger.AccountID) (Summary, error) {
	rides, err := s.rides.ByRider(ctx, riderID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(rides), nil
}
