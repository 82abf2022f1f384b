package service

import (
	"context"
	"fmt"
	"time"

	bookings "staybook/internal/bookings/service"
	"staybook/pkg/config"
	"staybook/pkg/model"
)

const (
	ExpiryReason = "reservation expired — no payment received within 24 hours"

	systemActorID = "reaper"
)

// StaleFinder selects PENDING bookings created before a cutoff, oldest first.
type StaleFinder interface {
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*model.Booking, error)
}

type Reaper struct {
	finder   StaleFinder
	bookings bookings.BookingService
	cfg      *config.Config
	now      func() time.Time
}

func NewReaper(finder StaleFinder, bookingService bookings.BookingService, cfg *config.Config) *Reaper {
	return &Reaper{
		finder:   finder,
		bookings: bookingService,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sweep cancels every stale PENDING booking and returns how many it actually
// cancelled. Selection is paged by ReaperBatchSize, oldest first, until the
// store runs out. A booking that was confirmed or cancelled in the meantime is
// a no-op and is not counted.
func (r *Reaper) Sweep(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.cfg.StaleBookingAfter)
	seen := make(map[string]struct{})
	cancelled, left := 0, 0

	for {
		// Bookings that failed to expire stay PENDING and sort first, so the
		// page is widened by that many to reach the next unseen batch.
		limit := r.cfg.ReaperBatchSize + left
		page, err := r.finder.FindStalePending(ctx, cutoff, limit)
		if err != nil {
			r.cfg.Log.Error("Failed to select stale bookings", "cutoff", cutoff, "error", err)
			return cancelled, fmt.Errorf("failed to select stale bookings: %w", err)
		}

		fresh := 0
		for i, b := range page {
			if ctx.Err() != nil {
				r.cfg.Log.Warn("Sweep interrupted", "cancelled", cancelled, "remaining", len(page)-i)
				return cancelled, nil
			}
			if _, ok := seen[b.ID]; ok {
				continue
			}
			seen[b.ID] = struct{}{}
			fresh++
			if r.expire(ctx, b) {
				cancelled++
			} else {
				left++
			}
		}

		if len(page) < limit || fresh == 0 {
			break
		}
	}

	r.cfg.Log.Info("Reaper sweep finished", "selected", len(seen), "cancelled", cancelled, "cutoff", cutoff)
	return cancelled, nil
}

func (r *Reaper) expire(ctx context.Context, b *model.Booking) bool {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReaperItemTimeout)
	defer cancel()

	result, err := r.bookings.Cancel(ctx, model.SystemActor(systemActorID), b.ID, ExpiryReason)
	if err != nil {
		r.cfg.Log.Error("Failed to expire booking",
			"booking_id", b.ID,
			"created_at", b.CreatedAt,
			"error", err,
		)
		return false
	}
	return result.Changed
}
