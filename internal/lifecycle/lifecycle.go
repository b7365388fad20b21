// Package lifecycle derives auction phases and countdowns from wall-clock time.
// Everything here is pure: callers pass in "now".
package lifecycle

import (
	"time"

	model "live-auction/internal/models"
)

const (
	msPerSecond = int64(1000)
	msPerMinute = 60 * msPerSecond
	msPerHour   = 60 * msPerMinute
	msPerDay    = 24 * msPerHour
)

// Phase returns FUTURE before start, PRESENT within [start, end], PAST after end.
func Phase(start, end, now time.Time) model.Phase {
	switch {
	case now.Before(start):
		return model.PhaseFuture
	case !now.After(end):
		return model.PhasePresent
	default:
		return model.PhasePast
	}
}

// TimeRemaining splits the millisecond delta until end into days, hours, minutes
// and seconds. A zero or negative delta yields all zeros.
func TimeRemaining(end, now time.Time) model.TimeLeft {
	delta := end.Sub(now).Milliseconds()
	if delta <= 0 {
		return model.TimeLeft{}
	}

	return model.TimeLeft{
		Days:    delta / msPerDay,
		Hours:   (delta % msPerDay) / msPerHour,
		Minutes: (delta % msPerHour) / msPerMinute,
		Seconds: (delta % msPerMinute) / msPerSecond,
	}
}

// PhaseOf is Phase applied to an auction's window
func PhaseOf(auction model.Auction, now time.Time) model.Phase {
	return Phase(auction.StartTime, auction.EndTime, now)
}

// Timer returns the phase and countdown of one auction
func Timer(auction model.Auction, now time.Time) model.AuctionTimer {
	return model.AuctionTimer{
		AuctionID: auction.ID,
		Phase:     PhaseOf(auction, now),
		TimeLeft:  TimeRemaining(auction.EndTime, now),
	}
}

// Timers returns one timer per auction, in the order given
func Timers(auctions []model.Auction, now time.Time) []model.AuctionTimer {
	timers := make([]model.AuctionTimer, 0, len(auctions))
	for _, a := range auctions {
		timers = append(timers, Timer(a, now))
	}
	return timers
}
