/*
Package history records how long each channel's most recent answered call lasted.

A record is opened when a call is accepted and closed when it ends, and is served
by the call-duration HTTP endpoints. One record is kept per channel; a new call in
the same channel replaces it.
*/
package history

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the channel has no record.
var ErrNotFound = errors.New("history: no record for channel")

// Record is the duration entry of one channel.
type Record struct {
	Channel   string     `json:"channel"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt"`

	// Duration is the talk time in whole seconds; for a running call it is the
	// time elapsed so far (see Elapsed).
	Duration int64 `json:"duration"`
}

// Elapsed returns r with Duration filled in for a call that is still running.
func (r Record) Elapsed(now time.Time) Record {
	if r.EndedAt == nil {
		r.Duration = int64(now.Sub(r.StartedAt) / time.Second)
	}
	return r
}

// Finished builds the closing record of a call.
func Finished(channel string, startedAt, endedAt time.Time) Record {
	return Record{
		Channel:   channel,
		StartedAt: startedAt,
		EndedAt:   &endedAt,
		Duration:  int64(endedAt.Sub(startedAt) / time.Second),
	}
}

// Store persists call-duration records.
type Store interface {
	// Begin opens (or replaces) the record of channel.
	Begin(ctx context.Context, channel string, startedAt time.Time) error

	// Finish stores the closing record, inserting it if Begin was never stored.
	Finish(ctx context.Context, rec Record) error

	// Get returns the record of channel or ErrNotFound.
	Get(ctx context.Context, channel string) (Record, error)

	// Reset deletes the record of channel; missing records are not an error.
	Reset(ctx context.Context, channel string) error
}
