package domain

import (
	"errors"
	"fmt"
	"time"
)

// DailyWindow is the length of the volume accounting window of routes and settlement assets.
const DailyWindow = 24 * time.Hour

var (
	ErrInactive = errors.New("inactive")
)

// CapacityError is returned when a debit exceeds the remaining daily capacity.
type CapacityError struct {
	Key       string
	Amount    uint64
	Available uint64
	DailyCap  uint64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf(
		"amount %d exceeds available capacity %d of %s (daily cap %d)",
		e.Amount, e.Available, e.Key, e.DailyCap,
	)
}

// VolumeError reports a credit that would drive the daily volume below zero.
type VolumeError struct {
	Key      string
	Volume   uint64
	Credit   uint64
	DailyCap uint64
}

func (e *VolumeError) Error() string {
	return fmt.Sprintf(
		"credit of %d exceeds accumulated volume %d of %s", e.Credit, e.Volume, e.Key,
	)
}

// DailyCapacity tracks the volume accumulated in the current daily window.
// LastReset is the unix timestamp (seconds) at which the window started.
type DailyCapacity struct {
	DailyCap    uint64
	DailyVolume uint64
	LastReset   int64
}

func NewDailyCapacity(dailyCap uint64, now time.Time) DailyCapacity {
	return DailyCapacity{
		DailyCap:  dailyCap,
		LastReset: now.Unix(),
	}
}

// Expired returns whether the window started at least one day before now.
func (c DailyCapacity) Expired(now time.Time) bool {
	return !now.Before(time.Unix(c.LastReset, 0).Add(DailyWindow))
}

// Available returns the capacity left at the given time, taking a pending rollover into
// account without mutating the receiver.
func (c DailyCapacity) Available(now time.Time) uint64 {
	if c.Expired(now) {
		return c.DailyCap
	}
	if c.DailyVolume >= c.DailyCap {
		return 0
	}
	return c.DailyCap - c.DailyVolume
}

// Rollover resets the volume if the window expired and reports whether it did.
func (c *DailyCapacity) Rollover(now time.Time) bool {
	if !c.Expired(now) {
		return false
	}
	c.DailyVolume = 0
	c.LastReset = now.Unix()
	return true
}

// Debit resolves a pending rollover and adds amount to the volume.
// The receiver is left untouched if the amount does not fit.
func (c *DailyCapacity) Debit(key string, amount uint64, now time.Time) error {
	available := c.Available(now)
	if amount > available {
		return &CapacityError{
			Key:       key,
			Amount:    amount,
			Available: available,
			DailyCap:  c.DailyCap,
		}
	}
	c.Rollover(now)
	c.DailyVolume += amount
	return nil
}

// Credit gives back amount to the window identified by windowStart.
// Volumes of an already rolled over window are gone, so crediting them is a no-op and
// false is returned.
func (c *DailyCapacity) Credit(key string, amount uint64, windowStart int64) (bool, error) {
	if c.LastReset != windowStart {
		return false, nil
	}
	if amount > c.DailyVolume {
		return false, &VolumeError{
			Key:      key,
			Volume:   c.DailyVolume,
			Credit:   amount,
			DailyCap: c.DailyCap,
		}
	}
	c.DailyVolume -= amount
	return true, nil
}
