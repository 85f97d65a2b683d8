// Package garmintest provides a configurable fake provider client for tests.
package garmintest

import (
	"context"

	"github.com/ripixel/fitpulse/pkg/garmin"
)

// Client implements garmin.Client with overridable function fields. Unset
// fields return empty values, so tests only configure what they assert on.
type Client struct {
	DailyStatsFn       func(ctx context.Context, date string) (*garmin.DailyStats, error)
	SleepDataFn        func(ctx context.Context, date string) (*garmin.SleepData, error)
	HeartRateDayFn     func(ctx context.Context, date string) (*garmin.HeartRateDay, error)
	StressDayFn        func(ctx context.Context, date string) (*garmin.StressDay, error)
	HydrationFn        func(ctx context.Context, date string) (*garmin.Hydration, error)
	HRVSummaryFn       func(ctx context.Context, date string) (*garmin.HRVSummary, error)
	BodyCompositionFn  func(ctx context.Context, date string) (*garmin.BodyComposition, error)
	WeighInsFn         func(ctx context.Context, start, end string) (garmin.WeighIns, error)
	GoalsFn            func(ctx context.Context, status string) ([]garmin.Goal, error)
	ActivitiesFn       func(ctx context.Context, start, limit int) ([]garmin.Activity, error)
	ActivitiesByDateFn func(ctx context.Context, start, end string) ([]garmin.Activity, error)
	ActivityDetailFn   func(ctx context.Context, activityID int64) (*garmin.ActivityDetail, error)
	ProgressSummaryFn  func(ctx context.Context, start, end string) ([]garmin.ProgressEntry, error)
}

var _ garmin.Client = (*Client)(nil)

func (c *Client) DailyStats(ctx context.Context, date string) (*garmin.DailyStats, error) {
	if c.DailyStatsFn != nil {
		return c.DailyStatsFn(ctx, date)
	}
	return &garmin.DailyStats{}, nil
}

func (c *Client) SleepData(ctx context.Context, date string) (*garmin.SleepData, error) {
	if c.SleepDataFn != nil {
		return c.SleepDataFn(ctx, date)
	}
	return &garmin.SleepData{}, nil
}

func (c *Client) HeartRateDay(ctx context.Context, date string) (*garmin.HeartRateDay, error) {
	if c.HeartRateDayFn != nil {
		return c.HeartRateDayFn(ctx, date)
	}
	return &garmin.HeartRateDay{}, nil
}

func (c *Client) StressDay(ctx context.Context, date string) (*garmin.StressDay, error) {
	if c.StressDayFn != nil {
		return c.StressDayFn(ctx, date)
	}
	return &garmin.StressDay{}, nil
}

func (c *Client) Hydration(ctx context.Context, date string) (*garmin.Hydration, error) {
	if c.HydrationFn != nil {
		return c.HydrationFn(ctx, date)
	}
	return &garmin.Hydration{}, nil
}

func (c *Client) HRVSummary(ctx context.Context, date string) (*garmin.HRVSummary, error) {
	if c.HRVSummaryFn != nil {
		return c.HRVSummaryFn(ctx, date)
	}
	return &garmin.HRVSummary{}, nil
}

func (c *Client) BodyComposition(ctx context.Context, date string) (*garmin.BodyComposition, error) {
	if c.BodyCompositionFn != nil {
		return c.BodyCompositionFn(ctx, date)
	}
	return &garmin.BodyComposition{}, nil
}

func (c *Client) WeighIns(ctx context.Context, start, end string) (garmin.WeighIns, error) {
	if c.WeighInsFn != nil {
		return c.WeighInsFn(ctx, start, end)
	}
	return nil, nil
}

func (c *Client) Goals(ctx context.Context, status string) ([]garmin.Goal, error) {
	if c.GoalsFn != nil {
		return c.GoalsFn(ctx, status)
	}
	return nil, nil
}

func (c *Client) Activities(ctx context.Context, start, limit int) ([]garmin.Activity, error) {
	if c.ActivitiesFn != nil {
		return c.ActivitiesFn(ctx, start, limit)
	}
	return nil, nil
}

func (c *Client) ActivitiesByDate(ctx context.Context, start, end string) ([]garmin.Activity, error) {
	if c.ActivitiesByDateFn != nil {
		return c.ActivitiesByDateFn(ctx, start, end)
	}
	return nil, nil
}

func (c *Client) ActivityDetail(ctx context.Context, activityID int64) (*garmin.ActivityDetail, error) {
	if c.ActivityDetailFn != nil {
		return c.ActivityDetailFn(ctx, activityID)
	}
	return &garmin.ActivityDetail{ActivityID: activityID}, nil
}

func (c *Client) ProgressSummary(ctx context.Context, start, end string) ([]garmin.ProgressEntry, error) {
	if c.ProgressSummaryFn != nil {
		return c.ProgressSummaryFn(ctx, start, end)
	}
	return nil, nil
}
