package layout

import (
	"math"
	"time"
)

const (
	day = 24 * time.Hour

	DefaultPixelsPerDay = 16
	DefaultDaysBefore   = 7
	DefaultDaysAhead    = 56

	MinPixelsPerDay = 4
	MaxPixelsPerDay = 80
	zoomFactor      = 1.3
)

// Viewport maps calendar time onto horizontal pixels.
type Viewport struct {
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	PixelsPerDay float64   `json:"pixels_per_day"`
	ScrollX      float64   `json:"scroll_x"`
	ScrollY      float64   `json:"scroll_y"`
}

// TimeRange summarizes the visible window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Days  int       `json:"days"`
}

// DefaultViewport spans one week before now to eight weeks after.
func DefaultViewport(now time.Time) Viewport {
	return NewViewport(now, DefaultDaysBefore, DefaultDaysAhead, DefaultPixelsPerDay)
}

// NewViewport spans daysBefore days before now to daysAhead days after.
func NewViewport(now time.Time, daysBefore, daysAhead int, pixelsPerDay float64) Viewport {
	return Viewport{
		StartDate:    now.AddDate(0, 0, -daysBefore),
		EndDate:      now.AddDate(0, 0, daysAhead),
		PixelsPerDay: pixelsPerDay,
	}
}

// DateToX is the pixel offset of t from the viewport start.
func (v Viewport) DateToX(t time.Time) float64 {
	days := float64(t.Sub(v.StartDate)) / float64(day)
	return days * v.PixelsPerDay
}

// XToDate inverts DateToX. A non-positive scale maps everything to StartDate.
func (v Viewport) XToDate(x float64) time.Time {
	if v.PixelsPerDay <= 0 {
		return v.StartDate
	}
	days := x / v.PixelsPerDay
	return v.StartDate.Add(time.Duration(days * float64(day)))
}

func (v Viewport) ZoomIn() Viewport {
	v.PixelsPerDay = math.Min(v.PixelsPerDay*zoomFactor, MaxPixelsPerDay)
	return v
}

func (v Viewport) ZoomOut() Viewport {
	v.PixelsPerDay = math.Max(v.PixelsPerDay/zoomFactor, MinPixelsPerDay)
	return v
}

// PanTo keeps the visible span and places t a quarter of the way in.
func (v Viewport) PanTo(t time.Time) Viewport {
	span := v.EndDate.Sub(v.StartDate)
	v.StartDate = t.Add(-span / 4)
	v.EndDate = v.StartDate.Add(span)
	return v
}

// SetRange shows one week of history and the given number of weeks ahead.
func (v Viewport) SetRange(weeks int, now time.Time) Viewport {
	v.StartDate = now.AddDate(0, 0, -DefaultDaysBefore)
	v.EndDate = now.AddDate(0, 0, weeks*7)
	return v
}

func (v Viewport) TimeRange() TimeRange {
	return TimeRange{
		Start: v.StartDate,
		End:   v.EndDate,
		Days:  int(math.Ceil(float64(v.EndDate.Sub(v.StartDate)) / float64(day))),
	}
}
