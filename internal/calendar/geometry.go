package calendar

// HoursPerDay is the number of hour rows in every day column.
const HoursPerDay = 24

const minutesPerHour = 60

// DefaultHourHeightPx is the row height used when none is configured.
const DefaultHourHeightPx = 48

// GridGeometry maps time-of-day onto vertical pixel offsets.
type GridGeometry struct {
	HourHeightPx float64 `json:"hour_height_px"`
}

func NewGridGeometry(hourHeightPx float64) GridGeometry {
	if hourHeightPx <= 0 {
		hourHeightPx = DefaultHourHeightPx
	}
	return GridGeometry{HourHeightPx: hourHeightPx}
}

// OffsetPx converts minutes since midnight into a vertical offset.
func (g GridGeometry) OffsetPx(minutes int) float64 {
	return float64(minutes) / minutesPerHour * g.HourHeightPx
}

// HeightPx is the height of a full day column.
func (g GridGeometry) HeightPx() float64 {
	return HoursPerDay * g.HourHeightPx
}
