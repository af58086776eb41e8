package settings

import (
	"math"
	"time"
)

// QuietHoursFunc adapts a Store into a func(time.Time) bool that always
// consults the Store's current values — assignable directly to
// audioqueue.Config.QuietHours without this package importing audioqueue.
func QuietHoursFunc(s *Store) func(time.Time) bool {
	return func(now time.Time) bool {
		return s.Get().QuietHours(now)
	}
}

// QuietHours reports whether now falls inside the configured quiet-hours
// window. The weekend schedule is selected by the weekday nine hours in
// the future, per the glossary definition: "weekend ≡ (now + 9h).weekday
// ≥ 5."
func (v Values) QuietHours(now time.Time) bool {
	shifted := now.Add(9 * time.Hour)
	weekend := int(shifted.Weekday()) >= 5

	start := v.NormalQuietHoursStartTime
	if weekend {
		start = v.WeekendQuietHoursStartTime
	}
	end := v.QuietHoursEndTime

	h := float64(now.Hour()) + float64(now.Minute())/60 + float64(now.Second())/3600

	span := mod24(end - start)
	offset := mod24(h - start)
	return offset <= span
}

func mod24(x float64) float64 {
	const day = 24.0
	x = math.Mod(x, day)
	if x < 0 {
		x += day
	}
	return x
}
