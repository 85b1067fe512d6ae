package markethours

import "time"

// holidays lists MOEX non-trading days that fall on weekdays.
// Format: "2006-01-02". Update annually from the exchange calendar.
var holidays = map[string]bool{
	// 2025
	"2025-01-01": true,
	"2025-01-02": true,
	"2025-01-07": true,
	"2025-05-01": true,
	"2025-05-09": true,
	"2025-06-12": true,
	"2025-12-31": true,
	// 2026
	"2026-01-01": true,
	"2026-01-02": true,
	"2026-01-07": true,
	"2026-02-23": true,
	"2026-03-09": true,
	"2026-05-01": true,
	"2026-05-11": true,
	"2026-06-12": true,
	"2026-11-04": true,
	"2026-12-31": true,
}

// IsHoliday reports whether t (interpreted in MSK) is an exchange holiday.
func IsHoliday(t time.Time) bool {
	return holidays[t.In(MSK).Format("2006-01-02")]
}
