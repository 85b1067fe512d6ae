// Package markethours gates the trading scheduler on the MOEX equity
// session (10:00–18:45 MSK, Mon–Fri, excluding exchange holidays).
package markethours

import (
	"fmt"
	"time"
)

// MSK is Moscow time (UTC+3, no DST since 2014).
var MSK = time.FixedZone("MSK", 3*3600)

// Session bounds in MSK.
const (
	OpenHour    = 10
	OpenMinute  = 0
	CloseHour   = 18
	CloseMinute = 45
)

// IsMarketOpen returns true if t falls within MOEX trading hours
// (10:00–18:45 MSK, Mon–Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	msk := t.In(MSK)
	wd := msk.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if IsHoliday(msk) {
		return false
	}
	hm := msk.Hour()*60 + msk.Minute()
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	msk := t.In(MSK)
	wd := msk.Weekday()
	return wd >= time.Monday && wd <= time.Friday && !IsHoliday(msk)
}

// NextOpen returns the next session open (10:00 MSK on the next trading
// day). If t is before today's open on a trading day, returns today's open.
func NextOpen(t time.Time) time.Time {
	msk := t.In(MSK)

	todayOpen := time.Date(msk.Year(), msk.Month(), msk.Day(), OpenHour, OpenMinute, 0, 0, MSK)
	if msk.Before(todayOpen) && IsTradingDay(msk) {
		return todayOpen
	}

	d := msk.AddDate(0, 0, 1)
	for i := 0; i < 14; i++ { // holidays + weekends never span two weeks
		if IsTradingDay(d) {
			return time.Date(d.Year(), d.Month(), d.Day(), OpenHour, OpenMinute, 0, 0, MSK)
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(msk.Year(), msk.Month(), msk.Day()+1, OpenHour, OpenMinute, 0, 0, MSK)
}

// TodayClose returns today's session close (18:45 MSK).
func TodayClose(t time.Time) time.Time {
	msk := t.In(MSK)
	return time.Date(msk.Year(), msk.Month(), msk.Day(), CloseHour, CloseMinute, 0, 0, MSK)
}

// StatusString returns a human-readable market status.
func StatusString(t time.Time) string {
	if IsMarketOpen(t) {
		d := TodayClose(t).Sub(t.In(MSK))
		return fmt.Sprintf("market open, closes in %s", fmtDur(d))
	}
	next := NextOpen(t)
	msk := next.In(MSK)
	return fmt.Sprintf("market closed, opens %s %s (%s)",
		msk.Weekday().String()[:3], msk.Format("15:04"), fmtDur(next.Sub(t)))
}

func fmtDur(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
