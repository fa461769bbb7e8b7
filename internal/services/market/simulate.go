package market

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// B3 cash session in local time
const (
	sessionOpenHour  = 10
	sessionCloseHour = 17
	sessionMinutes   = (sessionCloseHour - sessionOpenHour) * 60
)

// saoPauloLocation is the B3 exchange timezone.
var saoPauloLocation = mustLoadLocation("America/Sao_Paulo")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		// Brazil has observed no DST since 2019
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// sessionMinute returns the minute of the B3 session for now and whether the
// session is open. Weekends are closed.
func sessionMinute(now time.Time) (int, bool) {
	local := now.In(saoPauloLocation)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return 0, false
	}
	open := time.Date(local.Year(), local.Month(), local.Day(), sessionOpenHour, 0, 0, 0, saoPauloLocation)
	minute := int(local.Sub(open) / time.Minute)
	if minute < 0 || minute >= sessionMinutes {
		return 0, false
	}
	return minute, true
}

// simulate derives a plausible index level from the fallback base for the
// given time. Outside the session the base is returned with zero change.
// The same inputs always produce the same output.
func simulate(fb IndexFallback, now time.Time) (value, change, changePct float64) {
	minute, open := sessionMinute(now)
	if !open {
		return fb.BaseValue, 0, 0
	}

	progress := float64(minute) / float64(sessionMinutes)
	pct := fb.DriftPct*progress + fb.AmplitudePct*math.Sin(2*math.Pi*progress)

	base := decimal.NewFromFloat(fb.BaseValue)
	v := base.Mul(decimal.NewFromFloat(1 + pct/100)).Round(2)

	value = v.InexactFloat64()
	change = v.Sub(base).Round(2).InexactFloat64()
	changePct = decimal.NewFromFloat(pct).Round(2).InexactFloat64()
	return value, change, changePct
}
