// Package timezone maps persona cities to IANA time zones and derives the
// local wall-clock facts the scheduler's day/night policy needs.
package timezone

import "time"

// cityZones maps known city names to IANA zone identifiers.
// Unknown cities fall back to UTC; a wrong-but-defined local time is always
// preferable to aborting a cycle.
var cityZones = map[string]string{
	"Amsterdam":      "Europe/Amsterdam",
	"Bangkok":        "Asia/Bangkok",
	"Barcelona":      "Europe/Madrid",
	"Berlin":         "Europe/Berlin",
	"Buenos Aires":   "America/Argentina/Buenos_Aires",
	"Chicago":        "America/Chicago",
	"Dubai":          "Asia/Dubai",
	"Istanbul":       "Europe/Istanbul",
	"Lisbon":         "Europe/Lisbon",
	"London":         "Europe/London",
	"Los Angeles":    "America/Los_Angeles",
	"Madrid":         "Europe/Madrid",
	"Mexico City":    "America/Mexico_City",
	"Miami":          "America/New_York",
	"Milan":          "Europe/Rome",
	"Moscow":         "Europe/Moscow",
	"Mumbai":         "Asia/Kolkata",
	"New York":       "America/New_York",
	"Paris":          "Europe/Paris",
	"Rio de Janeiro": "America/Sao_Paulo",
	"Rome":           "Europe/Rome",
	"San Francisco":  "America/Los_Angeles",
	"Seoul":          "Asia/Seoul",
	"Singapore":      "Asia/Singapore",
	"Sydney":         "Australia/Sydney",
	"Tokyo":          "Asia/Tokyo",
	"Toronto":        "America/Toronto",
}

// Location resolves a city name to its IANA location, defaulting to UTC for
// unknown cities or an unloadable zone database entry.
func Location(city string) *time.Location {
	name, ok := cityZones[city]
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalTime converts now into the city's local wall-clock time.
func LocalTime(city string, now time.Time) time.Time {
	return now.In(Location(city))
}

// LocalHour returns the city's current local hour [0,23].
func LocalHour(city string, now time.Time) int {
	return LocalTime(city, now).Hour()
}

// NextLocalHour returns the next instant at which the city's local wall clock
// reads hour:00. If that time today has already passed (or is now), the
// occurrence on the following day is returned.
func NextLocalHour(city string, now time.Time, hour int) time.Time {
	local := LocalTime(city, now)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, local.Location())
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// LocalDay returns midnight of the city's current local day.
func LocalDay(city string, now time.Time) time.Time {
	local := LocalTime(city, now)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
