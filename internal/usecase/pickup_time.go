package usecase

import (
	"fmt"
	"regexp"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
)

const (
	relativeDayPattern = `(hoy|mañana|pasado mañana)`
	weekdayPattern     = `(lunes|martes|miércoles|jueves|viernes|sábado|domingo)`
	clockPattern       = `(?:(?:a\s+)?las\s+|a\s+la\s+)?(\d{1,2})(?::([0-5]\d))?`
	dayPartPattern     = `(?:por\s+la\s+|al\s+)?(mañana|tarde|noche)`
)

var (
	relativeDayPartRegex  = regexp.MustCompile(`^` + relativeDayPattern + `\s+` + dayPartPattern + `$`)
	relativeDayClockRegex = regexp.MustCompile(`^` + relativeDayPattern + `\s+` + clockPattern + `$`)
	clockRelativeDayRegex = regexp.MustCompile(`^` + clockPattern + `\s+` + relativeDayPattern + `$`)
	weekdayClockRegex     = regexp.MustCompile(`^(?:(este|proximo|el)\s+)?` + weekdayPattern + `\s+` + clockPattern + `$`)
	weekdayDayPartRegex   = regexp.MustCompile(`^(?:(este|proximo|el)\s+)?` + weekdayPattern + `\s+` + dayPartPattern + `$`)
	dateClockRegex        = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})(?:[/-](\d{4}))?\s+` + clockPattern + `$`)
	monthDayClockRegex    = regexp.MustCompile(`^el\s+(?:día\s+)?(\d{1,2})\s+` + clockPattern + `$`)
	monthDayPartRegex     = regexp.MustCompile(`^el\s+(?:día\s+)?(\d{1,2})\s+` + dayPartPattern + `$`)
)

// dayParts are the default pickup times for parts of the day.
var dayParts = map[string][2]int{
	"mañana": {9, 0},
	"tarde":  {16, 0},
	"noche":  {20, 0},
}

var relativeDays = map[string]int{"hoy": 0, "mañana": 1, "pasado mañana": 2}

var weekdays = map[string]time.Weekday{
	"lunes": time.Monday, "martes": time.Tuesday, "miércoles": time.Wednesday,
	"jueves": time.Thursday, "viernes": time.Friday, "sábado": time.Saturday,
	"domingo": time.Sunday,
}

var (
	spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	spanishMonths   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio",
		"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// PickupExamples lists phrasings accepted by ParsePickupTime, for replies.
var PickupExamples = []string{
	"hoy a las 18:30",
	"mañana por la mañana",
	"el viernes a las 12",
	"sábado al mediodía",
	"13/08 15:00",
	"el 20 por la tarde",
}

// ParsePickupTime reads a pickup moment from a customer phrase relative to
// now. The phrase is run through NormalizeTemporalText first. The result is
// always strictly after now; a time in the past yields ErrPickupInPast.
func ParsePickupTime(text string, now time.Time) (time.Time, error) {
	s := NormalizeTemporalText(text)
	now = now.Truncate(time.Minute)
	loc := now.Location()

	if m := relativeDayPartRegex.FindStringSubmatch(s); m != nil {
		hm := dayParts[m[2]]
		return future(at(now, relativeDays[m[1]], hm[0], hm[1]), now)
	}

	if m := relativeDayClockRegex.FindStringSubmatch(s); m != nil {
		h, mi, err := clock(m[2], m[3])
		if err != nil {
			return time.Time{}, err
		}
		return future(at(now, relativeDays[m[1]], h, mi), now)
	}

	if m := clockRelativeDayRegex.FindStringSubmatch(s); m != nil {
		h, mi, err := clock(m[1], m[2])
		if err != nil {
			return time.Time{}, err
		}
		return future(at(now, relativeDays[m[3]], h, mi), now)
	}

	if m := weekdayClockRegex.FindStringSubmatch(s); m != nil {
		h, mi, err := clock(m[3], m[4])
		if err != nil {
			return time.Time{}, err
		}
		return nextWeekday(now, weekdays[m[2]], m[1] == "proximo", h, mi), nil
	}

	if m := weekdayDayPartRegex.FindStringSubmatch(s); m != nil {
		hm := dayParts[m[3]]
		return nextWeekday(now, weekdays[m[2]], m[1] == "proximo", hm[0], hm[1]), nil
	}

	if m := dateClockRegex.FindStringSubmatch(s); m != nil {
		h, mi, err := clock(m[4], m[5])
		if err != nil {
			return time.Time{}, err
		}
		year := now.Year()
		if m[3] != "" {
			year = atoi(m[3])
		}
		t, ok := date(year, atoi(m[2]), atoi(m[1]), h, mi, loc)
		if !ok {
			return time.Time{}, fmt.Errorf("%w: fecha inválida, revisa día y mes", domain.ErrInvalidPickupTime)
		}
		return future(t, now)
	}

	if m := monthDayClockRegex.FindStringSubmatch(s); m != nil {
		h, mi, err := clock(m[2], m[3])
		if err != nil {
			return time.Time{}, err
		}
		return nextMonthDay(now, atoi(m[1]), h, mi)
	}

	if m := monthDayPartRegex.FindStringSubmatch(s); m != nil {
		hm := dayParts[m[2]]
		return nextMonthDay(now, atoi(m[1]), hm[0], hm[1])
	}

	return time.Time{}, fmt.Errorf("%w: formato no reconocido", domain.ErrInvalidPickupTime)
}

// FormatPickupTime renders t as "martes 13 de agosto - 15:00".
func FormatPickupTime(t time.Time) string {
	return fmt.Sprintf("%s %d de %s - %s",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1], t.Format("15:04"))
}

func clock(hh, mm string) (int, int, error) {
	h := atoi(hh)
	m := 0
	if mm != "" {
		m = atoi(mm)
	}
	if h > 23 || m > 59 {
		return 0, 0, fmt.Errorf("%w: hora inválida", domain.ErrInvalidPickupTime)
	}
	return h, m, nil
}

func at(now time.Time, days, h, m int) time.Time {
	y, mo, d := now.Date()
	return time.Date(y, mo, d+days, h, m, 0, 0, now.Location())
}

func future(t, now time.Time) (time.Time, error) {
	if !t.After(now) {
		return time.Time{}, fmt.Errorf("%w: la fecha y hora deben ser futuras", domain.ErrPickupInPast)
	}
	return t, nil
}

// nextWeekday returns the next occurrence of wd at h:m. A moment already
// gone this week, or any day when forceNext is set and wd is today, moves
// to the following week.
func nextWeekday(now time.Time, wd time.Weekday, forceNext bool, h, m int) time.Time {
	delta := (int(wd) - int(now.Weekday()) + 7) % 7
	if forceNext && delta == 0 {
		delta = 7
	}
	t := at(now, delta, h, m)
	if !t.After(now) {
		t = t.AddDate(0, 0, 7)
	}
	return t
}

// nextMonthDay returns day of the current month at h:m, or of the next
// month once that moment has passed.
func nextMonthDay(now time.Time, day, h, m int) (time.Time, error) {
	t, ok := date(now.Year(), int(now.Month()), day, h, m, now.Location())
	if !ok {
		return time.Time{}, fmt.Errorf("%w: fecha inválida para este mes", domain.ErrInvalidPickupTime)
	}
	if t.After(now) {
		return t, nil
	}

	year, month := now.Year(), now.Month()+1
	if month > time.December {
		year, month = year+1, time.January
	}
	t, ok = date(year, int(month), day, h, m, now.Location())
	if !ok {
		return time.Time{}, fmt.Errorf("%w: fecha inválida para el mes siguiente", domain.ErrInvalidPickupTime)
	}
	return t, nil
}

// date builds a time only when the calendar date exists (no normalization
// of 31/02 into March).
func date(year, month, day, h, m int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, h, m, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
