package mapping

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/jsonutil"
)

// DateLayout is the output format of every normalized date.
const DateLayout = "2006-01-02"

// MaxSerial is the serial day count of 9999-12-31. Serial dates must lie below it.
const MaxSerial = 2958465

// maxEpochMillis is the largest instant a browser Date can represent.
const maxEpochMillis = 8.64e15

var calendarDatePattern = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)

// DateThresholds is the decision table FormatDate applies to numeric input.
// A numeric string is read as, in this order:
//
//	milliseconds  when it has at least MillisDigits characters or exceeds MillisAbove
//	seconds       when it has exactly SecondsDigits characters or lies in [SecondsMin, SecondsMax)
//	serial days   when it lies strictly inside (SerialMin, SerialMax), counted from SerialEpoch
//
// Any other number is returned unchanged, so ordinary integers are never
// reinterpreted as dates.
type DateThresholds struct {
	MillisDigits  int
	MillisAbove   float64
	SecondsDigits int
	SecondsMin    float64
	SecondsMax    float64
	SerialMin     float64
	SerialMax     float64
	SerialEpoch   time.Time
}

// DefaultDateThresholds matches spreadsheet exports between roughly 1955 and 2064.
// The 1899-12-30 epoch absorbs the 1900 leap-year bug of spreadsheet serials.
var DefaultDateThresholds = DateThresholds{
	MillisDigits:  13,
	MillisAbove:   1e11,
	SecondsDigits: 10,
	SecondsMin:    1e9,
	SecondsMax:    2e10,
	SerialMin:     20000,
	SerialMax:     60000,
	SerialEpoch:   time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC),
}

// WithSerialWindow returns a copy with a different serial-date window.
func (th DateThresholds) WithSerialWindow(min, max float64) DateThresholds {
	th.SerialMin = min
	th.SerialMax = max
	return th
}

// FormatDateLoose normalizes a date cell with the default thresholds.
func FormatDateLoose(v feishu.Value) string {
	return DefaultDateThresholds.Format(v)
}

// Format normalizes a date cell to YYYY-MM-DD when it can be read as a date.
// Lists and objects are flattened with NormalizeAny first.
func (th DateThresholds) Format(v feishu.Value) string {
	switch v.Kind() {
	case feishu.KindNull:
		return ""
	case feishu.KindScalar:
		return th.FormatString(ScalarString(v))
	default:
		return th.FormatString(NormalizeAny(v))
	}
}

// FormatString normalizes a raw date string. Empty input and "0" yield "".
func (th DateThresholds) FormatString(raw string) string {
	str := strings.TrimSpace(raw)
	if str == "" || str == "0" {
		return ""
	}

	if num, ok := jsonutil.ParseNumber(str); ok {
		return th.formatNumeric(str, num)
	}

	if m := calendarDatePattern.FindStringSubmatch(str); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if t, ok := calendarDate(year, month, day); ok {
			return t.Format(DateLayout)
		}
	}
	return str
}

func (th DateThresholds) formatNumeric(str string, num float64) string {
	isMillis := len(str) >= th.MillisDigits || num > th.MillisAbove
	isSeconds := len(str) == th.SecondsDigits || (num >= th.SecondsMin && num < th.SecondsMax)

	if isMillis || isSeconds {
		ms := num
		if !isMillis {
			ms = num * 1000
		}
		if t, ok := fromEpochMillis(ms); ok {
			return t.Format(DateLayout)
		}
	}

	if num > th.SerialMin && num < th.SerialMax && num < MaxSerial {
		return serialDate(th.SerialEpoch, num).Format(DateLayout)
	}

	return str
}

// serialDate adds whole days by calendar and only the fraction as a duration,
// which stays far inside the int64 nanosecond range.
func serialDate(epoch time.Time, serial float64) time.Time {
	days := math.Floor(serial)
	frac := time.Duration((serial - days) * float64(24*time.Hour))
	return epoch.AddDate(0, 0, int(days)).Add(frac).UTC()
}

func fromEpochMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.Abs(ms) > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(math.Trunc(ms))).UTC(), true
}

// calendarDate builds a UTC date, rejecting overflow such as February 30.
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate reads a normalized or slash-separated date. It is used by reminder
// checks on already-mapped records.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if m := calendarDatePattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return calendarDate(year, month, day)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
