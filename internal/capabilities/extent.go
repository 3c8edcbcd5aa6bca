package capabilities

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
)

const (
	timeDimensionName  = "time"
	timeDimensionUnits = "ISO8601"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
}

const dateLayout = "2006-01-02"

// Resolution is the step of a time interval. It is either a number of seconds,
// where zero means the interval is continuous, or an ISO8601 period kept as
// written so that parsing the same document twice yields the same value.
type Resolution struct {
	Seconds int64
	Period  *duration.Duration
}

// IsContinuous reports whether any instant in the interval is valid.
func (r Resolution) IsContinuous() bool {
	return r.Period == nil && r.Seconds == 0
}

// Elapsed converts the resolution into a concrete duration starting at anchor.
// Calendar periods such as P1M depend on the anchor.
func (r Resolution) Elapsed(anchor time.Time) time.Duration {
	if r.Period == nil {
		return time.Duration(r.Seconds) * time.Second
	}

	p := r.Period
	end := anchor.AddDate(int(p.Years), int(p.Months), int(p.Weeks*7+p.Days))
	end = end.Add(time.Duration(p.Hours*float64(time.Hour) +
		p.Minutes*float64(time.Minute) +
		p.Seconds*float64(time.Second)))

	elapsed := end.Sub(anchor)
	if p.Negative {
		return -elapsed
	}
	return elapsed
}

func (r Resolution) String() string {
	if r.Period != nil {
		return r.Period.String()
	}
	return strconv.FormatInt(r.Seconds, 10)
}

// TimeExtent is a single instant (only Start set) or an interval (Start, Stop
// and Resolution set).
type TimeExtent struct {
	Start      time.Time
	Stop       *time.Time
	Resolution *Resolution
}

func (e TimeExtent) IsValue() bool {
	return e.Stop == nil && e.Resolution == nil
}

func (e TimeExtent) IsInterval() bool {
	return e.Stop != nil && e.Resolution != nil
}

// ParseTimeExtents parses a dimension extent following the grammar of OGC WMS
// 1.3.0 Table C.2. Only ISO8601 time dimensions are parsed; any other
// dimension yields nil. Tokens that cannot be parsed are logged and skipped.
func ParseTimeExtents(raw, name, units string) []TimeExtent {
	if name != timeDimensionName || units != timeDimensionUnits {
		return nil
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	hasList := strings.Contains(raw, ",")
	hasInterval := strings.Contains(raw, "/")

	var extents []TimeExtent
	switch {
	case hasList && hasInterval:
		for _, token := range strings.Split(raw, ",") {
			extent, err := parseInterval(token)
			if err != nil {
				log.Printf("skipping time interval %q: %s", token, err)
				continue
			}
			extents = append(extents, extent)
		}
	case hasInterval:
		extent, err := parseInterval(raw)
		if err != nil {
			log.Printf("skipping time interval %q: %s", raw, err)
			break
		}
		extents = append(extents, extent)
	case hasList:
		for _, token := range strings.Split(raw, ",") {
			start, err := parseInstant(token)
			if err != nil {
				log.Printf("skipping time value %q: %s", token, err)
				continue
			}
			extents = append(extents, TimeExtent{Start: start})
		}
	default:
		start, err := parseInstant(raw)
		if err != nil {
			log.Printf("skipping time value %q: %s", raw, err)
			break
		}
		extents = append(extents, TimeExtent{Start: start})
	}

	return extents
}

// FormatTimeExtents is the inverse of ParseTimeExtents. All extents must be of
// the same kind.
func FormatTimeExtents(extents []TimeExtent) (string, error) {
	var values, intervals int
	for i, extent := range extents {
		switch {
		case extent.IsValue():
			values++
		case extent.IsInterval():
			intervals++
		default:
			return "", fmt.Errorf("%w: time extent %d is neither a value nor an interval", ErrInvalidValue, i)
		}
	}
	if values > 0 && intervals > 0 {
		return "", fmt.Errorf("%w: cannot mix time values and time intervals", ErrInvalidValue)
	}

	tokens := make([]string, 0, len(extents))
	for _, extent := range extents {
		if extent.IsValue() {
			tokens = append(tokens, formatInstant(extent.Start))
			continue
		}
		tokens = append(tokens, formatInstant(extent.Start)+"/"+formatInstant(*extent.Stop)+"/"+extent.Resolution.String())
	}

	return strings.Join(tokens, ","), nil
}

func parseInterval(token string) (TimeExtent, error) {
	fields := strings.Split(strings.TrimSpace(token), "/")
	if len(fields) != 3 {
		return TimeExtent{}, fmt.Errorf("expected start/stop/resolution, got %d fields", len(fields))
	}

	start, err := parseInstant(fields[0])
	if err != nil {
		return TimeExtent{}, err
	}
	stop, err := parseInstant(fields[1])
	if err != nil {
		return TimeExtent{}, err
	}
	resolution, err := parseResolution(fields[2])
	if err != nil {
		return TimeExtent{}, err
	}

	return TimeExtent{Start: start, Stop: &stop, Resolution: &resolution}, nil
}

func parseResolution(field string) (Resolution, error) {
	field = strings.TrimSpace(field)

	if seconds, err := strconv.ParseInt(field, 10, 64); err == nil {
		return Resolution{Seconds: seconds}, nil
	}

	period, err := duration.Parse(field)
	if err != nil {
		return Resolution{}, fmt.Errorf("invalid resolution %q: %w", field, err)
	}
	return Resolution{Period: period}, nil
}

func parseInstant(token string) (time.Time, error) {
	token = strings.TrimSpace(token)

	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return t, nil
		}
	}

	return time.Parse(dateLayout, token)
}

func formatInstant(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}
