package convert

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/Zerofisher/kismetdb/pkg/model"
)

// ErrTimestampType is wrapped by ParseTimestamp for values of a type it
// does not accept.
var ErrTimestampType = errors.New("unsupported timestamp type")

// ParseTimestamp normalizes a filter value into a (seconds,
// microseconds) pair. Accepted forms:
//
//   - string: any date/time dateparse recognizes, read as UTC. When the
//     whole string does not parse, the longest run of words that does is
//     used instead ("after 2018-01-01" works).
//   - time.Time
//   - model.Timestamp, [2]int64, []int64 or []int of length 2
//   - integer epoch seconds
//   - float epoch seconds; the fraction becomes microseconds
//
// Malformed strings yield *model.TimestampParseError.
func ParseTimestamp(v any) (model.Timestamp, error) {
	switch t := v.(type) {
	case string:
		return parseTimestampString(t)
	case []byte:
		return parseTimestampString(string(t))
	case time.Time:
		return FromTime(t), nil
	case model.Timestamp:
		return t, validatePair(t.Sec, t.Usec)
	case [2]int64:
		return pair(t[0], t[1])
	case [2]int:
		return pair(int64(t[0]), int64(t[1]))
	case []int64:
		if len(t) != 2 {
			return model.Timestamp{}, fmt.Errorf("timestamp pair needs 2 elements, got %d", len(t))
		}
		return pair(t[0], t[1])
	case []int:
		if len(t) != 2 {
			return model.Timestamp{}, fmt.Errorf("timestamp pair needs 2 elements, got %d", len(t))
		}
		return pair(int64(t[0]), int64(t[1]))
	case int:
		return model.Timestamp{Sec: int64(t)}, nil
	case int32:
		return model.Timestamp{Sec: int64(t)}, nil
	case int64:
		return model.Timestamp{Sec: t}, nil
	case uint32:
		return model.Timestamp{Sec: int64(t)}, nil
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	default:
		return model.Timestamp{}, fmt.Errorf("%w %T: expected a (sec, usec) pair, string, or time", ErrTimestampType, v)
	}
}

// FromTime converts t to a timestamp pair.
func FromTime(t time.Time) model.Timestamp {
	return model.Timestamp{Sec: t.Unix(), Usec: int64(t.Nanosecond() / 1000)}
}

// TimestampToISO renders epoch seconds as an ISO-8601 UTC string.
func TimestampToISO(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

func pair(sec, usec int64) (model.Timestamp, error) {
	ts := model.Timestamp{Sec: sec, Usec: usec}
	return ts, validatePair(sec, usec)
}

func validatePair(sec, usec int64) error {
	if sec < 0 {
		return fmt.Errorf("timestamp seconds must not be negative, got %d", sec)
	}
	if usec < 0 || usec > 999999 {
		return fmt.Errorf("timestamp microseconds out of range: %d", usec)
	}
	return nil
}

func fromFloat(f float64) (model.Timestamp, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Timestamp{}, fmt.Errorf("timestamp is not a finite number")
	}
	sec, frac := math.Modf(f)
	usec := int64(math.Round(frac * 1e6))
	if usec == 1000000 {
		sec++
		usec = 0
	}
	return model.Timestamp{Sec: int64(sec), Usec: usec}, nil
}

func parseTimestampString(s string) (model.Timestamp, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return model.Timestamp{}, &model.TimestampParseError{Input: s, Err: errors.New("empty string")}
	}
	t, err := dateparse.ParseIn(in, time.UTC)
	if err == nil {
		return FromTime(t), nil
	}
	if t, ok := parseFuzzy(in); ok {
		return FromTime(t), nil
	}
	return model.Timestamp{}, &model.TimestampParseError{Input: s, Err: err}
}

// parseFuzzy tries successively shorter runs of words from in.
func parseFuzzy(in string) (time.Time, bool) {
	words := strings.Fields(in)
	if len(words) < 2 {
		return time.Time{}, false
	}
	for size := len(words) - 1; size > 0; size-- {
		for i := 0; i+size <= len(words); i++ {
			candidate := strings.Join(words[i:i+size], " ")
			if t, err := dateparse.ParseIn(candidate, time.UTC); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
