package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/roach88/mongosql/internal/ast"
	"github.com/roach88/mongosql/internal/sqlerr"
)

// dateLiteralRE matches the accepted date literal shapes in one pass:
//
//	2024-01-15
//	2024/01/15
//	2024-01-15 10:30:00
//	2024-01-15T10:30:00
//	2024-01-15T10:30:00.123Z
//	2024-01-15T10:30:00+05:30
//
// The separator between year, month and day must be consistent, hence
// the backreference-free duplicated alternatives.
var dateLiteralRE = regexp.MustCompile(
	`^(\d{4})(?:-(\d{2})-(\d{2})|/(\d{2})/(\d{2}))` +
		`(?:[T ](\d{2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?(Z|[+-]\d{2}:\d{2})?)?$`)

// ParseDateLiteral validates a date/time literal eagerly at parse time
// and returns it normalized to UTC with millisecond precision. A
// date-only literal becomes midnight UTC. Malformed shapes fail with
// DATE_PARSE_ERROR; hour/minute/second components outside their range
// fail with TIME_OUT_OF_RANGE naming the offending component.
func ParseDateLiteral(input string) (*ast.DateLit, error) {
	m := dateLiteralRE.FindStringSubmatch(input)
	if m == nil {
		return nil, sqlerr.NewDateParse(input)
	}

	year := mustInt(m[1])
	month := mustInt(firstOf(m[2], m[4]))
	day := mustInt(firstOf(m[3], m[5]))

	hour, minute, second, millis := 0, 0, 0, 0
	offset := "Z"
	if m[6] != "" {
		hour = mustInt(m[6])
		minute = mustInt(m[7])
		second = mustInt(m[8])
		if hour > 23 {
			return nil, sqlerr.NewTimeOutOfRange("hour", hour)
		}
		if minute > 59 {
			return nil, sqlerr.NewTimeOutOfRange("minute", minute)
		}
		if second > 59 {
			return nil, sqlerr.NewTimeOutOfRange("second", second)
		}
		if m[9] != "" {
			// Right-pad to milliseconds: ".5" means 500ms.
			frac := m[9]
			for len(frac) < 3 {
				frac += "0"
			}
			millis = mustInt(frac)
		}
		if m[10] != "" {
			offset = m[10]
		}
	}

	candidate := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d%s",
		year, month, day, hour, minute, second, millis, offset)
	t, err := time.Parse("2006-01-02T15:04:05.000Z07:00", candidate)
	if err != nil {
		// Shape was fine but the calendar disagrees (month 13, Feb 30).
		return nil, sqlerr.NewDateParse(input)
	}

	utc := t.UTC()
	return &ast.DateLit{
		ISO:   utc.Format("2006-01-02T15:04:05.000Z"),
		Value: utc,
	}, nil
}

func firstOf(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func mustInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
