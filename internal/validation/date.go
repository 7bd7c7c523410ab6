// Package validation implements the Bronze and Gold frame schema checks
// plus the shared row validators every domain's RowIn/RowOut structs embed
// (spec §4.4).
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/linsuisheng034/workdatahub/internal/config"
)

var (
	isoMonthPattern     = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	chineseMonthPattern = regexp.MustCompile(`^(\d{2,4})年(\d{1,2})月$`)
)

// ParseReportMonth parses the date formats the source spreadsheets use for
// a reporting period: "YYYYMM", "YYYY-MM", and Chinese "YYYY年M月" / "YY年M月"
// (spec §4.4 shared date parser). Two-digit years below
// config.TwoDigitYearPivot map to 20xx, otherwise to 19xx, and are not
// range-checked. A four-digit year must fall within
// [config.MinYear, config.MaxYear].
func ParseReportMonth(s string) (time.Time, error) {
	switch {
	case len(s) == 6 && isAllDigits(s):
		year, _ := strconv.Atoi(s[:4])
		month, _ := strconv.Atoi(s[4:6])
		return buildMonth(year, month)

	case isoMonthPattern.MatchString(s):
		m := isoMonthPattern.FindStringSubmatch(s)
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return buildMonth(year, month)

	case chineseMonthPattern.MatchString(s):
		m := chineseMonthPattern.FindStringSubmatch(s)
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if len(m[1]) == 2 {
			if month < 1 || month > 12 {
				return time.Time{}, fmt.Errorf("month %d out of range", month)
			}
			return time.Date(expandTwoDigitYear(year), time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
		}
		return buildMonth(year, month)

	default:
		return time.Time{}, fmt.Errorf("unrecognized report month format: %q", s)
	}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// expandTwoDigitYear maps yy < 50 to 2000+yy and yy >= 50 to 1900+yy, per
// the shared date parser's Chinese two-digit year convention (spec §4.4).
func expandTwoDigitYear(yy int) int {
	if yy < config.TwoDigitYearPivot {
		return 2000 + yy
	}
	return 1900 + yy
}

func buildMonth(year, month int) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("month %d out of range", month)
	}
	if year < config.MinYear || year > config.MaxYear {
		return time.Time{}, fmt.Errorf("year %d out of supported range [%d, %d]", year, config.MinYear, config.MaxYear)
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}
