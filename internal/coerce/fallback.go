package coerce

import (
	"strconv"
	"strings"
	"time"

	"github.com/neotomadb/neotoma-loader/internal/value"
)

// YearFallback recovers a best-effort age from a cell that failed date
// parsing. "YYYY-MM" (or "YYYY/MM") becomes the first of that month; any other
// value starting with four digits becomes that integer year; otherwise Null.
func YearFallback(raw string) value.Value {
	s := strings.TrimSpace(raw)
	if len(s) < 4 || !digits(s[:4]) {
		return value.Null()
	}
	year, _ := strconv.Atoi(s[:4])

	if len(s) == 7 && (s[4] == '-' || s[4] == '/') && digits(s[5:7]) {
		month, _ := strconv.Atoi(s[5:7])
		if month >= 1 && month <= 12 {
			return value.Scalar(value.Date{Year: year, Month: time.Month(month), Day: 1})
		}
	}
	return value.Scalar(int64(year))
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
