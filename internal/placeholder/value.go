package placeholder

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Raw marks a value that is spliced into the query text verbatim, without
// quoting. Intended for trusted fragments like column lists or object paths
// supplied by the operator.
type Raw string

// Literal renders a bound value as its SQL literal representation.
func Literal(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case Raw:
		return string(val), nil
	case string:
		return quoteString(val), nil
	case bool:
		if val {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64), nil
	case time.Time:
		return quoteTime(val), nil
	default:
		return "", fmt.Errorf("unsupported placeholder value type %T", v)
	}
}

// quoteString single-quotes a string with '' escaping.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quoteTime renders a timestamp literal. Midnight values render as DATE.
func quoteTime(t time.Time) string {
	utc := t.UTC()
	if h, m, s := utc.Clock(); h == 0 && m == 0 && s == 0 && utc.Nanosecond() == 0 {
		return "DATE '" + utc.Format("2006-01-02") + "'"
	}
	return "TIMESTAMP '" + utc.Format("2006-01-02 15:04:05.999999") + "'"
}
