package mapstore

import (
	"math"
	"strconv"
)

// negInf and posInf are the sentinel scores ZRangeByScore recognizes as
// -inf/+inf bounds, so callers can write mapstore.NegInf instead of
// remembering Redis's "-inf" string literal.
var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)

	// NegInf and PosInf are the open ends of a ScoreRange.
	NegInf = negInf
	PosInf = posInf
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
