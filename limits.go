package gopager

const (
	MaxLimit     = 100
	DefaultLimit = 10
	FirstPage    = 1
)

// IsNormalizedLimitMax clamps limit into [1, maxLimit]. A zero limit means
// "not supplied" and resolves to DefaultLimit; a non-positive maxLimit
// resolves to MaxLimit. The second return value is false when the requested
// limit could not be used as-is.
func IsNormalizedLimitMax(limit int, maxLimit int) (int, bool) {
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	switch {
	case limit == 0:
		return min(DefaultLimit, maxLimit), false
	case limit < 1:
		return 1, false
	case limit > maxLimit:
		return maxLimit, false
	}

	return limit, true
}

func NormalizeLimitMax(limit int, maxLimit int) int {
	ret, _ := IsNormalizedLimitMax(limit, maxLimit)
	return ret
}

func NormalizeLimit(limit int) int {
	return NormalizeLimitMax(limit, MaxLimit)
}

// NormalizePage returns page clamped to FirstPage.
func NormalizePage(page int) int {
	return max(FirstPage, page)
}

// Bounds is the resolved window of a single page request.
type Bounds struct {
	Limit  int
	Page   int
	Offset int
}

// NewBounds normalizes the requested limit and page and derives the row
// offset of the page. It never fails: malformed input is clamped.
func NewBounds(limit, page, maxLimit int) Bounds {
	b := Bounds{
		Limit: NormalizeLimitMax(limit, maxLimit),
		Page:  NormalizePage(page),
	}
	b.Offset = (b.Page - 1) * b.Limit

	return b
}
