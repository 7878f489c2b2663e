package headers

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// SetTimeout records d under KeyTimeoutMs. Non-positive durations are not recorded.
func (h *RequestHeaders) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	ms := d.Milliseconds()
	if ms == 0 {
		ms = 1
	}
	_ = h.Set(KeyTimeoutMs, strconv.FormatInt(ms, 10))
}

// maxTimeoutMs is the largest budget a time.Duration can hold.
const maxTimeoutMs = math.MaxInt64 / int64(time.Millisecond)

// Timeout returns the caller's budget. ok is false when the header is absent or not a positive
// integer. Budgets beyond the range of time.Duration are clamped to it.
func (h *RequestHeaders) Timeout() (d time.Duration, ok bool) {
	ms, err := strconv.ParseInt(h.First(KeyTimeoutMs), 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange || strings.HasPrefix(h.First(KeyTimeoutMs), "-") {
			return 0, false
		}
		ms = maxTimeoutMs
	}
	if ms <= 0 {
		return 0, false
	}
	return time.Duration(min(ms, maxTimeoutMs)) * time.Millisecond, true
}
