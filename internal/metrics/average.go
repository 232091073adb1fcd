package metrics

// Average is the running mean of the samples folded into it, kept without the
// sample history. The zero value is an empty average.
type Average struct {
	mean Sample
	n    int

	// rssRem is the remainder dropped by the integer division of the RSS
	// mean, so that mean*n + rssRem is always the exact RSS sum.
	rssRem int64
}

// Add folds s in as occurrence k = Count()+1.
func (a *Average) Add(s Sample) {
	k := a.n + 1
	a.mean.UserTimeMs = runningMean(a.mean.UserTimeMs, s.UserTimeMs, k)
	a.mean.SystemTimeMs = runningMean(a.mean.SystemTimeMs, s.SystemTimeMs, k)
	a.mean.CPUPercent = runningMean(a.mean.CPUPercent, s.CPUPercent, k)
	a.mean.WallClockMs = runningMean(a.mean.WallClockMs, s.WallClockMs, k)

	total := int64(k-1)*a.mean.MaxRSS + a.rssRem + s.MaxRSS
	a.mean.MaxRSS = total / int64(k)
	a.rssRem = total % int64(k)
	a.n = k
}

// Mean returns the current averages. It is the zero Sample before any Add.
func (a *Average) Mean() Sample { return a.mean }

// Count is the number of samples folded in so far.
func (a *Average) Count() int { return a.n }

func runningMean(old, x float64, k int) float64 {
	return (old*float64(k-1) + x) / float64(k)
}
