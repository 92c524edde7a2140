package indicator

// SMA computes the simple moving average of values over the given period.
// output[i] is ready only for i >= period-1. A running sum keeps the cost
// O(n) instead of O(n*period).
func SMA(values []float64, period int) Series {
	out := NewSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}
