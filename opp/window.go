package opp

import "strconv"

// A Window is the hysteresis band of the temperature bracket a table was
// selected for.
type Window struct {
	// Bracket is the index of the last threshold reached, or -1.
	Bracket int

	// Bottom and Top bound the bracket, in degrees Celsius.
	Bottom int
	Top    int

	// Thresholds is the number of thresholds honored.
	Thresholds int
}

// BracketOf places temp among ascending thresholds. It returns the
// selection-key suffix ("" below every threshold) and the band around the
// bracket. Only the first MaxThresholds thresholds are honored.
func BracketOf(thresholds []int, temp int) (string, Window) {
	if len(thresholds) > MaxThresholds {
		thresholds = thresholds[:MaxThresholds]
	}

	w := Window{
		Bracket:    -1,
		Thresholds: len(thresholds),
	}

	suffix := ""

	for i, th := range thresholds {
		if temp >= th {
			w.Bracket = i
			suffix = "-" + strconv.Itoa(th)
		}
	}

	w.Bottom = TempMin
	if w.Bracket >= 0 {
		w.Bottom = thresholds[w.Bracket]
	}

	w.Top = TempMax
	if w.Bracket+1 < len(thresholds) {
		w.Top = thresholds[w.Bracket+1]
	}

	return suffix, w
}
