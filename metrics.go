package arraysim

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wiless/vlib"
	"gonum.org/v1/gonum/stat"

	"github.com/wiless/arraysim/antenna"
)

// HalfPowerDb is the level bounding the main lobe.
const HalfPowerDb = -3.0

// Metrics summarizes one diagram.
type Metrics struct {
	MainLobeDeg         float64 `json:"main_lobe_deg"`
	AmpErrorStd         float64 `json:"amp_error_std"`
	PhaseErrorStdDeg    float64 `json:"phase_error_std_deg"`
	ResidualAmpStd      float64 `json:"residual_amp_std,omitempty"`
	ResidualPhaseStdDeg float64 `json:"residual_phase_std_deg,omitempty"`
}

// MainLobeWidth returns twice the angular distance from the lobe center to
// the nearest half power crossing of db on either side. The center is
// thetaDeg[scan], or, when db[scan] is already at or below half power, the
// peak of the nearest lobe above it. When db never falls to half power the
// whole sweep is returned. The crossing is never the center itself, so the
// width is positive.
func MainLobeWidth(thetaDeg, db vlib.VectorF, scan int) (float64, error) {
	if len(thetaDeg) != len(db) {
		return 0, fmt.Errorf("%w: %d angles for %d diagram values", antenna.ErrLength, len(thetaDeg), len(db))
	}
	if scan < 0 || scan >= len(db) {
		return 0, fmt.Errorf("%w: scan index %d not in [0,%d)", antenna.ErrIndexRange, scan, len(db))
	}
	sweep := thetaDeg[len(thetaDeg)-1] - thetaDeg[0]

	center := scan
	if db[center] <= HalfPowerDb {
		center = lobePeak(db, scan)
		if center < 0 {
			return sweep, nil
		}
	}

	best := math.Inf(1)
	// right side
	hi := center
	for hi < len(db)-1 && db[hi] > HalfPowerDb {
		hi++
	}
	if db[hi] <= HalfPowerDb {
		k, _ := antenna.QuantizeOne(HalfPowerDb, db[center+1:hi+1])
		best = math.Min(best, math.Abs(thetaDeg[center+1+k]-thetaDeg[center]))
	}
	// left side
	lo := center
	for lo > 0 && db[lo] > HalfPowerDb {
		lo--
	}
	if db[lo] <= HalfPowerDb {
		k, _ := antenna.QuantizeOne(HalfPowerDb, db[lo:center])
		best = math.Min(best, math.Abs(thetaDeg[center]-thetaDeg[lo+k]))
	}

	if math.IsInf(best, 1) {
		return sweep, nil
	}
	return 2 * best, nil
}

// lobePeak finds the index above half power nearest to from (left wins a
// tie) and climbs to the top of its lobe. It returns -1 when no index is
// above half power.
func lobePeak(db vlib.VectorF, from int) int {
	at := -1
	for d := 1; at < 0 && (from-d >= 0 || from+d < len(db)); d++ {
		switch {
		case from-d >= 0 && db[from-d] > HalfPowerDb:
			at = from - d
		case from+d < len(db) && db[from+d] > HalfPowerDb:
			at = from + d
		}
	}
	if at < 0 {
		return -1
	}
	for {
		switch {
		case at+1 < len(db) && db[at+1] > db[at]:
			at++
		case at > 0 && db[at-1] > db[at]:
			at--
		default:
			return at
		}
	}
}

func computeMetrics(res *Result) Metrics {
	m := Metrics{
		AmpErrorStd:      popStd(res.Errors.Amp),
		PhaseErrorStdDeg: antenna.Degree(popStd(res.Errors.Phase)),
	}
	m.MainLobeDeg, _ = MainLobeWidth(res.ThetaDeg, res.DiagramDb, res.ScanIndex)
	if res.Errors.ResidualAmp != nil {
		m.ResidualAmpStd = popStd(res.Errors.ResidualAmp)
		m.ResidualPhaseStdDeg = antenna.Degree(popStd(res.Errors.ResidualPhase))
	}
	return m
}

func popStd(x vlib.VectorF) float64 {
	if len(x) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(x, nil)
	return std
}

// Suppression is the cancellation achieved toward one interference
// direction.
type Suppression struct {
	AngleDeg   float64 `json:"angle_deg"`
	Db         float64 `json:"db"`
	RelativeDb float64 `json:"relative_db"`
	Note       string  `json:"note,omitempty"`
}

// Cancellation lists per direction depths and their averages.
type Cancellation struct {
	Directions     []Suppression `json:"directions"`
	MeanDb         float64       `json:"mean_db"`
	MeanRelativeDb float64       `json:"mean_relative_db"`
}

// amplitudeDb is 20*log10(v) floored like antenna.ToDb.
func amplitudeDb(v float64) float64 {
	return antenna.ToDb(vlib.VectorF{v})[0]
}

func cancellation(res *Result) *Cancellation {
	c := &Cancellation{Directions: make([]Suppression, len(res.InterferenceIndex))}
	var sum, sumRel float64
	for i, ind := range res.InterferenceIndex {
		v, base := res.Diagram[ind], res.Baseline[ind]
		// a null already present in the baseline leaves nothing to compare
		ratio := 1.0
		if base > 0 {
			ratio = v / base
		}
		sum += v
		sumRel += ratio

		s := Suppression{
			AngleDeg:   res.ThetaDeg[ind],
			Db:         amplitudeDb(v),
			RelativeDb: amplitudeDb(ratio),
		}
		if res.Errors.BoresightDeg != nil {
			s.Note = boresightNote(res.Metrics.MainLobeDeg, res.Errors.BoresightDeg[i])
		}
		c.Directions[i] = s
	}
	k := float64(len(res.InterferenceIndex))
	c.MeanDb = amplitudeDb(sum / k)
	c.MeanRelativeDb = amplitudeDb(sumRel / k)
	return c
}

// boresightNote relates the main lobe to the pointing error, "Δ/x".
func boresightNote(mainLobe, offsetDeg float64) string {
	if offsetDeg == 0 {
		return "0"
	}
	return "Δ/" + strconv.FormatFloat(mainLobe/math.Abs(offsetDeg), 'f', 1, 64)
}

// ContextItem is one labelled line of the design summary.
type ContextItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func summary(res *Result) []ContextItem {
	cfg, m := res.Config, res.Metrics
	f := func(v float64, prec int) string { return strconv.FormatFloat(v, 'f', prec, 64) }
	items := []ContextItem{
		{"Elements", strconv.Itoa(cfg.Elements)},
		{"Scan, deg", f(res.ThetaDeg[res.ScanIndex], 2)},
		{"Main lobe, deg", f(m.MainLobeDeg, 2)},
		{"Amplitude error std", f(m.AmpErrorStd, 4)},
		{"Phase error std, deg", f(m.PhaseErrorStdDeg, 3)},
	}
	switch cfg.Kind {
	case KindControlledConnections, KindSubArray:
		items = append(items,
			ContextItem{"Iterations", strconv.Itoa(cfg.Iterations)},
			ContextItem{"Residual amplitude std", f(m.ResidualAmpStd, 4)},
			ContextItem{"Residual phase std, deg", f(m.ResidualPhaseStdDeg, 3)},
			ContextItem{"Boresight error", res.Errors.BoresightClass.String()},
		)
		if cfg.Kind == KindSubArray {
			items = append(items, ContextItem{"Subarrays", strconv.Itoa(cfg.SubArrays)})
		}
	case KindAdaptiveFiltering:
		items = append(items,
			ContextItem{"Samples", strconv.Itoa(cfg.Samples)},
			ContextItem{"SNR, dB", f(cfg.SNRDb, 1)},
		)
		if res.Clutter != nil {
			items = append(items, ContextItem{"Condition number", strconv.FormatFloat(res.Clutter.Condition, 'g', 4, 64)})
		}
	}
	return items
}
