// Package summary aggregates per-waypoint contrail model output into
// per-flight and per-callsign climate forcing figures.
package summary

import (
	"math"
	"sort"
	"strings"
)

// WaypointRecord is one row of a contrail model result set, the subset
// of columns the aggregations need
type WaypointRecord struct {
	FlightID  string
	EF        float64
	RFNetMean float64
	RFSWMean  float64
	RFLWMean  float64
	DistanceM float64
}

// FlightTotal is the per-flight aggregate with its rank and Pareto
// position within the result set
type FlightTotal struct {
	FlightID      string
	Callsign      string
	TotalEF       float64
	DistanceM     float64
	MeanRFNet     float64
	MeanRFSW      float64
	MeanRFLW      float64
	Rank          int
	CumulativePct float64
}

// Callsign returns the flight ID prefix before the first underscore
func Callsign(flightID string) string {
	if i := strings.Index(flightID, "_"); i >= 0 {
		return flightID[:i]
	}
	return flightID
}

// FlightTotals groups waypoint records by flight ID and sums their
// energy forcing. NaN values are treated as zero contribution. The
// result is sorted by total EF descending with competition ranking
// (equal totals share the lowest rank) and Pareto cumulative
// percentages of the grand total.
func FlightTotals(records []WaypointRecord) []FlightTotal {
	byFlight := make(map[string]*FlightTotal)
	counts := make(map[string]int)
	var order []string

	for _, r := range records {
		ft, ok := byFlight[r.FlightID]
		if !ok {
			ft = &FlightTotal{FlightID: r.FlightID, Callsign: Callsign(r.FlightID)}
			byFlight[r.FlightID] = ft
			order = append(order, r.FlightID)
		}
		if !math.IsNaN(r.EF) {
			ft.TotalEF += r.EF
		}
		if !math.IsNaN(r.DistanceM) {
			ft.DistanceM += r.DistanceM
		}
		if !math.IsNaN(r.RFNetMean) {
			ft.MeanRFNet += r.RFNetMean
			ft.MeanRFSW += nanZero(r.RFSWMean)
			ft.MeanRFLW += nanZero(r.RFLWMean)
			counts[r.FlightID]++
		}
	}

	totals := make([]FlightTotal, 0, len(order))
	var grand float64
	for _, id := range order {
		ft := byFlight[id]
		if n := counts[id]; n > 0 {
			ft.MeanRFNet /= float64(n)
			ft.MeanRFSW /= float64(n)
			ft.MeanRFLW /= float64(n)
		}
		grand += ft.TotalEF
		totals = append(totals, *ft)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].TotalEF > totals[j].TotalEF
	})

	var cum float64
	for i := range totals {
		if i > 0 && totals[i].TotalEF == totals[i-1].TotalEF {
			totals[i].Rank = totals[i-1].Rank
		} else {
			totals[i].Rank = i + 1
		}
		cum += totals[i].TotalEF
		if grand != 0 {
			totals[i].CumulativePct = 100 * cum / grand
		}
	}
	return totals
}

// TopN splits ranked flight totals into the first n entries and a
// single "others" bucket holding the remainder's summed EF. When n
// covers the whole set, others is zero.
func TopN(totals []FlightTotal, n int) (top []FlightTotal, othersEF float64) {
	if n >= len(totals) {
		return totals, 0
	}
	top = totals[:n]
	for _, ft := range totals[n:] {
		othersEF += ft.TotalEF
	}
	return top, othersEF
}

// CallsignAggregate is the per-operator rollup across a result set
type CallsignAggregate struct {
	Callsign  string
	Flights   int
	TotalEF   float64
	EFPerKm   float64
	MeanRFNet float64
	MeanRFSW  float64
	MeanRFLW  float64
}

// ByCallsign rolls flight totals up per callsign. Forcing per km is
// total EF over total distance flown; zero distance yields zero.
func ByCallsign(totals []FlightTotal) []CallsignAggregate {
	byCS := make(map[string]*CallsignAggregate)
	var order []string

	for _, ft := range totals {
		agg, ok := byCS[ft.Callsign]
		if !ok {
			agg = &CallsignAggregate{Callsign: ft.Callsign}
			byCS[ft.Callsign] = agg
			order = append(order, ft.Callsign)
		}
		agg.Flights++
		agg.TotalEF += ft.TotalEF
		agg.EFPerKm += ft.DistanceM
		agg.MeanRFNet += ft.MeanRFNet
		agg.MeanRFSW += ft.MeanRFSW
		agg.MeanRFLW += ft.MeanRFLW
	}

	out := make([]CallsignAggregate, 0, len(order))
	for _, cs := range order {
		agg := byCS[cs]
		totalDistM := agg.EFPerKm
		if totalDistM > 0 {
			agg.EFPerKm = agg.TotalEF / (totalDistM / 1000)
		} else {
			agg.EFPerKm = 0
		}
		agg.MeanRFNet /= float64(agg.Flights)
		agg.MeanRFSW /= float64(agg.Flights)
		agg.MeanRFLW /= float64(agg.Flights)
		out = append(out, *agg)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalEF > out[j].TotalEF
	})
	return out
}

// ConvergencePoint is one result set's cumulative EF over the shared
// top flights. MeanCumulativeEF is the mean of the running cumulative
// series, the per-set comparison figure.
type ConvergencePoint struct {
	Label            string
	CumulativeEF     float64
	MeanCumulativeEF float64
}

// Convergence compares ranked result sets over the flight IDs common
// to all of them: per set the cumulative EF of the common top n and
// the mean of its running cumulative series, plus the average final
// cumulative EF across sets. Sets with no common flights yield nil.
func Convergence(sets map[string][]FlightTotal, n int) (points []ConvergencePoint, avg float64) {
	if len(sets) == 0 {
		return nil, 0
	}

	var common map[string]bool
	for _, totals := range sets {
		ids := make(map[string]bool, len(totals))
		for _, ft := range totals {
			ids[ft.FlightID] = true
		}
		if common == nil {
			common = ids
			continue
		}
		for id := range common {
			if !ids[id] {
				delete(common, id)
			}
		}
	}
	if len(common) == 0 {
		return nil, 0
	}

	labels := make([]string, 0, len(sets))
	for label := range sets {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		var cum, cumSum float64
		count := 0
		for _, ft := range sets[label] {
			if !common[ft.FlightID] {
				continue
			}
			cum += ft.TotalEF
			cumSum += cum
			count++
			if count == n {
				break
			}
		}
		points = append(points, ConvergencePoint{
			Label:            label,
			CumulativeEF:     cum,
			MeanCumulativeEF: cumSum / float64(count),
		})
		avg += cum
	}
	avg /= float64(len(points))
	return points, avg
}

func nanZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
