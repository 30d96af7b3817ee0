package summary

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// WriteFlightTotals writes the ranked per-flight aggregates to a CSV
// file, replacing any previous content
func WriteFlightTotals(path string, totals []FlightTotal) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create flight totals file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"rank", "flight_id", "callsign", "total_ef", "distance_m",
		"mean_rf_net", "mean_rf_sw", "mean_rf_lw", "cumulative_pct",
	}); err != nil {
		return fmt.Errorf("failed to write flight totals header: %w", err)
	}
	for _, ft := range totals {
		if err := w.Write([]string{
			strconv.Itoa(ft.Rank), ft.FlightID, ft.Callsign,
			num(ft.TotalEF), num(ft.DistanceM),
			num(ft.MeanRFNet), num(ft.MeanRFSW), num(ft.MeanRFLW),
			num(ft.CumulativePct),
		}); err != nil {
			return fmt.Errorf("failed to write flight totals row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCallsignAggregates writes the per-callsign rollup to a CSV
// file, replacing any previous content
func WriteCallsignAggregates(path string, aggs []CallsignAggregate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create callsign totals file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"callsign", "flights", "total_ef", "ef_per_km",
		"mean_rf_net", "mean_rf_sw", "mean_rf_lw",
	}); err != nil {
		return fmt.Errorf("failed to write callsign totals header: %w", err)
	}
	for _, agg := range aggs {
		if err := w.Write([]string{
			agg.Callsign, strconv.Itoa(agg.Flights),
			num(agg.TotalEF), num(agg.EFPerKm),
			num(agg.MeanRFNet), num(agg.MeanRFSW), num(agg.MeanRFLW),
		}); err != nil {
			return fmt.Errorf("failed to write callsign totals row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteConvergence writes the per-set cumulative EF comparison to a
// CSV file, replacing any previous content. The average across sets is
// appended as a final "average" row.
func WriteConvergence(path string, points []ConvergencePoint, avg float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create convergence file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"result_set", "cumulative_ef", "mean_cumulative_ef"}); err != nil {
		return fmt.Errorf("failed to write convergence header: %w", err)
	}
	for _, pt := range points {
		if err := w.Write([]string{pt.Label, num(pt.CumulativeEF), num(pt.MeanCumulativeEF)}); err != nil {
			return fmt.Errorf("failed to write convergence row: %w", err)
		}
	}
	if err := w.Write([]string{"average", num(avg), ""}); err != nil {
		return fmt.Errorf("failed to write convergence average: %w", err)
	}
	w.Flush()
	return w.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
