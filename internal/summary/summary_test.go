package summary

import (
	"math"
	"strings"
	"testing"
)

func rec(id string, ef float64) WaypointRecord {
	return WaypointRecord{FlightID: id, EF: ef, RFNetMean: 1, RFSWMean: -0.5, RFLWMean: 1.5}
}

func TestFlightTotalsRankAndPareto(t *testing.T) {
	records := []WaypointRecord{
		rec("AAA1_d1", 10), rec("AAA1_d1", 30), // 40
		rec("BBB2_d1", 60),                     // 60
		rec("CCC3_d1", 40), rec("CCC3_d1", 60), // 100
	}
	totals := FlightTotals(records)
	if len(totals) != 3 {
		t.Fatalf("expected 3 flights, got %d", len(totals))
	}
	if totals[0].FlightID != "CCC3_d1" || totals[0].Rank != 1 {
		t.Errorf("top flight = %+v", totals[0])
	}
	if totals[1].FlightID != "BBB2_d1" || totals[1].Rank != 2 {
		t.Errorf("second flight = %+v", totals[1])
	}
	// Cumulative percentages of the grand total (200)
	wantPct := []float64{50, 80, 100}
	for i, want := range wantPct {
		if math.Abs(totals[i].CumulativePct-want) > 1e-9 {
			t.Errorf("cumulative pct[%d] = %v, want %v", i, totals[i].CumulativePct, want)
		}
	}
}

func TestFlightTotalsTiedRanksShareLowest(t *testing.T) {
	records := []WaypointRecord{
		rec("AAA1_d1", 50), rec("BBB2_d1", 50), rec("CCC3_d1", 10),
	}
	totals := FlightTotals(records)
	if totals[0].Rank != 1 || totals[1].Rank != 1 {
		t.Errorf("tied ranks = %d, %d, want 1, 1", totals[0].Rank, totals[1].Rank)
	}
	if totals[2].Rank != 3 {
		t.Errorf("rank after tie = %d, want 3", totals[2].Rank)
	}
}

func TestFlightTotalsNaNContributesZero(t *testing.T) {
	records := []WaypointRecord{
		rec("AAA1_d1", 50),
		{FlightID: "AAA1_d1", EF: math.NaN(), RFNetMean: math.NaN()},
	}
	totals := FlightTotals(records)
	if totals[0].TotalEF != 50 {
		t.Errorf("TotalEF = %v, want 50", totals[0].TotalEF)
	}
	if totals[0].MeanRFNet != 1 {
		t.Errorf("MeanRFNet = %v, want 1 (NaN rows excluded)", totals[0].MeanRFNet)
	}
}

func TestTopN(t *testing.T) {
	records := []WaypointRecord{
		rec("A_1", 100), rec("B_1", 50), rec("C_1", 30), rec("D_1", 20),
	}
	totals := FlightTotals(records)
	top, others := TopN(totals, 2)
	if len(top) != 2 || top[0].FlightID != "A_1" {
		t.Errorf("top = %+v", top)
	}
	if others != 50 {
		t.Errorf("others = %v, want 50", others)
	}

	all, none := TopN(totals, 10)
	if len(all) != 4 || none != 0 {
		t.Errorf("TopN beyond length: %d flights, others %v", len(all), none)
	}
}

func TestByCallsign(t *testing.T) {
	records := []WaypointRecord{
		{FlightID: "BAW1_d1", EF: 100, DistanceM: 100000, RFNetMean: 2},
		{FlightID: "BAW1_d2", EF: 200, DistanceM: 100000, RFNetMean: 4},
		{FlightID: "DLH9_d1", EF: 50, DistanceM: 50000, RFNetMean: 1},
	}
	aggs := ByCallsign(FlightTotals(records))
	if len(aggs) != 2 {
		t.Fatalf("expected 2 callsigns, got %d", len(aggs))
	}
	baw := aggs[0]
	if baw.Callsign != "BAW1" || baw.Flights != 2 {
		t.Fatalf("first aggregate = %+v", baw)
	}
	if baw.TotalEF != 300 {
		t.Errorf("TotalEF = %v, want 300", baw.TotalEF)
	}
	// 300 EF over 200 km
	if math.Abs(baw.EFPerKm-1.5) > 1e-9 {
		t.Errorf("EFPerKm = %v, want 1.5", baw.EFPerKm)
	}
	if math.Abs(baw.MeanRFNet-3) > 1e-9 {
		t.Errorf("MeanRFNet = %v, want 3", baw.MeanRFNet)
	}
}

func TestConvergence(t *testing.T) {
	day1 := FlightTotals([]WaypointRecord{
		rec("A_1", 100), rec("B_1", 50), rec("C_1", 10),
	})
	day2 := FlightTotals([]WaypointRecord{
		rec("A_1", 80), rec("B_1", 70), rec("D_1", 5),
	})
	points, avg := Convergence(map[string][]FlightTotal{"day1": day1, "day2": day2}, 2)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// Common flights are A_1 and B_1
	if points[0].Label != "day1" || points[0].CumulativeEF != 150 {
		t.Errorf("day1 point = %+v", points[0])
	}
	if points[1].CumulativeEF != 150 {
		t.Errorf("day2 point = %+v", points[1])
	}
	// day1 cumulative series is 100, 150; day2 is 80, 150
	if points[0].MeanCumulativeEF != 125 {
		t.Errorf("day1 mean cumulative = %v, want 125", points[0].MeanCumulativeEF)
	}
	if points[1].MeanCumulativeEF != 115 {
		t.Errorf("day2 mean cumulative = %v, want 115", points[1].MeanCumulativeEF)
	}
	if avg != 150 {
		t.Errorf("avg = %v, want 150", avg)
	}
}

func TestConvergenceNoCommonFlights(t *testing.T) {
	day1 := FlightTotals([]WaypointRecord{rec("A_1", 100)})
	day2 := FlightTotals([]WaypointRecord{rec("B_1", 100)})
	points, _ := Convergence(map[string][]FlightTotal{"day1": day1, "day2": day2}, 1)
	if points != nil {
		t.Errorf("expected nil points, got %+v", points)
	}
}

func TestReadResultsSkipsPlaceholders(t *testing.T) {
	data := `flight_id,latitude,longitude,ef,rf_sw_mean,rf_lw_mean,rf_net_mean
BAW1_d1,51.0,0.0,1e9,-1,3,2
BAW1_d1,51.1,0.0,2e9,-1,3,2
DLH2_d1_ERROR,,,,,,
DLH3_d1,50.0,8.0,5e8,-1,3,2
`
	records, err := ReadResults(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadResults: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records (placeholder skipped), got %d", len(records))
	}
	if records[0].DistanceM != 0 {
		t.Errorf("first waypoint distance = %v, want 0", records[0].DistanceM)
	}
	// Second waypoint of BAW1 carries the inbound segment length, about
	// 11 km for 0.1 degrees of latitude
	if records[1].DistanceM < 10000 || records[1].DistanceM > 12500 {
		t.Errorf("segment distance = %v m, want ~11 km", records[1].DistanceM)
	}
	// DLH3 starts a new flight, so no inbound segment
	if records[2].DistanceM != 0 {
		t.Errorf("new-flight distance = %v, want 0", records[2].DistanceM)
	}
}

func TestReadResultsMissingColumn(t *testing.T) {
	if _, err := ReadResults(strings.NewReader("flight_id,latitude\nX_1,50\n")); err == nil {
		t.Fatal("expected error for missing ef column")
	}
}
