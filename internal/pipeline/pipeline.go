// Package pipeline runs the contrail analysis stages: true-airspeed
// annotation, aircraft metadata enrichment, external model evaluation,
// and energy-forcing aggregation. Stages process files and flights
// sequentially and append to their output CSVs so interrupted runs can
// resume.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wsilva/contrail/internal/aircraftdb"
	"github.com/wsilva/contrail/internal/airspeed"
	"github.com/wsilva/contrail/internal/config"
	"github.com/wsilva/contrail/internal/met"
	"github.com/wsilva/contrail/internal/model"
	"github.com/wsilva/contrail/internal/storage/sqlite"
	"github.com/wsilva/contrail/internal/summary"
	"github.com/wsilva/contrail/internal/trajectory"
	"github.com/wsilva/contrail/pkg/logger"
)

// bbox padding so grid edges cover waypoints near the envelope
const (
	bboxMarginDeg  = 1.0
	timeMarginHour = 1
)

// Pipeline wires the stages to their collaborators
type Pipeline struct {
	cfg       *config.Config
	logger    *logger.Logger
	loader    *trajectory.Loader
	estimator *airspeed.Estimator
	metSvc    *met.Service
	modelCli  *model.Client
	acdb      *aircraftdb.DB
	store     *sqlite.Store
}

// New builds a pipeline from configuration. The aircraft database is
// optional; flights fall back to default metadata when paths are not
// configured.
func New(cfg *config.Config, store *sqlite.Store, log *logger.Logger) (*Pipeline, error) {
	pipeLogger := log.Named("pipeline")

	modelCli, err := model.NewClient(cfg.Model, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	var acdb *aircraftdb.DB
	if cfg.AircraftDB.ICAO24Path != "" || cfg.AircraftDB.ParamsPath != "" {
		acdb, err = aircraftdb.Load(cfg.AircraftDB.ICAO24Path, cfg.AircraftDB.ParamsPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load aircraft database: %w", err)
		}
	} else {
		acdb = aircraftdb.Empty()
	}

	return &Pipeline{
		cfg:       cfg,
		logger:    pipeLogger,
		loader:    trajectory.NewLoader(trajectory.AltitudeUnit(cfg.Pipeline.AltitudeUnit), log),
		estimator: airspeed.NewEstimator(cfg.Airspeed, log),
		metSvc:    met.NewService(cfg.Met, log),
		modelCli:  modelCli,
		acdb:      acdb,
		store:     store,
	}, nil
}

func (p *Pipeline) tasPath() string {
	return filepath.Join(p.cfg.Pipeline.OutputDir, p.cfg.Pipeline.TASFile)
}

func (p *Pipeline) resultPath() string {
	return filepath.Join(p.cfg.Pipeline.OutputDir, p.cfg.Pipeline.ResultFile)
}

// inputFiles lists the trajectory CSVs in lexical order so rerun
// output is deterministic
func (p *Pipeline) inputFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Pipeline.TrajectoryDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read trajectory directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Pipeline.TrajectoryDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// RunTAS annotates every trajectory file with pressure, wind, and true
// airspeed, appending to the TAS output CSV. A file whose wind grid
// cannot be fetched is skipped with a warning; the stage continues.
func (p *Pipeline) RunTAS(ctx context.Context) error {
	files, err := p.inputFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no trajectory CSV files in %s", p.cfg.Pipeline.TrajectoryDir)
	}

	if err := os.MkdirAll(p.cfg.Pipeline.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	writer, err := trajectory.NewAppendWriter(p.tasPath())
	if err != nil {
		return err
	}
	defer writer.Close()

	skipped := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processTASFile(ctx, path, writer); err != nil {
			p.logger.Warn("Skipping trajectory file",
				logger.String("file", filepath.Base(path)),
				logger.Error(err))
			skipped++
			continue
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush TAS output: %w", err)
		}
	}

	p.logger.Info("True-airspeed stage complete",
		logger.Int("files", len(files)),
		logger.Int("skipped", skipped),
		logger.String("output", p.tasPath()))
	return nil
}

func (p *Pipeline) processTASFile(ctx context.Context, path string, writer *trajectory.AppendWriter) error {
	waypoints, err := p.loader.LoadFile(path)
	if err != nil {
		return err
	}
	flights := trajectory.GroupFlights(waypoints)
	if len(flights) == 0 {
		p.logger.Warn("No flights in file", logger.String("file", filepath.Base(path)))
		return nil
	}

	grid, err := p.metSvc.GetGrid(ctx, p.gridRequest(flights))
	if err != nil {
		return fmt.Errorf("wind grid unavailable: %w", err)
	}

	for _, f := range flights {
		p.estimator.Estimate(f, grid)
		if err := writer.WriteFlight(f); err != nil {
			return err
		}
	}

	p.logger.Info("Annotated trajectory file",
		logger.String("file", filepath.Base(path)),
		logger.Int("flights", len(flights)),
		logger.Int("waypoints", len(waypoints)))
	return nil
}

// gridRequest builds the wind-field subset covering the given flights,
// padded so nearest-neighbor lookups near the envelope stay in range
func (p *Pipeline) gridRequest(flights []*trajectory.Flight) met.GridRequest {
	req := met.GridRequest{
		LatMin: 90, LatMax: -90,
		LonMin: 180, LonMax: -180,
		Levels: p.cfg.Met.PressureLevels,
	}
	for _, f := range flights {
		start, end := f.TimeBounds()
		if req.Start.IsZero() || start.Before(req.Start) {
			req.Start = start
		}
		if end.After(req.End) {
			req.End = end
		}
		for _, wp := range f.Waypoints {
			if wp.Latitude < req.LatMin {
				req.LatMin = wp.Latitude
			}
			if wp.Latitude > req.LatMax {
				req.LatMax = wp.Latitude
			}
			if wp.Longitude < req.LonMin {
				req.LonMin = wp.Longitude
			}
			if wp.Longitude > req.LonMax {
				req.LonMax = wp.Longitude
			}
		}
	}
	req.Start = req.Start.Add(-timeMarginHour * time.Hour)
	req.End = req.End.Add(timeMarginHour * time.Hour)
	req.LatMin -= bboxMarginDeg
	req.LatMax += bboxMarginDeg
	req.LonMin -= bboxMarginDeg
	req.LonMax += bboxMarginDeg
	return req
}

// loadTASFlights reads the TAS-annotated CSV back and groups it into
// flights with aircraft metadata applied. Annotated output always
// stores altitude in meters, whatever unit the raw inputs used.
func (p *Pipeline) loadTASFlights() ([]*trajectory.Flight, error) {
	loader := trajectory.NewLoader(trajectory.AltitudeMeters, p.logger)
	waypoints, err := loader.LoadFile(p.tasPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load TAS file (run the tas stage first): %w", err)
	}
	flights := trajectory.GroupFlights(waypoints)
	for _, f := range flights {
		p.acdb.Enrich(f)
	}
	return flights, nil
}

// RunEnrich loads the TAS output, applies the aircraft metadata join,
// and reports the coverage. The join itself also runs inline in the
// model stages; this stage exists to inspect metadata coverage on its
// own.
func (p *Pipeline) RunEnrich(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flights, err := p.loadTASFlights()
	if err != nil {
		return err
	}

	defaulted := 0
	for _, f := range flights {
		if !p.acdb.Known(f.ICAO24()) {
			defaulted++
		}
	}
	p.logger.Info("Aircraft metadata join complete",
		logger.Int("flights", len(flights)),
		logger.Int("defaulted", defaulted))
	return nil
}

// RunPerf evaluates the performance model for every unprocessed flight
// and writes the filled waypoint rows to the result CSV. Contrail
// columns stay empty; RunCocip fills both.
func (p *Pipeline) RunPerf(ctx context.Context) error {
	return p.evalFlights(ctx, false)
}

// RunCocip evaluates the full contrail model for every unprocessed
// flight, writing result rows, persisting per-flight summaries, and
// recording processed IDs. Flights the model rejects get a placeholder
// row and the batch continues.
func (p *Pipeline) RunCocip(ctx context.Context) error {
	return p.evalFlights(ctx, true)
}

func (p *Pipeline) evalFlights(ctx context.Context, cocip bool) error {
	flights, err := p.loadTASFlights()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(p.cfg.Pipeline.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	writer, err := model.NewResultWriter(p.resultPath())
	if err != nil {
		return err
	}
	defer writer.Close()

	stage := sqlite.StagePerf
	if cocip {
		stage = sqlite.StageCocip
	}

	evaluated, skipped, failed := 0, 0, 0
	for _, f := range flights {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := p.store.IsProcessed(f.ID, stage)
		if err != nil {
			return err
		}
		if done {
			skipped++
			continue
		}

		if err := p.evalFlight(ctx, f, writer, cocip); err != nil {
			var modelErr *model.Error
			if !errors.As(err, &modelErr) {
				return err
			}
			p.logger.Warn("Model evaluation failed",
				logger.String("flight_id", f.ID),
				logger.String("kind", string(modelErr.Kind)),
				logger.Error(modelErr))
			if err := writer.WritePlaceholder(f.ID); err != nil {
				return err
			}
			if err := p.store.SaveFailure(f.ID, f.Callsign(), f.ICAO24()); err != nil {
				return err
			}
			failed++
		} else {
			evaluated++
		}

		// Failed flights are recorded too so reruns do not retry them
		if err := p.store.MarkProcessed(f.ID, stage); err != nil {
			return err
		}
		if err := writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush result output: %w", err)
		}
	}

	p.logger.Info("Model stage complete",
		logger.Bool("cocip", cocip),
		logger.Int("evaluated", evaluated),
		logger.Int("skipped", skipped),
		logger.Int("failed", failed),
		logger.String("output", p.resultPath()))
	return nil
}

func (p *Pipeline) evalFlight(ctx context.Context, f *trajectory.Flight, writer *model.ResultWriter, cocip bool) error {
	perf, err := p.modelCli.EvalPerformance(ctx, f)
	if err != nil {
		return err
	}
	if !cocip {
		return writer.WriteFlight(f, nil, perf)
	}

	out, err := p.modelCli.EvalCocip(ctx, f)
	if err != nil {
		return err
	}
	if err := writer.WriteFlight(f, out, perf); err != nil {
		return err
	}

	sum := out.Summary
	if sum.FlightID == "" {
		sum.FlightID = f.ID
	}
	if sum.Callsign == "" {
		sum.Callsign = f.Callsign()
	}
	if sum.ICAO24 == "" {
		sum.ICAO24 = f.ICAO24()
	}
	if sum.TotalDistanceFlownM == 0 {
		sum.TotalDistanceFlownM = f.TotalDistance()
	}
	return p.store.SaveSummary(&sum, out.ContrailFormed)
}

// RunSummary aggregates the result CSV into per-flight and
// per-callsign summary CSVs in the output directory
func (p *Pipeline) RunSummary(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := summary.ReadResultFile(p.resultPath())
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no result rows in %s (run the cocip stage first)", p.resultPath())
	}

	totals := summary.FlightTotals(records)
	byCallsign := summary.ByCallsign(totals)

	flightPath := filepath.Join(p.cfg.Pipeline.OutputDir, "flight_totals.csv")
	if err := summary.WriteFlightTotals(flightPath, totals); err != nil {
		return err
	}
	callsignPath := filepath.Join(p.cfg.Pipeline.OutputDir, "callsign_totals.csv")
	if err := summary.WriteCallsignAggregates(callsignPath, byCallsign); err != nil {
		return err
	}

	top, othersEF := summary.TopN(totals, 10)
	for _, ft := range top {
		p.logger.Info("Top flight by energy forcing",
			logger.Int("rank", ft.Rank),
			logger.String("flight_id", ft.FlightID),
			logger.Float64("total_ef", ft.TotalEF),
			logger.Float64("cumulative_pct", ft.CumulativePct))
	}
	p.logger.Info("Summary stage complete",
		logger.Int("flights", len(totals)),
		logger.Int("callsigns", len(byCallsign)),
		logger.Float64("others_ef", othersEF),
		logger.String("flight_totals", flightPath),
		logger.String("callsign_totals", callsignPath))
	return nil
}

// RunConvergence compares this run's result set against previously
// produced result CSVs: cumulative EF of the common top flights per
// set, written to convergence.csv in the output directory. Labels are
// the result file names without extension.
func (p *Pipeline) RunConvergence(ctx context.Context, comparePaths []string, topN int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sets := make(map[string][]summary.FlightTotal, len(comparePaths)+1)
	for _, path := range append([]string{p.resultPath()}, comparePaths...) {
		records, err := summary.ReadResultFile(path)
		if err != nil {
			return err
		}
		label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		sets[label] = summary.FlightTotals(records)
	}

	points, avg := summary.Convergence(sets, topN)
	if points == nil {
		return fmt.Errorf("no flights common to all %d result sets", len(sets))
	}

	outPath := filepath.Join(p.cfg.Pipeline.OutputDir, "convergence.csv")
	if err := summary.WriteConvergence(outPath, points, avg); err != nil {
		return err
	}
	for _, pt := range points {
		p.logger.Info("Result set cumulative energy forcing",
			logger.String("result_set", pt.Label),
			logger.Float64("cumulative_ef", pt.CumulativeEF),
			logger.Float64("mean_cumulative_ef", pt.MeanCumulativeEF))
	}
	p.logger.Info("Convergence comparison complete",
		logger.Int("result_sets", len(points)),
		logger.Int("top_n", topN),
		logger.Float64("average_ef", avg),
		logger.String("output", outPath))
	return nil
}

// Run executes the full pipeline in order
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.RunTAS(ctx); err != nil {
		return err
	}
	if err := p.RunCocip(ctx); err != nil {
		return err
	}
	return p.RunSummary(ctx)
}
