package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/wsilva/contrail/internal/model"
	"github.com/wsilva/contrail/pkg/logger"
	_ "modernc.org/sqlite"
)

// Store is a SQLite-based store for pipeline state and per-flight
// evaluation summaries
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// New opens (or creates) the database at dbPath and runs migrations
func New(dbPath string, log *logger.Logger) (*Store, error) {
	storeLogger := log.Named("sqlite")

	storeLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: storeLogger}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// GetDB returns the database connection
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS processed_flights (
			flight_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			processed_at TIMESTAMP NOT NULL,
			PRIMARY KEY (flight_id, stage)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create processed_flights table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS flight_summaries (
			flight_id TEXT PRIMARY KEY,
			callsign TEXT,
			icao24 TEXT,
			flight_date TEXT,
			total_energy_forcing REAL,
			total_distance_m REAL,
			mean_rf_net REAL,
			mean_rf_sw REAL,
			mean_rf_lw REAL,
			contrail_formed INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flight_summaries table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_summaries_callsign
		ON flight_summaries(callsign)
	`)
	if err != nil {
		return fmt.Errorf("failed to create callsign index: %w", err)
	}

	return nil
}

// Pipeline stages tracked in the processed-flight set. Each stage
// deduplicates on its own, so a performance run never hides flights
// from a later contrail run.
const (
	StagePerf  = "perf"
	StageCocip = "cocip"
)

// IsProcessed reports whether the flight ID has already been evaluated
// by the given stage
func (s *Store) IsProcessed(flightID, stage string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM processed_flights WHERE flight_id = ? AND stage = ?", flightID, stage,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query processed flight: %w", err)
	}
	return true, nil
}

// MarkProcessed records the flight ID for the given stage so later runs
// of that stage skip it
func (s *Store) MarkProcessed(flightID, stage string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO processed_flights (flight_id, stage, processed_at) VALUES (?, ?, ?)",
		flightID, stage, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark flight processed: %w", err)
	}
	return nil
}

// ProcessedCount returns the number of distinct flights any stage has
// marked processed
func (s *Store) ProcessedCount() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(DISTINCT flight_id) FROM processed_flights").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count processed flights: %w", err)
	}
	return n, nil
}

// SaveSummary upserts one per-flight evaluation summary
func (s *Store) SaveSummary(sum *model.FlightSummary, contrailFormed bool) error {
	_, err := s.db.Exec(`
		INSERT INTO flight_summaries (
			flight_id, callsign, icao24, flight_date,
			total_energy_forcing, total_distance_m,
			mean_rf_net, mean_rf_sw, mean_rf_lw,
			contrail_formed, failed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(flight_id) DO UPDATE SET
			callsign = excluded.callsign,
			icao24 = excluded.icao24,
			flight_date = excluded.flight_date,
			total_energy_forcing = excluded.total_energy_forcing,
			total_distance_m = excluded.total_distance_m,
			mean_rf_net = excluded.mean_rf_net,
			mean_rf_sw = excluded.mean_rf_sw,
			mean_rf_lw = excluded.mean_rf_lw,
			contrail_formed = excluded.contrail_formed,
			failed = 0`,
		sum.FlightID, sum.Callsign, sum.ICAO24, dateText(sum.Date),
		sum.TotalEnergyForcing, sum.TotalDistanceFlownM,
		sum.MeanLifetimeRFNet, sum.MeanLifetimeRFSW, sum.MeanLifetimeRFLW,
		boolToInt(contrailFormed),
	)
	if err != nil {
		return fmt.Errorf("failed to save flight summary: %w", err)
	}
	return nil
}

// SaveFailure records a flight the model could not evaluate
func (s *Store) SaveFailure(flightID, callsign, icao24 string) error {
	_, err := s.db.Exec(`
		INSERT INTO flight_summaries (flight_id, callsign, icao24, failed)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(flight_id) DO UPDATE SET failed = 1`,
		flightID, callsign, icao24,
	)
	if err != nil {
		return fmt.Errorf("failed to save flight failure: %w", err)
	}
	return nil
}

// SummaryRow is one persisted flight summary as served by the API
type SummaryRow struct {
	FlightID           string  `json:"flight_id"`
	Callsign           string  `json:"callsign"`
	ICAO24             string  `json:"icao24"`
	Date               string  `json:"date"`
	TotalEnergyForcing float64 `json:"total_energy_forcing"`
	TotalDistanceM     float64 `json:"total_distance_m"`
	MeanRFNet          float64 `json:"mean_rf_net"`
	MeanRFSW           float64 `json:"mean_rf_sw"`
	MeanRFLW           float64 `json:"mean_rf_lw"`
	ContrailFormed     bool    `json:"contrail_formed"`
	Failed             bool    `json:"failed"`
}

// Summaries returns all persisted flight summaries ordered by total
// energy forcing, highest first
func (s *Store) Summaries() ([]SummaryRow, error) {
	rows, err := s.db.Query(`
		SELECT flight_id, COALESCE(callsign, ''), COALESCE(icao24, ''),
			COALESCE(flight_date, ''),
			COALESCE(total_energy_forcing, 0), COALESCE(total_distance_m, 0),
			COALESCE(mean_rf_net, 0), COALESCE(mean_rf_sw, 0), COALESCE(mean_rf_lw, 0),
			contrail_formed, failed
		FROM flight_summaries
		ORDER BY total_energy_forcing DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight summaries: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var r SummaryRow
		var formed, failed int
		if err := rows.Scan(
			&r.FlightID, &r.Callsign, &r.ICAO24, &r.Date,
			&r.TotalEnergyForcing, &r.TotalDistanceM,
			&r.MeanRFNet, &r.MeanRFSW, &r.MeanRFLW,
			&formed, &failed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight summary: %w", err)
		}
		r.ContrailFormed = formed != 0
		r.Failed = failed != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary returns one flight summary by ID
func (s *Store) Summary(flightID string) (*SummaryRow, error) {
	rows, err := s.db.Query(`
		SELECT flight_id, COALESCE(callsign, ''), COALESCE(icao24, ''),
			COALESCE(flight_date, ''),
			COALESCE(total_energy_forcing, 0), COALESCE(total_distance_m, 0),
			COALESCE(mean_rf_net, 0), COALESCE(mean_rf_sw, 0), COALESCE(mean_rf_lw, 0),
			contrail_formed, failed
		FROM flight_summaries
		WHERE flight_id = ?
	`, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight summary: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var r SummaryRow
	var formed, failed int
	if err := rows.Scan(
		&r.FlightID, &r.Callsign, &r.ICAO24, &r.Date,
		&r.TotalEnergyForcing, &r.TotalDistanceM,
		&r.MeanRFNet, &r.MeanRFSW, &r.MeanRFLW,
		&formed, &failed,
	); err != nil {
		return nil, fmt.Errorf("failed to scan flight summary: %w", err)
	}
	r.ContrailFormed = formed != 0
	r.Failed = failed != 0
	return &r, nil
}

func dateText(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
