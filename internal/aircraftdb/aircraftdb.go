// Package aircraftdb joins flight data with aircraft reference tables:
// icao24 transponder codes map to an ICAO type designator, and the type
// designator maps to airframe parameters (wingspan, nvPM emission index).
package aircraftdb

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/wsilva/contrail/internal/trajectory"
	"github.com/wsilva/contrail/pkg/logger"
)

// Defaults applied when an aircraft is missing from the reference tables
const (
	DefaultAircraftType = "A320"
	DefaultWingspanM    = 34.10
	DefaultNvpmEiN      = 9.57e14
)

// Params holds the airframe parameters looked up per ICAO type
type Params struct {
	WingspanM float64
	NvpmEiN   float64
}

// DB is the in-memory aircraft metadata database
type DB struct {
	typeByICAO24 map[string]string // icao24 -> ICAO type designator
	paramsByType map[string]Params // ICAO type designator -> params
	logger       *logger.Logger
}

// Empty returns a database with no entries; every lookup falls back to
// the defaults
func Empty() *DB {
	return &DB{
		typeByICAO24: make(map[string]string),
		paramsByType: make(map[string]Params),
	}
}

// Load reads both reference CSVs and builds the lookup tables
func Load(icao24Path, paramsPath string, log *logger.Logger) (*DB, error) {
	db := &DB{
		typeByICAO24: make(map[string]string),
		paramsByType: make(map[string]Params),
		logger:       log.Named("aircraftdb"),
	}
	if err := db.loadTypes(icao24Path); err != nil {
		return nil, fmt.Errorf("failed to load aircraft type database: %w", err)
	}
	if err := db.loadParams(paramsPath); err != nil {
		return nil, fmt.Errorf("failed to load aircraft params database: %w", err)
	}
	db.logger.Info("Loaded aircraft databases",
		logger.Int("icao24_entries", len(db.typeByICAO24)),
		logger.Int("type_entries", len(db.paramsByType)))
	return db, nil
}

// loadTypes reads the icao24 -> ICAO type table
func (db *DB) loadTypes(path string) error {
	return readTable(path, func(cols map[string]int, record []string) {
		icao24 := cell(record, cols, "icao24")
		typeCode := cell(record, cols, "icao")
		if icao24 != "" && typeCode != "" {
			db.typeByICAO24[icao24] = typeCode
		}
	})
}

// loadParams reads the ICAO type -> {span_m, nvpm_ei_n} table
func (db *DB) loadParams(path string) error {
	return readTable(path, func(cols map[string]int, record []string) {
		typeCode := cell(record, cols, "icao")
		if typeCode == "" {
			return
		}
		p := Params{WingspanM: DefaultWingspanM, NvpmEiN: DefaultNvpmEiN}
		if v, err := strconv.ParseFloat(cell(record, cols, "span_m"), 64); err == nil {
			p.WingspanM = v
		}
		if v, err := strconv.ParseFloat(cell(record, cols, "nvpm_ei_n"), 64); err == nil {
			p.NvpmEiN = v
		}
		db.paramsByType[typeCode] = p
	})
}

// readTable streams a reference CSV, resolving columns by cleaned header
// name (the source tables carry stray quotes and padding)
func readTable(path string, row func(cols map[string]int, record []string)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[trajectory.NormalizeColumn(h)] = i
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		row(cols, record)
	}
}

func cell(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return trajectory.NormalizeColumnValue(record[i])
}

// TypeFor returns the ICAO type designator for a transponder code,
// falling back to the default type
func (db *DB) TypeFor(icao24 string) string {
	if t, ok := db.typeByICAO24[icao24]; ok {
		return t
	}
	return DefaultAircraftType
}

// Known reports whether the transponder code has a reference entry
func (db *DB) Known(icao24 string) bool {
	_, ok := db.typeByICAO24[icao24]
	return ok
}

// ParamsFor returns the airframe parameters for an ICAO type designator,
// falling back to the defaults
func (db *DB) ParamsFor(typeCode string) Params {
	if p, ok := db.paramsByType[typeCode]; ok {
		return p
	}
	return Params{WingspanM: DefaultWingspanM, NvpmEiN: DefaultNvpmEiN}
}

// Enrich fills a flight's aircraft attributes from its icao24 code,
// applying the defaults where lookups miss
func (db *DB) Enrich(f *trajectory.Flight) {
	f.AircraftType = db.TypeFor(f.ICAO24())
	p := db.ParamsFor(f.AircraftType)
	f.WingspanM = p.WingspanM
	f.NvpmEiN = p.NvpmEiN
}
