package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
)

const (
	sessionFile      = "session.json"
	measurementsFile = "measurements.csv"
)

var ErrNotFound = errors.New("storage: session not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type Record struct {
	ID       string           `json:"id"`
	Updated  time.Time        `json:"updated"`
	Snapshot session.Snapshot `json:"session"`
}

// Info summarizes a stored session for listing.
type Info struct {
	ID       string
	Updated  time.Time
	Run      int
	MaxRuns  int
	Seed     int64
	Acquired int
}

func (s *Store) dir(id string) string { return filepath.Join(s.baseDir, id) }

func (s *Store) Exists(id string) bool {
	_, err := os.Stat(filepath.Join(s.dir(id), sessionFile))
	return err == nil
}

// Save writes the snapshot and a flat CSV of every stored measurement.
func (s *Store) Save(id string, snap session.Snapshot) error {
	if id == "" {
		return fmt.Errorf("storage: empty session id")
	}
	runDir := s.dir(id)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	rec := Record{ID: id, Updated: time.Now(), Snapshot: snap}
	metaFile, err := os.Create(filepath.Join(runDir, sessionFile))
	if err != nil {
		return err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return err
	}

	csvFile, err := os.Create(filepath.Join(runDir, measurementsFile))
	if err != nil {
		return err
	}
	defer csvFile.Close()
	return WriteCSV(csvFile, snap.Runs)
}

func (s *Store) Load(id string) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir(id), sessionFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) List() ([]Info, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}

	infos := make([]Info, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		acquired := 0
		for _, set := range rec.Snapshot.Runs {
			acquired += len(set)
		}
		infos = append(infos, Info{
			ID:       rec.ID,
			Updated:  rec.Updated,
			Run:      rec.Snapshot.Run,
			MaxRuns:  rec.Snapshot.MaxRuns,
			Seed:     rec.Snapshot.Seed,
			Acquired: acquired,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Row is one line of the measurement table.
type Row struct {
	Run         int
	Measurement rotor.Measurement
}

func csvHeader() []string {
	header := []string{"run", "regime", "amp_ips", "phase_deg", "rpm"}
	for _, b := range rotor.Blades {
		header = append(header, b.String())
	}
	return header
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

// WriteCSV writes runs in ascending order and regimes in canonical order.
func WriteCSV(out io.Writer, runs map[int]rotor.MeasurementSet) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader()); err != nil {
		return err
	}

	ids := make([]int, 0, len(runs))
	for run := range runs {
		ids = append(ids, run)
	}
	sort.Ints(ids)

	for _, run := range ids {
		for _, r := range rotor.Regimes {
			m, ok := runs[run][r]
			if !ok {
				continue
			}
			row := []string{
				strconv.Itoa(run),
				r.String(),
				formatFloat(m.Balance.AmpIPS),
				formatFloat(m.Balance.PhaseDeg),
				formatFloat(m.Balance.RPM),
			}
			for _, b := range rotor.Blades {
				row = append(row, formatFloat(m.Track[b]))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) LoadMeasurements(id string) ([]Row, error) {
	file, err := os.Open(filepath.Join(s.dir(id), measurementsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Row{}, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < 5+len(rotor.Blades) {
			continue
		}
		run, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		regime, err := rotor.ParseRegime(record[1])
		if err != nil {
			continue
		}
		vals := make([]float64, 0, len(record)-2)
		for _, field := range record[2:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				v = 0
			}
			vals = append(vals, v)
		}
		m := rotor.Measurement{
			Regime:  regime,
			Balance: rotor.BalanceReading{AmpIPS: vals[0], PhaseDeg: vals[1], RPM: vals[2]},
			Track:   make(map[rotor.Blade]float64, len(rotor.Blades)),
		}
		for i, b := range rotor.Blades {
			m.Track[b] = vals[3+i]
		}
		rows = append(rows, Row{Run: run, Measurement: m})
	}
	return rows, nil
}
