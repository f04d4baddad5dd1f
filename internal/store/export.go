package store

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
)

var ErrNoRun = errors.New("store: blob has no run number")

// RunBlob is the portable form of a single run.
type RunBlob struct {
	Run          int                                `json:"run"`
	Aircraft     session.Aircraft                   `json:"aircraft"`
	NoteCodes    []int                              `json:"note_codes"`
	Measurements map[rotor.Regime]rotor.Measurement `json:"measurements"`
}

func NewRunBlob(s *session.Session, run int) RunBlob {
	return RunBlob{
		Run:          run,
		Aircraft:     s.Aircraft(),
		NoteCodes:    s.NoteCodes(),
		Measurements: s.Measurements(run),
	}
}

// Apply restores aircraft info, note codes and the run's measurements.
func (b RunBlob) Apply(s *session.Session) error {
	if b.Run == 0 {
		return ErrNoRun
	}
	if err := s.ImportRun(b.Run, b.Measurements); err != nil {
		return err
	}
	s.SetAircraft(b.Aircraft)
	s.SetNoteCodes(b.NoteCodes)
	return nil
}

func WriteJSON(w io.Writer, blob RunBlob) error {
	if blob.NoteCodes == nil {
		blob.NoteCodes = []int{}
	}
	if blob.Measurements == nil {
		blob.Measurements = map[rotor.Regime]rotor.Measurement{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(blob)
}

func ExportJSON(path string, blob RunBlob) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, blob)
}

func ExportJSONStdout(blob RunBlob) error {
	return WriteJSON(os.Stdout, blob)
}

func ReadJSON(r io.Reader) (*RunBlob, error) {
	var blob RunBlob
	if err := json.NewDecoder(r).Decode(&blob); err != nil {
		return nil, err
	}
	for regime, m := range blob.Measurements {
		m.Regime = regime
		if m.Track == nil {
			m.Track = make(map[rotor.Blade]float64)
		}
		blob.Measurements[regime] = m
	}
	return &blob, nil
}

func ImportJSON(path string) (*RunBlob, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadJSON(file)
}
