package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/tanksim/internal/config"
	"github.com/san-kum/tanksim/internal/dynamo"
	"github.com/san-kum/tanksim/internal/export"
)

const (
	metadataFile = "metadata.json"
	resultsFile  = "results.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID               string             `json:"id"`
	Model            string             `json:"model"`
	ModelParams      map[string]float64 `json:"model_params,omitempty"`
	Timestamp        time.Time          `json:"timestamp"`
	Integrator       string             `json:"integrator"`
	Controller       string             `json:"controller"`
	ControllerParams map[string]float64 `json:"controller_params,omitempty"`
	Dt               float64            `json:"dt"`
	TotalTime        float64            `json:"total_time"`
	X0               float64            `json:"x0"`
	Setpoint         float64            `json:"setpoint"`
	Adaptive         bool               `json:"adaptive"`
	Tolerance        float64            `json:"tolerance,omitempty"`
	Samples          int                `json:"samples"`
	FinalState       float64            `json:"final_state"`
	Metrics          map[string]float64 `json:"metrics"`
}

// NewMetadata describes a run of cfg that produced res. The ID and
// timestamp are assigned by Save.
func NewMetadata(cfg *config.Config, res *dynamo.Results) RunMetadata {
	meta := RunMetadata{
		Model:            cfg.Model,
		ModelParams:      cfg.ModelParams,
		Integrator:       cfg.Integrator,
		Controller:       cfg.Controller,
		ControllerParams: cfg.ControllerParams,
		Dt:               cfg.Dt,
		TotalTime:        cfg.TotalTime,
		X0:               cfg.X0,
		Setpoint:         cfg.Setpoint,
		Adaptive:         cfg.Adaptive,
		Samples:          res.Len(),
		FinalState:       res.Final().State,
		Metrics:          res.Metrics(),
	}
	if cfg.Adaptive {
		meta.Tolerance = cfg.Tolerance
	}
	return meta
}

// Header returns the export header of the run.
func (m RunMetadata) Header() export.Header {
	return export.Header{
		Model:      m.Model,
		Integrator: m.Integrator,
		Controller: m.Controller,
		Dt:         m.Dt,
		TotalTime:  m.TotalTime,
		Setpoint:   m.Setpoint,
		Adaptive:   m.Adaptive,
	}
}

// Save writes the metadata and the samples of a run under a new run ID.
func (s *Store) Save(meta RunMetadata, res *dynamo.Results) (string, error) {
	now := time.Now()
	meta.ID = fmt.Sprintf("%s_%d", meta.Model, now.UnixNano())
	meta.Timestamp = now
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, resultsFile))
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := export.WriteCSV(f, res); err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return meta.ID, f.Close()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns the metadata of every stored run, oldest first. Directories
// without readable metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadResults reads the samples of a run back. Metric values come from
// the run's metadata.
func (s *Store) LoadResults(runID string) (*dynamo.Results, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, runID, resultsFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res, err := export.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return dynamo.NewResults(res.Times(), res.States(), res.TrackingErrors(), res.Actions(), meta.Metrics)
}

// Latest returns the most recent run.
func (s *Store) Latest() (*RunMetadata, error) {
	runs, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no stored runs in %s", s.baseDir)
	}
	return &runs[len(runs)-1], nil
}

func (s *Store) Delete(runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	return os.RemoveAll(filepath.Join(s.baseDir, runID))
}
