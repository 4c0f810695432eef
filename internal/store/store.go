// Package store persists solver runs on disk: one directory per run
// with JSON metadata, CSV trajectories and rendered plots.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/RobotXiaoFeng/acado/internal/sqp"
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

type RunMetadata struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
	Objective  float64   `json:"objective"`
	KKT        float64   `json:"kkt"`
	Intervals  int       `json:"intervals"`
	Parameters []float64 `json:"parameters,omitempty"`
	Stats      sqp.Stats `json:"stats"`
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func (s *Store) Save(model string, res *sqp.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := s.Dir(runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      model,
		Timestamp:  time.Now(),
		Status:     string(res.Status),
		Objective:  res.Objective,
		KKT:        res.KKT,
		Intervals:  res.Layout.N,
		Parameters: res.Parameters,
		Stats:      res.Stats,
	}
	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeTrajectory(filepath.Join(runDir, "trajectory.csv"), res); err != nil {
		return "", err
	}
	if err := writeIterations(filepath.Join(runDir, "iterations.csv"), res.Iterations); err != nil {
		return "", err
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTrajectory(path string, res *sqp.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	nx, nu := res.Layout.NX, res.Layout.NU
	header := []string{"time"}
	for i := 0; i < nx; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < nu; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, x := range res.States {
		row := []string{strconv.FormatFloat(res.Times[i], 'f', 6, 64)}
		for _, v := range x {
			row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
		}
		// the control grid has one fewer node; hold the last value
		ci := i
		if ci >= len(res.Controls) {
			ci = len(res.Controls) - 1
		}
		if ci >= 0 {
			for _, v := range res.Controls[ci] {
				row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeIterations(path string, recs []sqp.IterationRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"iter", "objective", "kkt", "eq_violation", "ineq_violation", "step_size", "step_norm", "penalty"}); err != nil {
		return err
	}
	for _, r := range recs {
		row := []string{
			strconv.Itoa(r.Iter),
			strconv.FormatFloat(r.Objective, 'g', -1, 64),
			strconv.FormatFloat(r.KKT, 'g', -1, 64),
			strconv.FormatFloat(r.EqViol, 'g', -1, 64),
			strconv.FormatFloat(r.IneqViol, 'g', -1, 64),
			strconv.FormatFloat(r.StepSize, 'g', -1, 64),
			strconv.FormatFloat(r.StepNorm, 'g', -1, 64),
			strconv.FormatFloat(r.Penalty, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTrajectory reads trajectory.csv back: node times and the numeric
// columns (states then controls) per node.
func (s *Store) LoadTrajectory(runID string) ([]float64, [][]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "trajectory.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []float64{}, [][]float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}
		times = append(times, t)
		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return times, rows, nil
}
