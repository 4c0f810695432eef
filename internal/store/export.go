package store

import (
	"encoding/json"
	"io"
	"os"

	"github.com/RobotXiaoFeng/acado/internal/sqp"
)

// ExportData is the flat JSON form of one solve, convenient for
// downstream plotting and analysis outside the run directory layout.
type ExportData struct {
	Model      string                `json:"model"`
	Status     string                `json:"status"`
	Objective  float64               `json:"objective"`
	KKT        float64               `json:"kkt"`
	Intervals  int                   `json:"intervals"`
	Times      []float64             `json:"times"`
	States     [][]float64           `json:"states"`
	Controls   [][]float64           `json:"controls"`
	Parameters []float64             `json:"parameters,omitempty"`
	Iterations []sqp.IterationRecord `json:"iterations"`
	Stats      sqp.Stats             `json:"stats"`
}

func newExportData(model string, res *sqp.Result) ExportData {
	data := ExportData{
		Model:      model,
		Status:     string(res.Status),
		Objective:  res.Objective,
		KKT:        res.KKT,
		Intervals:  res.Layout.N,
		Times:      res.Times,
		States:     make([][]float64, len(res.States)),
		Controls:   make([][]float64, len(res.Controls)),
		Parameters: res.Parameters,
		Iterations: res.Iterations,
		Stats:      res.Stats,
	}
	for i, s := range res.States {
		data.States[i] = s
	}
	for i, c := range res.Controls {
		data.Controls[i] = c
	}
	return data
}

func ExportJSON(path string, model string, res *sqp.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeExport(file, model, res)
}

func ExportJSONStdout(model string, res *sqp.Result) error {
	return writeExport(os.Stdout, model, res)
}

func writeExport(w io.Writer, model string, res *sqp.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newExportData(model, res))
}
