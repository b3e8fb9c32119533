package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/san-kum/tanksim/internal/dynamo"
)

// Header identifies the run a document was produced by.
type Header struct {
	Model      string  `json:"model"`
	Integrator string  `json:"integrator"`
	Controller string  `json:"controller"`
	Dt         float64 `json:"dt"`
	TotalTime  float64 `json:"total_time"`
	Setpoint   float64 `json:"setpoint"`
	Adaptive   bool    `json:"adaptive"`
}

type Document struct {
	Header
	Samples int                `json:"samples"`
	Times   []float64          `json:"times"`
	States  []float64          `json:"states"`
	Errors  []float64          `json:"errors"`
	Actions []float64          `json:"actions"`
	Metrics map[string]float64 `json:"metrics"`
}

func NewDocument(h Header, res *dynamo.Results) Document {
	return Document{
		Header:  h,
		Samples: res.Len(),
		Times:   res.Times(),
		States:  res.States(),
		Errors:  res.TrackingErrors(),
		Actions: res.Actions(),
		Metrics: res.Metrics(),
	}
}

// Results rebuilds the record described by the document.
func (d Document) Results() (*dynamo.Results, error) {
	return dynamo.NewResults(d.Times, d.States, d.Errors, d.Actions, d.Metrics)
}

func WriteJSON(w io.Writer, h Header, res *dynamo.Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(h, res))
}

func ReadJSON(r io.Reader) (Document, error) {
	var d Document
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return Document{}, fmt.Errorf("read json: %w", err)
	}
	return d, nil
}
