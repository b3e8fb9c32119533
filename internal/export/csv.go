package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/tanksim/internal/dynamo"
)

var csvHeader = []string{"time", "state", "error", "action"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per sample under a time,state,error,action header.
func WriteCSV(w io.Writer, res *dynamo.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	row := make([]string, len(csvHeader))
	for i := 0; i < res.Len(); i++ {
		s := res.At(i)
		row[0] = formatFloat(s.Time)
		row[1] = formatFloat(s.State)
		row[2] = formatFloat(s.Error)
		row[3] = formatFloat(s.Action)
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a file written by WriteCSV.
func ReadCSV(r io.Reader) (*dynamo.Results, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read csv: missing header")
	}
	for i, name := range csvHeader {
		if records[0][i] != name {
			return nil, fmt.Errorf("read csv: column %d is %q, want %q", i, records[0][i], name)
		}
	}

	samples := make([]dynamo.Sample, 0, len(records)-1)
	for line, rec := range records[1:] {
		var vals [4]float64
		for j := range vals {
			v, err := strconv.ParseFloat(rec[j], 64)
			if err != nil {
				return nil, fmt.Errorf("read csv: line %d: %w", line+2, err)
			}
			vals[j] = v
		}
		samples = append(samples, dynamo.Sample{Time: vals[0], State: vals[1], Error: vals[2], Action: vals[3]})
	}

	return dynamo.FromSamples(samples, nil), nil
}
