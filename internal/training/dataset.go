// Package training turns uploaded measurement datasets into registered
// forecast models.
package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/smukkama/aqi-forecaster/internal/aqi"
	"github.com/smukkama/aqi-forecaster/internal/model"
)

const timeColumn = "time"

var (
	ErrMissingColumn = errors.New("missing column")
	ErrEmptyDataset  = errors.New("dataset has no usable rows")
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Frame is a parsed dataset: one timestamp per row and one column per
// pollutant. Missing cells are NaN.
type Frame struct {
	Times   []time.Time
	Columns map[aqi.Pollutant][]float64
}

// ReadDataset parses a CSV with a "time" column and "<pollutant>_conc"
// columns. Rows with an unparsable time are dropped; unknown columns are ignored.
func ReadDataset(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	timeIdx := -1
	columns := make(map[int]aqi.Pollutant)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == timeColumn {
			timeIdx = i
			continue
		}
		if !strings.HasSuffix(name, "_conc") {
			continue
		}
		if p, err := aqi.ParsePollutant(name); err == nil && !p.IsSynthetic() {
			columns[i] = p
		}
	}
	if timeIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, timeColumn)
	}

	frame := &Frame{Columns: make(map[aqi.Pollutant][]float64)}
	for _, p := range columns {
		frame.Columns[p] = nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if timeIdx >= len(record) {
			continue
		}

		ts, ok := parseTime(record[timeIdx])
		if !ok {
			continue
		}

		frame.Times = append(frame.Times, ts)
		for idx, p := range columns {
			frame.Columns[p] = append(frame.Columns[p], parseValue(record, idx))
		}
	}

	if len(frame.Times) == 0 {
		return nil, ErrEmptyDataset
	}
	return frame, nil
}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseValue(record []string, idx int) float64 {
	if idx >= len(record) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Len is the number of rows
func (f *Frame) Len() int {
	return len(f.Times)
}

// Append adds the rows of other. Columns missing on either side are NaN-filled.
func (f *Frame) Append(other *Frame) {
	n := f.Len()
	for p := range other.Columns {
		if _, ok := f.Columns[p]; !ok {
			f.Columns[p] = nanSlice(n)
		}
	}
	for p, values := range f.Columns {
		if src, ok := other.Columns[p]; ok {
			f.Columns[p] = append(values, src...)
		} else {
			f.Columns[p] = append(values, nanSlice(other.Len())...)
		}
	}
	f.Times = append(f.Times, other.Times...)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Series extracts the observations of one pollutant, sorted by time. The
// synthetic POLLUTION series is the row mean of the available constituents.
func (f *Frame) Series(p aqi.Pollutant) ([]model.Observation, error) {
	var values func(i int) float64

	if p.IsSynthetic() {
		var cols [][]float64
		for _, c := range aqi.Constituents {
			if col, ok := f.Columns[c]; ok {
				cols = append(cols, col)
			}
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("%w: no pollutant columns to average", ErrMissingColumn)
		}
		values = func(i int) float64 { return rowMean(cols, i) }
	} else {
		col, ok := f.Columns[p]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, p.Column())
		}
		values = func(i int) float64 { return col[i] }
	}

	series := make([]model.Observation, 0, f.Len())
	for i, ts := range f.Times {
		v := values(i)
		if math.IsNaN(v) {
			continue
		}
		series = append(series, model.Observation{Time: ts, Value: v})
	}

	sort.SliceStable(series, func(i, j int) bool { return series[i].Time.Before(series[j].Time) })
	return series, nil
}

func rowMean(cols [][]float64, i int) float64 {
	var sum float64
	var n int
	for _, col := range cols {
		if v := col[i]; !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// Resample averages a sorted series into unit buckets labelled by bucket start.
// Empty buckets are dropped.
func Resample(series []model.Observation, unit model.Unit) []model.Observation {
	var out []model.Observation
	var sum float64
	var n int

	for i, o := range series {
		bucket := unit.Truncate(o.Time)
		if i > 0 && !bucket.Equal(out[len(out)-1].Time) {
			out[len(out)-1].Value = sum / float64(n)
			sum, n = 0, 0
		}
		if n == 0 {
			out = append(out, model.Observation{Time: bucket})
		}
		sum += o.Value
		n++
	}
	if n > 0 {
		out[len(out)-1].Value = sum / float64(n)
	}
	return out
}
