package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
)

type csvOptions struct {
	header     bool
	sampleFor  string
	sampleRate float64
	rng        *rand.Rand
}

// CSVOption configures ReadCSV.
type CSVOption func(*csvOptions)

// WithHeader skips the first row.
func WithHeader() CSVOption {
	return func(o *csvOptions) { o.header = true }
}

// WithSampling keeps each row labelled label with probability rate and drops
// the rest. Rows with other labels are always kept. A nil rng uses a
// randomly seeded source.
func WithSampling(label string, rate float64, rng *rand.Rand) CSVOption {
	return func(o *csvOptions) {
		o.sampleFor = label
		o.sampleRate = rate
		o.rng = rng
	}
}

// ReadCSV parses rows in the layout id,label,f1,...,fD. Every row must have
// the same number of columns and at least one feature.
func ReadCSV(r io.Reader, opts ...CSVOption) ([]Record, error) {
	o := csvOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sampleFor != "" && o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	in := csv.NewReader(r)
	in.TrimLeadingSpace = true
	in.ReuseRecord = true

	var out []Record
	for line := 1; ; line++ {
		row, err := in.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("record: failed to read CSV row %d: %w", line, err)
		}
		if line == 1 && o.header {
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("record: CSV row %d: want id,label and at least one feature, got %d columns", line, len(row))
		}
		label := strings.TrimSpace(row[1])
		if o.sampleFor != "" && label == o.sampleFor && o.rng.Float64() > o.sampleRate {
			continue
		}
		features := make([]float64, len(row)-2)
		for i, cell := range row[2:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("record: CSV row %d column %d: invalid number %q", line, i+3, cell)
			}
			features[i] = v
		}
		out = append(out, Record{ID: strings.TrimSpace(row[0]), Label: label, Features: features})
	}
	return out, nil
}

// ReadCSVFile opens path and parses it with ReadCSV.
func ReadCSVFile(path string, opts ...CSVOption) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("record: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, opts...)
}
