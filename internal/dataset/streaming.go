package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"mlfit/internal/preprocessing"
)

// StreamingReader reads a headered CSV file in raw batches without
// loading the whole file. Labels stay as strings; callers encode them
// with the attached LabelEncoder once the full label set is known, or
// incrementally for targets encoded up front.
type StreamingReader struct {
	file     *os.File
	reader   *csv.Reader
	header   []string
	labelCol int
	encoder  *preprocessing.LabelEncoder
}

// Batch is one chunk of streamed rows.
type Batch struct {
	X      [][]decimal.Decimal
	Labels []string
}

func (b *Batch) Len() int {
	return len(b.X)
}

func NewStreamingReader(filename string, labelCol int) (*StreamingReader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if labelCol < 0 || labelCol >= len(header) {
		labelCol = len(header) - 1
	}

	return &StreamingReader{
		file:     file,
		reader:   reader,
		header:   header,
		labelCol: labelCol,
		encoder:  preprocessing.NewLabelEncoder(),
	}, nil
}

func (r *StreamingReader) Header() []string {
	return r.header
}

func (r *StreamingReader) Encoder() *preprocessing.LabelEncoder {
	return r.encoder
}

// ReadBatch returns up to batchSize rows. io.EOF is returned once no
// rows remain; a short final batch is returned without error.
func (r *StreamingReader) ReadBatch(batchSize int) (*Batch, error) {
	batch := &Batch{
		X:      make([][]decimal.Decimal, 0, batchSize),
		Labels: make([]string, 0, batchSize),
	}

	for len(batch.X) < batchSize {
		record, err := r.reader.Read()
		if err == io.EOF {
			if len(batch.X) == 0 {
				return nil, io.EOF
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading record: %w", err)
		}

		features := make([]decimal.Decimal, 0, len(record)-1)
		label := ""
		skip := false

		for j, cell := range record {
			if j == r.labelCol {
				label = strings.TrimSpace(cell)
				continue
			}
			if isMissing(cell) {
				skip = true
				break
			}
			val, err := decimal.NewFromString(strings.TrimSpace(cell))
			if err != nil {
				return nil, fmt.Errorf("non-numeric feature value %q in column %d", cell, j)
			}
			features = append(features, val)
		}

		if skip || isMissing(label) {
			continue
		}

		batch.X = append(batch.X, features)
		batch.Labels = append(batch.Labels, label)
	}

	return batch, nil
}

func (r *StreamingReader) Close() error {
	return r.file.Close()
}

// LoadStreaming reads a labeled CSV in fixed-size batches and builds a
// classification dataset once the full label set is known. Unlike
// LoadCSV it never buffers raw cells for the whole file, so it suits
// inputs too large for the eager loader.
func LoadStreaming(filename string, labelCol, batchSize int) (*Dataset, *preprocessing.LabelEncoder, error) {
	if batchSize <= 0 {
		return nil, nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	reader, err := NewStreamingReader(filename, labelCol)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()

	var X [][]decimal.Decimal
	var labels []string
	for {
		batch, err := reader.ReadBatch(batchSize)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		X = append(X, batch.X...)
		labels = append(labels, batch.Labels...)
	}

	classes, err := reader.encoder.FitTransform(labels)
	if err != nil {
		return nil, nil, err
	}

	features := make([]string, 0, len(reader.header)-1)
	for j, name := range reader.header {
		if j != reader.labelCol {
			features = append(features, name)
		}
	}

	ds, err := NewClassification(X, classes, features, reader.encoder.ClassNames())
	if err != nil {
		return nil, nil, err
	}
	return ds, reader.encoder, nil
}

// ForEachBatch streams the whole file through fn in fixed-size batches.
func ForEachBatch(filename string, batchSize int, fn func(*Batch) error) error {
	reader, err := NewStreamingReader(filename, -1)
	if err != nil {
		return err
	}
	defer reader.Close()

	for n := 0; ; n++ {
		batch, err := reader.ReadBatch(batchSize)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error reading batch %d: %w", n, err)
		}
		if err := fn(batch); err != nil {
			return fmt.Errorf("error processing batch %d: %w", n, err)
		}
	}
}
