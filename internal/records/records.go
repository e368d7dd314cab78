package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"satcerts/internal/services"
)

// Identifier is one taxpayer record to look up. SequenceID correlates output
// rows with the input; it never drives control flow.
type Identifier struct {
	RFC        string
	SequenceID string
}

// Batch holds the loaded identifiers plus the number of rejected input rows.
type Batch struct {
	Identifiers []Identifier
	Skipped     int
}

// Load reads the batch from a CSV file.
func Load(path string) (Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return Batch{}, services.Wrap(services.ErrInvalidInput, "records", "load", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	batch, err := Read(file)
	if err != nil {
		return Batch{}, services.Wrap(services.ErrInvalidInput, "records", "load", path, err)
	}
	return batch, nil
}

// Read parses identifiers from CSV content. The header must contain an rfc
// column; an id column is optional and defaults to the row ordinal. Rows with
// a missing or empty rfc are counted as skipped, preserving input order for
// the rest.
func Read(r io.Reader) (Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return Batch{}, errors.New("input is empty")
	}
	if err != nil {
		return Batch{}, fmt.Errorf("read header: %w", err)
	}

	rfcCol, idCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "rfc":
			if rfcCol == -1 {
				rfcCol = i
			}
		case "id":
			if idCol == -1 {
				idCol = i
			}
		}
	}
	if rfcCol == -1 {
		return Batch{}, fmt.Errorf("missing required column %q (header: %s)", "rfc", strings.Join(header, ", "))
	}

	var batch Batch
	ordinal := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return batch, nil
		}
		if err != nil {
			return Batch{}, fmt.Errorf("read row: %w", err)
		}
		ordinal++

		rfc := ""
		if rfcCol < len(rec) {
			rfc = strings.ToUpper(strings.TrimSpace(rec[rfcCol]))
		}
		if rfc == "" {
			batch.Skipped++
			continue
		}

		seq := ""
		if idCol >= 0 && idCol < len(rec) {
			seq = strings.TrimSpace(rec[idCol])
		}
		if seq == "" {
			seq = strconv.Itoa(ordinal)
		}

		batch.Identifiers = append(batch.Identifiers, Identifier{RFC: rfc, SequenceID: seq})
	}
}
