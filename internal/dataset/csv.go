package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// Stream reads a headed CSV and sends one Row per record. The header is sent
// on headerCh before the first row. All channels are closed when reading
// stops; at most one error is sent.
func Stream(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan Row, <-chan error) {
	headerCh := make(chan []string, 1)
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(headerCh)
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- eris.New("csv: file has no header row")
			return
		}
		if err != nil {
			errCh <- eris.Wrap(err, "csv: read header")
			return
		}
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
		if opts.TrimSpace {
			trimAll(header)
		}
		headerCh <- header

		for line := 2; ; line++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read line %d", line)
				return
			}
			if opts.TrimSpace {
				trimAll(record)
			}

			row := make(Row, len(header))
			for i, col := range header {
				row[col] = record[i]
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return headerCh, rowCh, errCh
}

// Parse reads a whole headed CSV into a Dataset, keeping row order.
func Parse(ctx context.Context, r io.Reader, opts CSVOptions) (*Dataset, error) {
	headerCh, rowCh, errCh := Stream(ctx, r, opts)

	d := &Dataset{Columns: <-headerCh}
	for row := range rowCh {
		d.Rows = append(d.Rows, row)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return d, nil
}

// Read opens and parses a CSV file with default options.
func Read(ctx context.Context, path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	d, err := Parse(ctx, f, CSVOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "csv: parse %s", path)
	}
	return d, nil
}

func trimAll(fields []string) {
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
}
