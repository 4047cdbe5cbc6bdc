// Package writer commits enriched rows to a series of bounded output
// files, one record at a time.
package writer

import (
	"context"
	"errors"
	"fmt"

	"site-file-enricher/internal/components/assert"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/model"
)

// DEFAULT_CAPACITY is the default amount of data rows per output file.
const DEFAULT_CAPACITY = 300

const (
	report_writer_update = "writer.update"
	report_writer_page   = "writer.page"
)

// Pager stores pages of rows. An offset of 0 starts a new file, any other
// offset appends after that many data rows. The header of a file is the one
// passed with its latest page.
type Pager interface {
	Append(ctx context.Context, fileIndex, offset int, header []string, rows [][]string) error
}

// State is where the next page goes, it only moves forward during a run.
type State struct {
	FileIndex  int
	RowsInFile int
	Capacity   int
}

type Writer struct {
	table *Table
	pager Pager
	state State
	wrote bool
	tel   telemetry.API
}

func NewWriter(table *Table, pager Pager, capacity int, tel telemetry.API) (*Writer, error) {
	assert.NotNil(table)
	assert.NotNil(pager)
	assert.NotNil(tel)
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity per file must be positive, got %d", capacity)
	}
	return &Writer{
		table: table,
		pager: pager,
		state: State{Capacity: capacity},
		tel:   telemetry.NewScopedAPI("writer", tel),
	}, nil
}

func (w *Writer) State() State {
	return w.state
}

// Files is the amount of output files written so far.
func (w *Writer) Files() int {
	if !w.wrote {
		return 0
	}
	return w.state.FileIndex + 1
}

// Write applies the updates to the table and then appends every row of the
// record to the output. It is meant to be called exactly once per record,
// with no rows when nothing was found for the record.
func (w *Writer) Write(ctx context.Context, rows []model.OutputRow, recordURL string) error {
	var updateErrs []error
	for _, row := range rows {
		for _, u := range row.Updates {
			err := w.table.Set(row.Index, u.Name, u.Value)
			if err != nil {
				w.tel.ReportBroken(report_writer_update, err, recordURL, u.Name)
				updateErrs = append(updateErrs, err)
			}
		}
	}

	header := w.table.Header()
	pending := w.table.RecordRows(recordURL)
	for len(pending) > 0 {
		if w.state.RowsInFile >= w.state.Capacity {
			w.state.FileIndex++
			w.state.RowsInFile = 0
		}

		n := min(w.state.Capacity-w.state.RowsInFile, len(pending))
		err := w.pager.Append(ctx, w.state.FileIndex, w.state.RowsInFile, header, pending[:n])
		if err != nil {
			w.tel.ReportBroken(report_writer_page, err, w.state.FileIndex, w.state.RowsInFile)
			return fmt.Errorf("write page %d at row %d: %w", w.state.FileIndex, w.state.RowsInFile, err)
		}
		w.wrote = true

		w.tel.ReportDebug("wrote page", recordURL, w.state.FileIndex, w.state.RowsInFile, n)
		w.state.RowsInFile += n
		pending = pending[n:]
	}

	if len(updateErrs) > 0 {
		return fmt.Errorf("apply updates: %w", errors.Join(updateErrs...))
	}
	return nil
}
