package writer

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("site-file-enricher/internal/writer")

// XLSXPager keeps every page file as an xlsx workbook named
// "{file_index}_{base_name}" in Dir.
type XLSXPager struct {
	Dir      string
	BaseName string
}

func (p XLSXPager) Path(fileIndex int) string {
	return filepath.Join(p.Dir, fmt.Sprintf("%d_%s", fileIndex, p.BaseName))
}

func writeRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

func (p XLSXPager) Append(ctx context.Context, fileIndex, offset int, header []string, rows [][]string) error {
	_, span := tracer.Start(ctx, "XLSXPager:Append")
	defer span.End()

	path := p.Path(fileIndex)
	span.SetAttributes(
		attribute.String("path", path),
		attribute.Int("offset", offset),
		attribute.Int("rows", len(rows)),
	)

	var f *excelize.File
	if offset == 0 {
		f = excelize.NewFile()
	} else {
		var err error
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
	}
	defer f.Close()

	// the header may have grown since the file was started
	sheet := f.GetSheetName(0)
	err := writeRow(f, sheet, 1, header)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range rows {
		// row 1 is the header
		err := writeRow(f, sheet, offset+i+2, row)
		if err != nil {
			return fmt.Errorf("write row %d: %w", offset+i, err)
		}
	}

	if offset == 0 {
		return f.SaveAs(path)
	}
	return f.Save()
}

// Page is a single Append call recorded by a MemoryPager.
type Page struct {
	FileIndex int
	Offset    int
	Header    []string
	Rows      [][]string
}

// MemoryPager keeps pages in memory, it rejects appends that would leave a
// gap or overwrite rows of a file.
type MemoryPager struct {
	Pages   []Page
	Files   map[int][][]string
	Headers map[int][]string
}

func (p *MemoryPager) Append(_ context.Context, fileIndex, offset int, header []string, rows [][]string) error {
	if p.Files == nil {
		p.Files = map[int][][]string{}
		p.Headers = map[int][]string{}
	}
	if offset == 0 {
		p.Files[fileIndex] = nil
	} else if len(p.Files[fileIndex]) != offset {
		return fmt.Errorf("file %d has %d rows, cannot append at %d", fileIndex, len(p.Files[fileIndex]), offset)
	}

	p.Headers[fileIndex] = header
	p.Pages = append(p.Pages, Page{
		FileIndex: fileIndex,
		Offset:    offset,
		Header:    header,
		Rows:      rows,
	})
	p.Files[fileIndex] = append(p.Files[fileIndex], rows...)
	return nil
}
