package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// Write выгружает таблицу в формате format.
func Write(w io.Writer, format Format, table Table) error {
	if len(table.Responses) == 0 {
		return ErrNoData
	}

	switch format {
	case FormatXLSX:
		return XLSX(w, table)
	case FormatCSV:
		return CSV(w, table)
	case FormatPDF:
		return PDF(w, table)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// XLSX выгружает ответы на лист Responses.
func XLSX(w io.Writer, table Table) error {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	records := table.records()

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		row := make([]any, len(record))
		for j, value := range record {
			row[j] = value
		}

		if err = f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(records[0]), 1)
	if err != nil {
		return err
	}

	if err = f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}

	if err = f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	return nil
}

// CSV выгружает ответы в CSV с теми же колонками, что и таблица.
func CSV(w io.Writer, table Table) error {
	var buf bytes.Buffer

	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(table.records()); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}

	_, err := w.Write(buf.Bytes())

	return err
}

// SaveFile записывает выгрузку в dir/name через временный файл.
// Временный файл удаляется при любой ошибке.
func SaveFile(dir, name string, write func(w io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	tmpName := tmp.Name()
	committed := false

	defer func() {
		if committed {
			return
		}

		if removeErr := os.Remove(tmpName); removeErr != nil && !os.IsNotExist(removeErr) {
			slog.Warn("failed to remove temp export file", "path", tmpName, "error", removeErr)
		}
	}()

	if err = write(tmp); err != nil {
		_ = tmp.Close()
		return "", err
	}

	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	path := filepath.Join(dir, name)
	if err = os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	committed = true

	return path, nil
}
