package discovery

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/width"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// ReadSheet loads path into a Frame, dispatching on file extension: .xlsx/
// .xlsm via excelize, .csv via encoding/csv. Column headers are normalized
// (spec §4.2 normalize_columns): full-width spaces folded to half-width,
// surrounding whitespace trimmed, blank headers replaced with
// "Unnamed_<index>", and duplicate headers suffixed "_2", "_3", ... in
// first-seen order.
func ReadSheet(domain, path string, sel models.SheetSelector) (*models.Frame, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm":
		return readExcel(domain, path, sel)
	case ".csv":
		return readCSV(domain, path)
	default:
		return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("unsupported file extension %q", ext), nil)
	}
}

func readExcel(domain, path string, sel models.SheetSelector) (*models.Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	sheetName := sel.Name
	if sel.Kind == models.SheetByIndex {
		names := f.GetSheetList()
		if sel.Index < 0 || sel.Index >= len(names) {
			return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("sheet index %d out of range (%d sheets)", sel.Index, len(names)), nil)
		}
		sheetName = names[sel.Index]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("cannot read sheet %q", sheetName), err)
	}
	if len(rows) == 0 {
		return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("sheet %q is empty", sheetName), nil)
	}

	header := normalizeColumns(rows[0])
	frameRows := make([]models.Row, 0, len(rows)-1)
	for _, raw := range rows[1:] {
		r := make(models.Row, len(header))
		for i, col := range header {
			if i < len(raw) {
				r[col] = raw[i]
			} else {
				r[col] = nil
			}
		}
		frameRows = append(frameRows, r)
	}
	return models.NewFrame(header, frameRows), nil
}

func readCSV(domain, path string) (*models.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("cannot open %s", path), err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	headerRaw, err := r.Read()
	if err != nil {
		return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("cannot read header of %s", path), err)
	}
	header := normalizeColumns(headerRaw)

	var frameRows []models.Row
	for {
		raw, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.NewDiscoveryError(domain, errs.FailedSheetReading, fmt.Sprintf("cannot read row of %s", path), err)
		}
		row := make(models.Row, len(header))
		for i, col := range header {
			if i < len(raw) {
				row[col] = raw[i]
			} else {
				row[col] = nil
			}
		}
		frameRows = append(frameRows, row)
	}
	return models.NewFrame(header, frameRows), nil
}

// normalizeColumns folds full-width characters to half-width, trims
// whitespace, fills blank headers with "Unnamed_<index>", and de-duplicates
// repeated headers by appending "_2", "_3", and so on.
func normalizeColumns(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(width.Fold.String(h))
		if h == "" {
			h = fmt.Sprintf("Unnamed_%d", i)
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = h + "_" + strconv.Itoa(n)
		}
		out[i] = h
	}
	return out
}
