// Package sheetutil decodes the spreadsheet exports produced by legacy web
// portals. Depending on server version the same export endpoint may return a
// BIFF .xls workbook, an OOXML .xlsx workbook, or an HTML table with an .xls
// filename, so the format is sniffed from the payload rather than trusted
// from headers.
package sheetutil

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"ictu-backend/lib/htmlutil"
)

var (
	zipMagic  = []byte{0x50, 0x4b, 0x03, 0x04}
	ole2Magic = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}
)

// ReadRows decodes the first sheet of a spreadsheet payload into a row-major
// string grid. Cells are returned untrimmed; rows may have ragged lengths.
func ReadRows(data []byte) ([][]string, error) {
	switch {
	case bytes.HasPrefix(data, ole2Magic):
		return readBiff(data)
	case bytes.HasPrefix(data, zipMagic):
		return readOoxml(data)
	case looksLikeHTML(data):
		return readHTMLTable(data)
	}
	return nil, fmt.Errorf("unrecognized spreadsheet payload (%d bytes)", len(data))
}

func looksLikeHTML(data []byte) bool {
	head := bytes.TrimLeft(data, " \t\r\n")
	return len(head) > 0 && head[0] == '<'
}

func readBiff(data []byte) ([][]string, error) {
	book, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	sheet := book.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("xls workbook has no sheets")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readOoxml(data []byte) ([][]string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx workbook has no sheets")
	}
	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}
	return rows, nil
}

func readHTMLTable(data []byte) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html export: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("html export contains no table")
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, htmlutil.CleanText(cell))
		})
		rows = append(rows, cells)
	})
	if len(rows) == 0 {
		return nil, fmt.Errorf("html export table is empty")
	}
	return rows, nil
}
