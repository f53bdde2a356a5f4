package ictu

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"ictu-backend/lib/htmlutil"
)

// extractTable reads the identified table into ordered header names and one
// name→value map per data row. Rows whose cell count disagrees with the
// header are dropped: the portal renders spanning/annotation rows inside data
// tables and those are not records.
func extractTable(doc *goquery.Document, tableID string) ([]string, []map[string]string, error) {
	table := doc.Find("table#" + tableID).First()
	if table.Length() == 0 {
		return nil, nil, fmt.Errorf("table %q not found", tableID)
	}

	var headers []string
	var rows []map[string]string
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, htmlutil.CellText(cell))
		})

		if i == 0 {
			headers = cells
			return
		}
		if len(cells) != len(headers) {
			return
		}
		row := make(map[string]string, len(headers))
		for j, h := range headers {
			row[h] = cells[j]
		}
		rows = append(rows, row)
	})

	return headers, rows, nil
}

// tableCellRows reads the identified table into raw td grids, keeping ragged
// rows. Header rows rendered with th come out empty; callers extract
// positionally and skip their known header prefix.
func tableCellRows(doc *goquery.Document, tableID string) ([][]string, error) {
	table := doc.Find("table#" + tableID).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("table %q not found", tableID)
	}

	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, htmlutil.CellText(cell))
		})
		rows = append(rows, cells)
	})
	return rows, nil
}
