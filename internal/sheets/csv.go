package sheets

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/isdelr/sheetcharts-be/internal/models"
)

func readCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	if len(records) == 0 {
		return Table{}, fmt.Errorf("%w: empty csv", ErrUnparsable)
	}

	body := records[1:]
	return buildTable(records[0], len(body), func(row, col int) (models.Cell, bool) {
		if col >= len(body[row]) {
			return models.Cell{}, false
		}
		return coerceText(body[row][col])
	}), nil
}
