/* Package export turns fetched result rows into files.  Pure formatting:
every number comes from the server as-is, so the exported artifacts can
never drift from the authoritative tallies. */
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pemira/evote/internal/errors"
	"github.com/pemira/evote/internal/models"
)

// WriteCSV serializes result rows as a flat table with a header line.
func WriteCSV(w io.Writer, rows []models.ResultRow) error {
	const op errors.Op = "export.WriteCSV"

	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"name", "vice", "total_votes", "percent"}); err != nil {
		return errors.E(op, err, "error writing csv header")
	}

	for _, row := range rows {
		record := []string{
			row.Name,
			row.Vice,
			strconv.Itoa(row.TotalVotes),
			strconv.FormatFloat(row.Percent, 'f', 2, 64),
		}
		if err := cw.Write(record); err != nil {
			return errors.E(op, err, "error writing csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.E(op, err, "error flushing csv")
	}

	return nil
}
