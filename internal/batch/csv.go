package batch

import (
	"encoding/csv"
	"io"
	"strconv"

	"verifyengine/internal/models"
)

// csvHeader is the exact column order spec §6 names for batch export.
var csvHeader = []string{
	"Email", "Valid", "Format Valid", "MX Records", "Disposable",
	"SMTP Check", "Role Account", "Catch All", "Spam Trap", "Suggestion",
}

// WriteCSV renders a batch's results in the spec §6 export format:
// booleans as literal true/false, Suggestion left empty (not "false")
// when absent. encoding/csv handles quoting, matching the teacher's use
// of the standard library's CSV reader in cmd/api/upload.go.
func WriteCSV(w io.Writer, results []models.EmailResult) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, er := range results {
		r := er.Result
		row := []string{
			r.Email,
			strconv.FormatBool(r.IsValid()),
			strconv.FormatBool(r.FormatValid),
			strconv.FormatBool(r.HasMX),
			strconv.FormatBool(r.IsDisposable),
			strconv.FormatBool(r.SMTPOk),
			strconv.FormatBool(r.IsRoleAccount),
			strconv.FormatBool(r.IsCatchAll),
			strconv.FormatBool(r.IsSpamTrap),
			r.Suggestion,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return writer.Error()
}
