// Package export renders team lists as downloadable CSV files for the
// admin dashboard.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/hailaprogramare/contest-backend/internal/model"
)

// Header row matches the live schema; column names stay in Romanian to
// match the dashboard the organizers work with.
var csvHeader = []string{
	"ID", "Nume", "Școală", "Secțiune",
	"Profesor", "Email Profesor", "Telefon",
	"Căpitan", "Email Căpitan",
	"Soluție", "Data",
}

// TeamsCSV renders one header row plus one row per team, RFC-4180 quoted.
func TeamsCSV(teams []*model.Team) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, t := range teams {
		created := ""
		if t.CreatedAt != nil {
			created = t.CreatedAt.Format("02.01.2006 15:04")
		}
		row := []string{
			t.ID, t.Name, t.School, t.Section,
			t.CoordinatorName, t.CoordinatorEmail, t.CoordinatorPhone,
			t.CaptainName, t.CaptainEmail,
			t.SolutionURL, created,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Filename returns the dated download name, e.g. echipe_2026-08-28.csv.
func Filename(now time.Time) string {
	return fmt.Sprintf("echipe_%s.csv", now.Format("2006-01-02"))
}
