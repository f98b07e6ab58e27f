// Package intake turns an uploaded candidate file into a batch.
package intake

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"recruit-workers/internal/models"
)

// Column order of an upload file. The first row is a header and is ignored.
const (
	colName = iota
	colPhone
	colAge
	colAddress
	colCompany
	colPosition
	colEducation
	colExperienceLevel // optional
)

// DroppedRow records why a data row did not make it into the batch.
type DroppedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult is the parsed batch plus the rows that were dropped.
type ParseResult struct {
	Records []models.CandidateRecord `json:"records"`
	Dropped []DroppedRow             `json:"dropped"`
}

// DroppedCount is len(Dropped).
func (r ParseResult) DroppedCount() int {
	return len(r.Dropped)
}

// ParseCSV reads a comma-delimited upload. Rows without a name or phone are
// dropped and reported, as are rows failing record validation. An age that is
// not an integer in [0, models.MaxAge] is treated as missing.
func ParseCSV(r io.Reader) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	res := ParseResult{
		Records: []models.CandidateRecord{},
		Dropped: []DroppedRow{},
	}

	headerSeen := false
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read csv: %w", err)
		}
		if !headerSeen {
			headerSeen = true
			continue
		}

		line, _ := reader.FieldPos(0)
		rec := parseRow(row)
		switch {
		case rec.Name == "":
			res.Dropped = append(res.Dropped, DroppedRow{Line: line, Reason: "missing name"})
		case rec.Phone == "":
			res.Dropped = append(res.Dropped, DroppedRow{Line: line, Reason: "missing phone"})
		default:
			if err := models.Validate(rec); err != nil {
				res.Dropped = append(res.Dropped, DroppedRow{Line: line, Reason: dropReason(err)})
				continue
			}
			res.Records = append(res.Records, rec)
		}
	}

	return res, nil
}

func parseRow(row []string) models.CandidateRecord {
	get := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	rec := models.CandidateRecord{
		Name:      get(colName),
		Phone:     get(colPhone),
		Address:   get(colAddress),
		Company:   get(colCompany),
		Position:  get(colPosition),
		Education: get(colEducation),
	}
	if age, err := strconv.Atoi(get(colAge)); err == nil && age >= 0 && age <= models.MaxAge {
		rec.Age = &age
	}
	rec.ExperienceLevel = ParseExperienceLevel(get(colExperienceLevel))
	return rec
}

func dropReason(err error) string {
	var fe *models.FieldError
	if errors.As(err, &fe) {
		return "invalid " + fe.Field
	}
	return err.Error()
}

// ParseExperienceLevel folds s onto the enum. Unknown values are unset.
func ParseExperienceLevel(s string) models.ExperienceLevel {
	switch lvl := models.ExperienceLevel(strings.ToLower(strings.TrimSpace(s))); lvl {
	case models.ExperienceJunior, models.ExperienceMid, models.ExperienceSenior:
		return lvl
	default:
		return models.ExperienceUnset
	}
}
