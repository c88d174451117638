package parse

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"github.com/quakewatch/quakewatch/internal/geo"
	"github.com/quakewatch/quakewatch/internal/quake"
)

// CSV handles tabular bulletin exports. It runs last: almost anything
// with a comma in it looks vaguely like CSV, so every other format gets
// a chance first.
type CSV struct{}

func (CSV) Type() string  { return "CSV" }
func (CSV) Priority() int { return -1 }

var csvDelimiters = []rune{',', ';', '|', '\t'}

func (c CSV) Parse(data []byte) ([]quake.Report, error) {
	delimiter, ok := sniffDelimiter(data)
	if !ok {
		return nil, Rejection("no consistent delimiter")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		return nil, Rejection("not tabular")
	}

	header := records[0]
	var reports []quake.Report
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[strings.TrimSpace(name)] = strings.TrimSpace(record[i])
			}
		}
		if report, ok := convertRow(row); ok {
			reports = append(reports, report)
		}
	}
	if len(reports) == 0 {
		return nil, Rejection("no usable rows")
	}
	return reports, nil
}

// sniffDelimiter picks the separator that splits the first two lines
// into the same number of fields, more than one.
func sniffDelimiter(data []byte) (rune, bool) {
	sample := data
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	lines := strings.SplitN(string(sample), "\n", 3)
	if len(lines) < 2 {
		return 0, false
	}
	for _, d := range csvDelimiters {
		first := strings.Count(lines[0], string(d))
		second := strings.Count(lines[1], string(d))
		if first > 0 && first == second {
			return d, true
		}
	}
	return 0, false
}

func convertRow(row map[string]string) (quake.Report, bool) {
	pick := func(names ...string) string {
		for _, name := range names {
			if v := row[name]; v != "" {
				return v
			}
		}
		return ""
	}

	lat, errLat := strconv.ParseFloat(pick("Latitude", "Lat"), 64)
	lon, errLon := strconv.ParseFloat(pick("Longitude", "Lon"), 64)
	if errLat != nil || errLon != nil {
		return quake.Report{}, false
	}
	depth, err := strconv.ParseFloat(pick("Depth", "Depth Km"), 64)
	if err != nil {
		depth = 10.0
	}

	var at time.Time
	if t, ok := ParseWhen(pick("Time", "Origin time", "Time UTC"), nil); ok {
		at = t
	} else if t, ok := ParseWhen(pick("Datetime"), nil); ok {
		// Datetime columns are local clock three hours behind UTC in
		// the feeds that use them.
		at = t.Add(3 * time.Hour)
	} else {
		return quake.Report{}, false
	}

	mag, _ := quake.ParseMagnitude(pick("Magnitude", "Mag"), pick("Magnitude Type"))

	report := quake.New(geo.New(lat, lon, -abs(depth)), at, mag)
	report.Status = quake.ParseStatus(pick("Status"))
	if pick("Status") == "" {
		report.Status = quake.StatusDetection
	}
	return report, report.Valid()
}
