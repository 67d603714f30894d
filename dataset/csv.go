package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// columnIndex maps required header names to their positions, failing on
// any absent column
func columnIndex(header []string, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, name := range required {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
		}
	}
	return idx, nil
}

func parseFloatCell(s string) (float64, error) {
	if s == "" || s == "NA" {
		return Missing(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func formatFloatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadSales decodes the primary sales feed
func ReadSales(r io.Reader) ([]SalesRecord, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read sales feed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty sales feed", ErrMissingColumn)
	}

	idx, err := columnIndex(rows[0], []string{"Store", "Date", "Weekly_Sales"})
	if err != nil {
		return nil, fmt.Errorf("sales feed: %w", err)
	}
	holidayCol, hasHoliday := idx["Holiday_Flag"]

	records := make([]SalesRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		store, err := strconv.Atoi(row[idx["Store"]])
		if err != nil {
			return nil, fmt.Errorf("sales feed row %d: bad store id %q", n+2, row[idx["Store"]])
		}
		date, err := ParseDate(row[idx["Date"]])
		if err != nil {
			return nil, fmt.Errorf("sales feed row %d: %w", n+2, err)
		}
		sales, err := strconv.ParseFloat(row[idx["Weekly_Sales"]], 64)
		if err != nil {
			return nil, fmt.Errorf("sales feed row %d: bad weekly sales %q", n+2, row[idx["Weekly_Sales"]])
		}

		rec := SalesRecord{Store: store, Date: date, WeeklySales: sales}
		// An empty flag cell means no holiday; anything else must parse
		if hasHoliday && row[holidayCol] != "" {
			flag, err := strconv.Atoi(row[holidayCol])
			if err != nil {
				return nil, fmt.Errorf("sales feed row %d: bad holiday flag %q", n+2, row[holidayCol])
			}
			rec.HolidayFlag = flag
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadFeatures decodes the time-varying covariate feed
func ReadFeatures(r io.Reader) ([]FeatureRecord, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read features feed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty features feed", ErrMissingColumn)
	}

	idx, err := columnIndex(rows[0], []string{"Store", "Date"})
	if err != nil {
		return nil, fmt.Errorf("features feed: %w", err)
	}

	floatCol := func(row []string, name string) (float64, error) {
		col, ok := idx[name]
		if !ok {
			return Missing(), nil
		}
		return parseFloatCell(row[col])
	}

	records := make([]FeatureRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		store, err := strconv.Atoi(row[idx["Store"]])
		if err != nil {
			return nil, fmt.Errorf("features feed row %d: bad store id %q", n+2, row[idx["Store"]])
		}
		date, err := ParseDate(row[idx["Date"]])
		if err != nil {
			return nil, fmt.Errorf("features feed row %d: %w", n+2, err)
		}

		rec := FeatureRecord{Store: store, Date: date}
		if rec.Temperature, err = floatCol(row, "Temperature"); err != nil {
			return nil, fmt.Errorf("features feed row %d: %w", n+2, err)
		}
		if rec.FuelPrice, err = floatCol(row, "Fuel_Price"); err != nil {
			return nil, fmt.Errorf("features feed row %d: %w", n+2, err)
		}
		if rec.CPI, err = floatCol(row, "CPI"); err != nil {
			return nil, fmt.Errorf("features feed row %d: %w", n+2, err)
		}
		if rec.Unemployment, err = floatCol(row, "Unemployment"); err != nil {
			return nil, fmt.Errorf("features feed row %d: %w", n+2, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadStores decodes the static store attributes feed
func ReadStores(r io.Reader) ([]StoreRecord, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read stores feed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty stores feed", ErrMissingColumn)
	}

	idx, err := columnIndex(rows[0], []string{"Store"})
	if err != nil {
		return nil, fmt.Errorf("stores feed: %w", err)
	}

	records := make([]StoreRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		store, err := strconv.Atoi(row[idx["Store"]])
		if err != nil {
			return nil, fmt.Errorf("stores feed row %d: bad store id %q", n+2, row[idx["Store"]])
		}

		rec := StoreRecord{Store: store, Size: Missing()}
		if col, ok := idx["Type"]; ok {
			rec.Type = row[col]
		}
		if col, ok := idx["Size"]; ok {
			if rec.Size, err = parseFloatCell(row[col]); err != nil {
				return nil, fmt.Errorf("stores feed row %d: bad size %q", n+2, row[col])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

var mergedHeader = []string{
	"Store", "Date", "Weekly_Sales", "Holiday_Flag",
	"Temperature", "Fuel_Price", "CPI", "Unemployment",
	"Type", "Size",
}

// EncodeMerged serializes a merged table to CSV
func EncodeMerged(rows []MergedRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(mergedHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Store),
			FormatDate(row.Date),
			strconv.FormatFloat(row.WeeklySales, 'f', -1, 64),
			strconv.Itoa(row.HolidayFlag),
			formatFloatCell(row.Temperature),
			formatFloatCell(row.FuelPrice),
			formatFloatCell(row.CPI),
			formatFloatCell(row.Unemployment),
			row.Type,
			formatFloatCell(row.Size),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// DecodeMerged deserializes a merged table from CSV
func DecodeMerged(data []byte) ([]MergedRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read merged table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty merged table", ErrMissingColumn)
	}

	idx, err := columnIndex(records[0], mergedHeader)
	if err != nil {
		return nil, fmt.Errorf("merged table: %w", err)
	}

	rows := make([]MergedRow, 0, len(records)-1)
	for n, record := range records[1:] {
		store, err := strconv.Atoi(record[idx["Store"]])
		if err != nil {
			return nil, fmt.Errorf("merged table row %d: bad store id %q", n+2, record[idx["Store"]])
		}
		date, err := ParseDate(record[idx["Date"]])
		if err != nil {
			return nil, fmt.Errorf("merged table row %d: %w", n+2, err)
		}
		sales, err := strconv.ParseFloat(record[idx["Weekly_Sales"]], 64)
		if err != nil {
			return nil, fmt.Errorf("merged table row %d: bad weekly sales %q", n+2, record[idx["Weekly_Sales"]])
		}
		holiday, _ := strconv.Atoi(record[idx["Holiday_Flag"]])

		row := MergedRow{
			Store:       store,
			Date:        date,
			WeeklySales: sales,
			HolidayFlag: holiday,
			Type:        record[idx["Type"]],
		}
		if row.Temperature, err = parseFloatCell(record[idx["Temperature"]]); err != nil {
			return nil, fmt.Errorf("merged table row %d: %w", n+2, err)
		}
		if row.FuelPrice, err = parseFloatCell(record[idx["Fuel_Price"]]); err != nil {
			return nil, fmt.Errorf("merged table row %d: %w", n+2, err)
		}
		if row.CPI, err = parseFloatCell(record[idx["CPI"]]); err != nil {
			return nil, fmt.Errorf("merged table row %d: %w", n+2, err)
		}
		if row.Unemployment, err = parseFloatCell(record[idx["Unemployment"]]); err != nil {
			return nil, fmt.Errorf("merged table row %d: %w", n+2, err)
		}
		if row.Size, err = parseFloatCell(record[idx["Size"]]); err != nil {
			return nil, fmt.Errorf("merged table row %d: %w", n+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

var forecastHeader = []string{"Store", "Date", "Predicted"}

// EncodeForecast serializes a forecast table to CSV
func EncodeForecast(rows []ForecastRow) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(forecastHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			strconv.Itoa(row.Store),
			FormatDate(row.Date),
			strconv.FormatFloat(row.Predicted, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

// DecodeForecast deserializes a forecast table from CSV
func DecodeForecast(data []byte) ([]ForecastRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read forecast table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty forecast table", ErrMissingColumn)
	}

	idx, err := columnIndex(records[0], forecastHeader)
	if err != nil {
		return nil, fmt.Errorf("forecast table: %w", err)
	}

	rows := make([]ForecastRow, 0, len(records)-1)
	for n, record := range records[1:] {
		store, err := strconv.Atoi(record[idx["Store"]])
		if err != nil {
			return nil, fmt.Errorf("forecast table row %d: bad store id %q", n+2, record[idx["Store"]])
		}
		date, err := ParseDate(record[idx["Date"]])
		if err != nil {
			return nil, fmt.Errorf("forecast table row %d: %w", n+2, err)
		}
		predicted, err := strconv.ParseFloat(record[idx["Predicted"]], 64)
		if err != nil {
			return nil, fmt.Errorf("forecast table row %d: bad predicted value %q", n+2, record[idx["Predicted"]])
		}
		rows = append(rows, ForecastRow{Store: store, Date: date, Predicted: predicted})
	}
	return rows, nil
}
