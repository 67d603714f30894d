package dashboard

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"demand-forecast-engine/analytics"
	"demand-forecast-engine/dataset"
)

// Report is the monitoring view over the merged and forecast tables.
// The aggregate views are derived once at construction; only the
// actual-vs-forecast chart depends on the selected store and is
// re-derived per render.
type Report struct {
	merged    []dataset.MergedRow
	forecasts []dataset.ForecastRow
	summaries []analytics.StoreSummary
	surface   *analytics.Surface
}

// NewReport reconciles the two tables and precomputes the aggregate
// views
func NewReport(merged []dataset.MergedRow, forecasts []dataset.ForecastRow) *Report {
	reconciled := analytics.Reconcile(merged, forecasts)
	return &Report{
		merged:    merged,
		forecasts: forecasts,
		summaries: analytics.EntityErrorSummary(reconciled),
		surface:   analytics.ErrorSurface(reconciled),
	}
}

// RenderFile writes the report for one selected store to an HTML file
func (r *Report) RenderFile(path string, selectedStore int) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()
	return r.Render(file, selectedStore)
}

// Render writes the three report charts as one HTML page
func (r *Report) Render(w io.Writer, selectedStore int) error {
	page := components.NewPage()
	page.AddCharts(
		r.actualVsForecastLine(selectedStore),
		r.maeByStoreBar(),
		r.errorHeatmap(),
	)
	return page.Render(w)
}

// actualVsForecastLine charts one store's realized sales against its
// predictions over the overlapping dates
func (r *Report) actualVsForecastLine(store int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Actual vs. Forecast: Weekly Sales (Store %d)", store),
		}),
	)

	dates, actuals := dataset.StoreSeries(r.merged, store)

	predictedByDate := make(map[string]float64)
	for _, f := range r.forecasts {
		if f.Store == store {
			predictedByDate[dataset.FormatDate(f.Date)] = f.Predicted
		}
	}

	xAxis := make([]string, 0, len(dates))
	actualData := make([]opts.LineData, 0, len(dates))
	forecastData := make([]opts.LineData, 0, len(dates))
	for i, d := range dates {
		label := dataset.FormatDate(d)
		xAxis = append(xAxis, label)
		actualData = append(actualData, opts.LineData{Value: actuals[i]})
		if predicted, ok := predictedByDate[label]; ok {
			forecastData = append(forecastData, opts.LineData{Value: predicted})
		} else {
			forecastData = append(forecastData, opts.LineData{Value: nil})
		}
	}

	line.SetXAxis(xAxis).
		AddSeries("Actual Sales", actualData).
		AddSeries("Forecast Sales", forecastData)
	return line
}

// maeByStoreBar charts mean absolute error per store, worst first
func (r *Report) maeByStoreBar() *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Average Absolute Forecast Error (MAE) by Store",
		}),
	)

	xAxis := make([]string, 0, len(r.summaries))
	data := make([]opts.BarData, 0, len(r.summaries))
	for _, s := range r.summaries {
		xAxis = append(xAxis, strconv.Itoa(s.Store))
		data = append(data, opts.BarData{Value: s.MeanAbsError})
	}

	bar.SetXAxis(xAxis).AddSeries("MAE", data)
	return bar
}

// errorHeatmap charts the dense store × ISO-week mean absolute error
// surface; empty cells are the zero fill
func (r *Report) errorHeatmap() *charts.HeatMap {
	heatmap := charts.NewHeatMap()

	weeks := make([]string, 0, len(r.surface.Weeks))
	for _, w := range r.surface.Weeks {
		weeks = append(weeks, strconv.Itoa(w))
	}
	stores := make([]string, 0, len(r.surface.Stores))
	for _, s := range r.surface.Stores {
		stores = append(stores, strconv.Itoa(s))
	}

	var maxErr float64
	data := make([]opts.HeatMapData, 0, len(r.surface.Stores)*len(r.surface.Weeks))
	for si, store := range r.surface.Stores {
		for wi, week := range r.surface.Weeks {
			cell := r.surface.Cell(store, week)
			if cell > maxErr {
				maxErr = cell
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{wi, si, cell}})
		}
	}

	heatmap.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Weekly Absolute Forecast Error by Store (Heatmap)",
		}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: weeks}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: stores}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Max:        float32(maxErr),
		}),
	)

	heatmap.AddSeries("AbsError", data)
	return heatmap
}
