package livehttp

import (
	"fmt"
	"io"
	"math"

	"vwaptrader/internal/indicator"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorClose         = "#eceff4"
	colorVWAP          = "#fbbf24"
	colorEMA           = "#3b82f6"

	chartWidthPx  = 1400
	chartHeightPx = 560
)

// renderSeriesChart 输出 close/VWAP/EMA 三线图。
func renderSeriesChart(w io.Writer, symbol string, points []indicator.Point) error {
	line := charts.NewLine()
	subtitle := fmt.Sprintf("%d samples", len(points))
	if n := len(points); n > 0 {
		last := points[n-1]
		subtitle = fmt.Sprintf("%d samples | close %.2f vwap %.2f ema %.2f", n, last.Close, last.VWAP, last.EMA)
	}
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       symbol,
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         symbol,
			Subtitle:      subtitle,
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	x := make([]string, len(points))
	closes := make([]opts.LineData, len(points))
	vwap := make([]opts.LineData, len(points))
	ema := make([]opts.LineData, len(points))
	for i, p := range points {
		x[i] = p.Time.Format("01-02 15:04:05")
		closes[i] = lineValue(p.Close)
		vwap[i] = lineValue(p.VWAP)
		ema[i] = lineValue(p.EMA)
	}
	line.SetXAxis(x)
	line.AddSeries("Close", closes, charts.WithLineStyleOpts(opts.LineStyle{Color: colorClose, Width: 1}))
	line.AddSeries("VWAP", vwap, charts.WithLineStyleOpts(opts.LineStyle{Color: colorVWAP, Width: 2}))
	line.AddSeries("EMA", ema, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEMA, Width: 2}))
	return line.Render(w)
}

func lineValue(v float64) opts.LineData {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return opts.LineData{Value: nil}
	}
	return opts.LineData{Value: math.Round(v*10000) / 10000}
}
