// Package render draws a ranked address list as a bar chart.
package render

import (
	"AddrSpectra/internal/config"
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoBars is returned when the list has no slots to draw.
var ErrNoBars = errors.New("no bars to render")

// Bar is one slot of a ranked list. Padding slots have an empty label and a zero count.
type Bar struct {
	Label string
	Count uint64
}

const (
	titleBand    = 40
	subtitleBand = 20
	labelBand    = 18
	basePadding  = 16
)

// Layout holds the static presentation settings of a chart.
type Layout struct {
	Title          string
	Subtitle       string
	XLabel         string
	YLabel         string
	TitleOnBottom  bool
	PadLeftFactor  float64
	PadRightFactor float64
	Width          int
	Height         int
	Format         string // png or svg
}

// QuickLayout is the compact layout used for summary pages: title and subtitle under the bars,
// no side padding and no axis labels.
func QuickLayout(title, subtitle string) Layout {
	return Layout{
		Title:         title,
		Subtitle:      subtitle,
		TitleOnBottom: true,
		Width:         1024,
		Height:        512,
		Format:        "png",
	}
}

// LayoutFromConfig converts the YAML layout of a task.
func LayoutFromConfig(cfg config.LayoutConfig, format string) Layout {
	return Layout{
		Title:          cfg.Title,
		Subtitle:       cfg.Subtitle,
		XLabel:         cfg.XLabel,
		YLabel:         cfg.YLabel,
		TitleOnBottom:  cfg.TitleOnBottom,
		PadLeftFactor:  cfg.PadLeftFactor,
		PadRightFactor: cfg.PadRightFactor,
		Width:          cfg.Width,
		Height:         cfg.Height,
		Format:         format,
	}
}

// Extension returns the file extension of the layout's output format.
func (l Layout) Extension() string {
	if l.Format == "svg" {
		return "svg"
	}
	return "png"
}

// Render draws one bar per slot, proportional to its count, and writes the image to w.
func Render(w io.Writer, slots []Bar, layout Layout) error {
	if len(slots) == 0 {
		return ErrNoBars
	}
	if layout.Width <= 0 || layout.Height <= 0 {
		return fmt.Errorf("invalid chart size %dx%d", layout.Width, layout.Height)
	}

	var maxCount uint64
	bars := make([]chart.Value, len(slots))
	for i, b := range slots {
		bars[i] = chart.Value{Value: float64(b.Count), Label: b.Label}
		maxCount = max(maxCount, b.Count)
	}
	// go-chart needs a non-empty range even when every slot is a padding slot.
	yMax := float64(max(maxCount, 1))

	header := 0
	if layout.Title != "" {
		header += titleBand
	}
	if layout.Subtitle != "" {
		header += subtitleBand
	}
	padding := chart.Box{
		Top:    basePadding,
		Left:   basePadding + int(layout.PadLeftFactor*float64(layout.Width)),
		Right:  basePadding + int(layout.PadRightFactor*float64(layout.Width)),
		Bottom: basePadding + labelBand,
	}
	if layout.TitleOnBottom {
		padding.Bottom += header
	} else {
		padding.Top += header
	}
	if layout.YLabel != "" {
		padding.Top += labelBand
	}
	if layout.XLabel != "" {
		padding.Bottom += labelBand
	}

	plotWidth := layout.Width - padding.Left - padding.Right
	barWidth := max(plotWidth/(2*len(bars)), 1)

	bc := chart.BarChart{
		Width:      layout.Width,
		Height:     layout.Height,
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		Background: chart.Style{Padding: padding},
		XAxis:      chart.Style{FontSize: 8},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Bars:     bars,
		Elements: []chart.Renderable{textBlock(layout, padding)},
	}

	provider := chart.PNG
	if layout.Format == "svg" {
		provider = chart.SVG
	}
	if err := bc.Render(provider, w); err != nil {
		return fmt.Errorf("failed to render bar chart: %w", err)
	}
	return nil
}

// textBlock draws the title, subtitle and axis labels around the plot area.
func textBlock(layout Layout, padding chart.Box) chart.Renderable {
	return func(r chart.Renderer, _ chart.Box, defaults chart.Style) {
		text := func(s string, box chart.Box, size float64) {
			if s == "" {
				return
			}
			style := chart.Style{
				FontSize:            size,
				FontColor:           drawing.ColorBlack,
				TextHorizontalAlign: chart.TextHorizontalAlignCenter,
			}.InheritFrom(defaults)
			chart.Draw.TextWithin(r, s, box, style)
		}

		top := basePadding / 2
		if layout.TitleOnBottom {
			top = layout.Height - padding.Bottom + labelBand + basePadding
			if layout.XLabel != "" {
				top += labelBand
			}
		}
		full := func(top, height int) chart.Box {
			return chart.Box{Top: top, Left: 0, Right: layout.Width, Bottom: top + height}
		}

		if layout.Title != "" {
			text(layout.Title, full(top, titleBand), 16)
			top += titleBand
		}
		text(layout.Subtitle, full(top, subtitleBand), 11)

		plotBottom := layout.Height - padding.Bottom
		text(layout.XLabel, full(plotBottom+labelBand, labelBand), 10)
		text(layout.YLabel, chart.Box{
			Top:    padding.Top - labelBand,
			Left:   padding.Left,
			Right:  padding.Left + layout.Width/4,
			Bottom: padding.Top,
		}, 10)
	}
}
