package main

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/impl/histogram"
	"AddrSpectra/internal/model"
	"AddrSpectra/internal/render"
	"AddrSpectra/pkg/pcap"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

type analyzeOptions struct {
	relationship string
	bars         int
	backend      string
	chartPath    string
	title        string
}

func analyzeCommand() cli.Command {
	return cli.Command{
		Name:      "analyze",
		Usage:     "Print the top addresses of a capture file",
		ArgsUsage: "<capture.pcap>",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "relationship, r",
				Usage: "which addresses to count: src, dst or src_or_dst",
				Value: "src_or_dst",
			},
			cli.IntFlag{
				Name:  "bars, n",
				Usage: "number of ranked addresses to keep",
				Value: 10,
			},
			cli.StringFlag{
				Name:  "backend, b",
				Usage: "counting structure: map, iptree or countmin",
				Value: "map",
			},
			cli.StringFlag{
				Name:  "chart, o",
				Usage: "also render the ranking to `FILE` (.png or .svg)",
			},
			cli.StringFlag{
				Name:  "title, t",
				Usage: "chart title, defaults to the capture file name",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().Get(0)
			if path == "" {
				return cli.NewExitError("Specify a capture file", -1)
			}
			opts := analyzeOptions{
				relationship: c.String("relationship"),
				bars:         c.Int("bars"),
				backend:      c.String("backend"),
				chartPath:    c.String("chart"),
				title:        c.String("title"),
			}
			if _, err := analyze(path, opts, os.Stdout); err != nil {
				return cli.NewExitError(err.Error(), -1)
			}
			return nil
		},
	}
}

// analyze counts the capture with a single task, prints the ranking and optionally draws it.
func analyze(path string, opts analyzeOptions, out io.Writer) (histogram.Snapshot, error) {
	task, err := histogram.New(config.HistogramTaskDef{
		Name:         filepath.Base(path),
		Relationship: opts.relationship,
		MaxBars:      opts.bars,
		Backend:      opts.backend,
	})
	if err != nil {
		return histogram.Snapshot{}, err
	}

	reader, err := pcap.NewReader(path)
	if err != nil {
		return histogram.Snapshot{}, fmt.Errorf("failed to open capture: %w", err)
	}
	defer reader.Close()

	packets := make(chan *model.PacketInfo, 1024)
	go reader.ReadPackets(packets)
	for info := range packets {
		task.ProcessPacket(info)
	}
	log.Printf("Read %d packets from '%s' (%d without a network layer).", reader.Read(), path, reader.Skipped())

	snapshot := task.Snapshot().(histogram.Snapshot)
	printTop(out, snapshot)

	if opts.chartPath != "" {
		if err := drawChart(opts, snapshot); err != nil {
			return snapshot, err
		}
		log.Printf("Chart written to %s", opts.chartPath)
	}
	return snapshot, nil
}

func printTop(out io.Writer, snapshot histogram.Snapshot) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Rank", "Address", "Count", "Share"})
	for i, e := range snapshot.Top.Entries {
		if e.IsEmpty() {
			break
		}
		share := 0.0
		if snapshot.Top.TotalCount > 0 {
			share = float64(e.Count) * 100 / float64(snapshot.Top.TotalCount)
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			e.Key,
			strconv.FormatUint(e.Count, 10),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	table.SetFooter([]string{"", "Total", strconv.FormatUint(snapshot.Top.TotalCount, 10), ""})
	table.Render()
}

func drawChart(opts analyzeOptions, snapshot histogram.Snapshot) error {
	format := "png"
	if filepath.Ext(opts.chartPath) == ".svg" {
		format = "svg"
	}
	title := opts.title
	if title == "" {
		title = snapshot.TaskName
	}
	layout := render.QuickLayout(title, fmt.Sprintf("%s addresses, total %d", snapshot.Relationship, snapshot.Top.TotalCount))
	layout.Format = format

	file, err := os.Create(opts.chartPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer file.Close()
	return render.Render(file, histogram.ChartBars(snapshot.Top), layout)
}
