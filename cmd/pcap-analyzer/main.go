package main

import (
	"log"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "pcap-analyzer"
	app.Usage = "Rank the busiest addresses of a capture file."
	app.Version = "0.3.0"
	app.Commands = commands()

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var configFlag = cli.StringFlag{
	Name:  "config, c",
	Usage: "load configuration from `FILE`",
	Value: "configs/config.yaml",
}

func commands() []cli.Command {
	return []cli.Command{analyzeCommand(), runCommand()}
}
