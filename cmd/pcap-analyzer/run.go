package main

import (
	"AddrSpectra/internal/config"
	"AddrSpectra/internal/engine/manager"
	"AddrSpectra/internal/model"
	"AddrSpectra/pkg/pcap"
	"log"

	"github.com/urfave/cli"
)

func runCommand() cli.Command {
	return cli.Command{
		Name:      "run",
		Usage:     "Feed a capture file through the configured tasks and writers",
		ArgsUsage: "<capture.pcap>",
		Flags:     []cli.Flag{configFlag},
		Action: func(c *cli.Context) error {
			path := c.Args().Get(0)
			if path == "" {
				return cli.NewExitError("Specify a capture file", -1)
			}

			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}
			log.Println("Configuration loaded successfully.")

			mgr, err := manager.NewManager(cfg)
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}

			reader, err := pcap.NewReader(path)
			if err != nil {
				return cli.NewExitError(err.Error(), -1)
			}
			defer reader.Close()
			log.Printf("Reading packets from '%s'...", path)

			mgr.Start()
			packets := make(chan *model.PacketInfo, 1024)
			go reader.ReadPackets(packets)
			input := mgr.InputChannel()
			for info := range packets {
				input <- info
			}
			log.Printf("Finished reading %d packets (%d skipped).", reader.Read(), reader.Skipped())

			mgr.Stop()
			log.Println("Shutdown complete.")
			return nil
		},
	}
}
