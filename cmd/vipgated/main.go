package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"vipgate.org/core/gateway"
	"vipgate.org/core/log"
)

func main() {
	cmd := &cli.Command{
		Name:  "vipgated",
		Usage: "membership-verification gateway for the VIP group",
		Commands: []*cli.Command{
			gateway.Command(),
			gateway.ReportCommand(),
		},
	}

	ctx := context.Background()
	logger := log.New("vipgated")
	ctx = log.IntoContext(ctx, logger)

	if err := cmd.Run(ctx, os.Args); err != nil {
		logger.Error(err.Error())
		os.Exit(-1)
	}
}
