package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nstehr/trackside/trackside-core/cli"
)

const banner = `
████████╗██████╗  █████╗  ██████╗██╗  ██╗███████╗██╗██████╗ ███████╗
╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝██╔════╝██║██╔══██╗██╔════╝
   ██║   ██████╔╝███████║██║     █████╔╝ ███████╗██║██║  ██║█████╗
   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗ ╚════██║██║██║  ██║██╔══╝
   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗███████║██║██████╔╝███████╗
   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚══════╝╚═╝╚═════╝ ╚══════╝

Plan-Driven Career Automation`

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) > 1 && os.Args[1] == "serve" {
		fmt.Println(banner)
	}

	if err := cli.BuildCLI().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
