package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "apimon",
	Short: "Real-time API endpoint monitor",
	Long: `apimon checks HTTP endpoints on a schedule, keeps rolling uptime and
latency metrics, raises alerts on outages, slow responses and error spikes,
and streams every change to websocket clients.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(probeCmd)
}
