// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Albert24GG/pcom-assignments/internal/config"
	"github.com/Albert24GG/pcom-assignments/internal/log"
	"github.com/Albert24GG/pcom-assignments/internal/metrics"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "netkit",
	Short: "netkit - IPv4 dataplane router, topic broker and HTTP/1.1 client",
	Long: `netkit bundles three networking tools sharing one codebase:

  router      an IPv4 forwarding dataplane over raw ethernet sockets,
              with dynamic ARP resolution and ICMP signalling
  server      a UDP-to-TCP topic broker fanning typed payloads out to
              pattern-matching subscribers
  subscriber  the broker's interactive TCP client
  fetch       a minimal HTTP/1.1 client`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"optional config file path")
}

// setup loads the configuration, initializes logging and starts the
// metrics endpoint when enabled. Every subcommand calls it first.
func setup() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log.Init(&cfg.Log)
	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Listen, cfg.Metrics.Path)
	}
	return cfg, nil
}
