package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Albert24GG/pcom-assignments/internal/log"
	"github.com/Albert24GG/pcom-assignments/internal/router"
	"github.com/Albert24GG/pcom-assignments/internal/router/link"
)

var arpTablePath string

var routerCmd = &cobra.Command{
	Use:   "router <rtable_path> <iface0> [iface1 ...]",
	Short: "Run the IPv4 dataplane router",
	Long: `
Run the IPv4 forwarding dataplane over raw ethernet sockets.

The routing table file holds one entry per line:
  <prefix> <next_hop> <mask> <interface_index>
with dotted-quad addresses and the interface index referring to the
position of the interface name on the command line.

Examples:
  netkit router rtable0.txt r0-0 r0-1 r0-2
  netkit router rtable0.txt r0-0 r0-1 --arp-table arp.txt
`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		logger := log.GetLogger()

		routes, err := router.ParseRouteFile(args[0])
		if err != nil {
			return err
		}
		logger.Infof("routing table read with %d entries", len(routes))

		opts, err := link.DecodeOptions(cfg.Router.Capture)
		if err != nil {
			return err
		}
		lnk, err := link.Open(args[1:], opts)
		if err != nil {
			return err
		}
		defer lnk.Close()

		r := router.New(lnk)
		if err := r.AddRoutes(routes); err != nil {
			return err
		}

		if arpTablePath != "" {
			static, err := router.ParseArpFile(arpTablePath)
			if err != nil {
				return err
			}
			for _, e := range static {
				r.AddStaticARP(e.IP, e.MAC)
			}
			logger.Infof("seeded %d static ARP entries", len(static))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		frames := make(chan link.Frame, 256)
		lnk.Run(ctx, frames)
		logger.Info("router started")

		for {
			select {
			case <-ctx.Done():
				logger.Info("router stopped")
				return nil
			case f := <-frames:
				r.HandleFrame(f.Data, f.Iface)
			}
		}
	},
}

func init() {
	routerCmd.Flags().StringVar(&arpTablePath, "arp-table", "",
		"optional static ARP table file (<ip> <mac> per line)")
	rootCmd.AddCommand(routerCmd)
}
