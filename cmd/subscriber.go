package cmd

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Albert24GG/pcom-assignments/internal/broker"
)

func errBadPort(s string) error {
	return fmt.Errorf("invalid port %q", s)
}

var subscriberCmd = &cobra.Command{
	Use:   "subscriber <client_id> <server_ip> <server_port>",
	Short: "Run the broker subscriber client",
	Long: `
Connect to a broker server as a subscriber. Commands on stdin:

  subscribe <topic>     subscribe to a topic pattern ("*" matches one or
                        more tokens, "+" exactly one)
  unsubscribe <topic>   drop a subscription
  exit                  terminate

Each publication is printed as "<IP>:<port> - <topic> - <TYPE> - <value>".
`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}

		serverIP := net.ParseIP(args[1])
		if serverIP == nil {
			return fmt.Errorf("invalid server IP address %q", args[1])
		}
		port, err := strconv.ParseUint(args[2], 10, 16)
		if err != nil {
			return errBadPort(args[2])
		}

		sub, err := broker.NewSubscriber(args[0],
			net.JoinHostPort(serverIP.String(), strconv.FormatUint(port, 10)),
			broker.SubscriberOptions{})
		if err != nil {
			return err
		}

		return sub.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(subscriberCmd)
}
