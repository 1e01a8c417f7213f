package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Albert24GG/pcom-assignments/internal/broker"
)

var serverCmd = &cobra.Command{
	Use:   "server <port>",
	Short: "Run the topic broker server",
	Long: `
Run the UDP-to-TCP topic broker. The server binds one TCP listening
socket and one UDP socket on the given port on all interfaces, ingests
typed publisher datagrams over UDP and fans them out as framed TCP
messages to pattern-matching subscribers.

Type "exit" on stdin to stop the server.
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}

		port, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return errBadPort(args[0])
		}

		srv, err := broker.NewServer(uint16(port), broker.ServerOptions{
			WriteTimeout: cfg.Broker.WriteTimeout,
			EventQueue:   cfg.Broker.EventQueue,
		})
		if err != nil {
			return err
		}

		return srv.Run(context.Background())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
