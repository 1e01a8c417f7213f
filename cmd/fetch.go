package cmd

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Albert24GG/pcom-assignments/pkg/httpclient"
)

var (
	fetchBody    string
	fetchHeaders []string
	fetchRetries int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <method> <url>",
	Short: "Issue a single HTTP/1.1 request",
	Long: `
Issue one HTTP/1.1 request over plain TCP and print the response.

Supported methods: GET, HEAD, POST, PUT, DELETE. The request is retried
on failure with a 100 ms pause between attempts.

Examples:
  netkit fetch GET http://example.com/index.html
  netkit fetch POST http://localhost:8080/api -b '{"k":"v"}' -H 'Content-Type: application/json'
`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setup(); err != nil {
			return err
		}

		method := strings.ToUpper(args[0])
		switch method {
		case "GET", "HEAD", "POST", "PUT", "DELETE":
		default:
			return fmt.Errorf("unsupported method %q", args[0])
		}

		u, err := url.Parse(args[1])
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", args[1], err)
		}
		if u.Scheme != "" && u.Scheme != "http" {
			return fmt.Errorf("unsupported scheme %q (only plain http)", u.Scheme)
		}

		port := 80
		if p := u.Port(); p != "" {
			if port, err = strconv.Atoi(p); err != nil {
				return errBadPort(p)
			}
		}
		path := u.RequestURI()
		if path == "" {
			path = "/"
		}

		req := &httpclient.Request{Method: method, Path: path, Body: fetchBody}
		for _, h := range fetchHeaders {
			key, value, found := strings.Cut(h, ":")
			if !found {
				return fmt.Errorf("invalid header %q, want 'Key: Value'", h)
			}
			req.SetHeader(strings.TrimSpace(key), strings.TrimSpace(value))
		}

		client := httpclient.New(u.Hostname(), port,
			httpclient.WithRetry(fetchRetries, 100*time.Millisecond))
		defer client.Close()

		resp, err := client.Do(req)
		if err != nil {
			return err
		}

		statusColor := color.New(color.FgGreen)
		if resp.StatusCode >= 400 {
			statusColor = color.New(color.FgRed)
		}
		statusColor.Fprintf(cmd.OutOrStdout(), "%s %d %s\n",
			resp.Version, resp.StatusCode, resp.StatusMessage)
		for _, h := range resp.Headers {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", h.Key, h.Value)
		}
		if resp.Body != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", resp.Body)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchBody, "body", "b", "", "request body")
	fetchCmd.Flags().StringArrayVarP(&fetchHeaders, "header", "H", nil,
		"request header as 'Key: Value' (repeatable)")
	fetchCmd.Flags().IntVar(&fetchRetries, "attempts", 3, "total request attempts")
	rootCmd.AddCommand(fetchCmd)
}
