// Command roast-participant dials a coordinator started with
// `roast-coordinator serve` and answers its protocol messages: accept
// init, push an initial nonce, then answer sign requests with partial
// signatures until the connection closes.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/roastsig/roast/participant"
	"github.com/roastsig/roast/transport"
)

var (
	addr      string
	cacheSize int
)

var rootCmd = &cobra.Command{
	Use:   "roast-participant",
	Short: "Dial a ROAST coordinator and answer signing requests",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVarP(&addr, "addr", "c", "127.0.0.1:7700", "coordinator address to dial")
	rootCmd.Flags().IntVar(&cacheSize, "nonce-cache", 8, "number of pre-nonces to keep precomputed")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing coordinator at %s: %w", addr, err)
	}
	defer conn.Close()

	p, err := participant.NewParticipant(transport.NewConn(conn), cacheSize, nil)
	if err != nil {
		return err
	}
	return p.Run()
}
