// Command roast-coordinator runs a ROAST coordinator. `run` and `bench`
// spawn in-process participant goroutines for local testing and
// benchmarking; `serve` listens on a TCP address and runs a session
// against real roast-participant processes dialing in.
package main

import (
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"math/big"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roastsig/roast/coordinator"
	"github.com/roastsig/roast/participant"
	"github.com/roastsig/roast/transport"
)

var (
	threshold  int
	parties    int
	malicious  int
	attacker   string
	runs       int
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:   "roast-coordinator",
	Short: "Run a ROAST threshold-signing coordinator",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single signing session and print the result",
	RunE:  runOnce,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Sweep f and attacker level, emitting one CSV row per run",
	RunE:  runBench,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Listen on a TCP address and run one session against dialing-in roast-participant processes",
	RunE:  runServe,
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, benchCmd, serveCmd} {
		cmd.Flags().IntVarP(&threshold, "threshold", "t", 3, "signing threshold")
		cmd.Flags().IntVarP(&parties, "parties", "n", 5, "number of participants")
	}
	runCmd.Flags().IntVarP(&malicious, "malicious", "f", 0, "number of simulated malicious participants")
	runCmd.Flags().StringVarP(&attacker, "attacker", "a", "static", "attacker level: static, static-coordination, adaptive")
	benchCmd.Flags().IntVar(&runs, "runs", 5, "runs per (f, attacker level) configuration")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "127.0.0.1:7700", "address to listen on for participant connections")

	rootCmd.AddCommand(runCmd, benchCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseAttackerLevel(s string) (coordinator.AttackerLevel, error) {
	switch s {
	case "static":
		return coordinator.Static, nil
	case "static-coordination":
		return coordinator.StaticCoordination, nil
	case "adaptive":
		return coordinator.Adaptive, nil
	default:
		return 0, fmt.Errorf("unknown attacker level %q", s)
	}
}

// runSession wires a fresh dealer, n in-process honest participants, and
// an attacker strategy, then runs the coordinator to completion.
func runSession(t, n, f int, level coordinator.AttackerLevel) (*coordinator.Result, error) {
	dealer, err := coordinator.DealerKeygen(t, n)
	if err != nil {
		return nil, err
	}

	links := make(map[uint64]coordinator.Link, n)
	for i := uint64(1); i <= uint64(n); i++ {
		links[i] = spawnParticipant(i)
	}

	var strat *coordinator.AttackerStrategy
	if f > 0 {
		strat, err = coordinator.NewAttackerStrategy(level, n, f)
		if err != nil {
			return nil, err
		}
	}

	msg := make([]byte, 32)
	model := coordinator.NewModel(dealer.X, dealer.IToX, t, n, msg)
	rt := coordinator.NewRuntime(model, links, strat, nil)

	runID, err := randomRunID()
	if err != nil {
		return nil, err
	}
	return rt.Run(runID, dealer.X, dealer.IToSk, dealer.IToX)
}

// spawnParticipant starts an honest in-process participant connected to
// the coordinator over an in-memory pipe and returns the coordinator's
// end of the link.
func spawnParticipant(i uint64) coordinator.Link {
	coordSide, partSide := net.Pipe()

	p, _ := participant.NewParticipant(transport.NewConn(partSide), 2, nil)
	go p.Run()

	return &link{i: i, conn: transport.NewConn(coordSide)}
}

type link struct {
	i    uint64
	conn *transport.Conn
}

func (l *link) I() uint64                      { return l.i }
func (l *link) Send(f transport.Frame) error   { return l.conn.Send(f) }
func (l *link) Recv() (transport.Frame, error) { return l.conn.Recv() }
func (l *link) Close() error                   { return l.conn.Close() }

// acceptLinks listens on addr and blocks until n roast-participant
// processes have dialed in, assigning each connection the participant
// index matching its arrival order (1..n).
func acceptLinks(addr string, n int) (map[uint64]coordinator.Link, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	links := make(map[uint64]coordinator.Link, n)
	for idx := 1; idx <= n; idx++ {
		conn, err := ln.Accept()
		if err != nil {
			ln.Close()
			return nil, nil, fmt.Errorf("accepting participant %d: %w", idx, err)
		}
		i := uint64(idx)
		links[i] = &link{i: i, conn: transport.NewConn(conn)}
	}

	return links, func() { ln.Close() }, nil
}

// runServe wires a fresh dealer against n TCP-connected participants and
// runs one session to completion.
func runServe(cmd *cobra.Command, args []string) error {
	level, err := parseAttackerLevel(attacker)
	if err != nil {
		return err
	}

	dealer, err := coordinator.DealerKeygen(threshold, parties)
	if err != nil {
		return err
	}

	fmt.Printf("listening on %s for %d participants\n", listenAddr, parties)
	links, closeLn, err := acceptLinks(listenAddr, parties)
	if err != nil {
		return err
	}
	defer closeLn()

	var strat *coordinator.AttackerStrategy
	if malicious > 0 {
		strat, err = coordinator.NewAttackerStrategy(level, parties, malicious)
		if err != nil {
			return err
		}
	}

	msg := make([]byte, 32)
	model := coordinator.NewModel(dealer.X, dealer.IToX, threshold, parties, msg)
	rt := coordinator.NewRuntime(model, links, strat, nil)

	runID, err := randomRunID()
	if err != nil {
		return err
	}
	result, err := rt.Run(runID, dealer.X, dealer.IToSk, dealer.IToX)
	if err != nil {
		return err
	}

	fmt.Printf(
		"elapsed=%s send=%d recv=%d sessions_started=%d success_session_id=%d\n",
		result.Elapsed, result.SendCount, result.RecvCount, result.SessionsStarted, result.SuccessSessionID,
	)
	return nil
}

func randomRunID() (uint64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	level, err := parseAttackerLevel(attacker)
	if err != nil {
		return err
	}

	result, err := runSession(threshold, parties, malicious, level)
	if err != nil {
		return err
	}

	fmt.Printf(
		"elapsed=%s send=%d recv=%d sessions_started=%d success_session_id=%d\n",
		result.Elapsed, result.SendCount, result.RecvCount, result.SessionsStarted, result.SuccessSessionID,
	)
	return nil
}

// runBench reproduces the bench_all.py harness: sweep f from 0 to n-t and
// every attacker level, writing one CSV row per run with the same
// column order the original driver uses.
func runBench(cmd *cobra.Command, args []string) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"t", "n", "f", "attacker_level", "elapsed", "send_count", "recv_count", "success_session_id"}); err != nil {
		return err
	}

	levels := []coordinator.AttackerLevel{coordinator.Static, coordinator.StaticCoordination, coordinator.Adaptive}

	for f := 0; f <= parties-threshold; f++ {
		for _, level := range levels {
			for run := 0; run < runs; run++ {
				result, err := runSession(threshold, parties, f, level)
				if err != nil {
					return fmt.Errorf("t=%d n=%d f=%d level=%s run=%d: %w", threshold, parties, f, level, run, err)
				}
				row := []string{
					strconv.Itoa(threshold),
					strconv.Itoa(parties),
					strconv.Itoa(f),
					level.String(),
					result.Elapsed.String(),
					strconv.Itoa(result.SendCount),
					strconv.Itoa(result.RecvCount),
					strconv.FormatUint(result.SuccessSessionID, 10),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
