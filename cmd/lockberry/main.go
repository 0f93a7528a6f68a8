package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/blockberries/lockberry/config"
	"github.com/blockberries/lockberry/engine"
	"github.com/blockberries/lockberry/game"
	"github.com/blockberries/lockberry/transport"
	"github.com/blockberries/lockberry/types"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "lockberry",
	Short: "Lockberry - deterministic lockstep game replication",
	Long:  `A peer-to-peer lockstep replication node with hash-verified state agreement`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "lockberry.yaml", "config file path")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(localCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("lockberry v0.1.0")
		fmt.Println("Deterministic lockstep game replication")
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a networked lockstep node",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		interval, err := cfg.RebroadcastInterval()
		if err != nil {
			return fmt.Errorf("invalid rebroadcast interval: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		p2p, err := transport.NewP2P(ctx, &transport.P2PConfig{
			ListenAddr:     cfg.Node.ListenAddr,
			BootstrapAddrs: cfg.Node.Peers,
		})
		if err != nil {
			return fmt.Errorf("failed to start transport: %w", err)
		}
		defer p2p.Close()

		engineCfg := engine.DefaultConfig(p2p.NodeID(), types.StateSnapshot{})
		engineCfg.RebroadcastInterval = interval

		authority, err := engine.NewLockstep(engineCfg, game.Step, p2p)
		if err != nil {
			return fmt.Errorf("failed to create authority: %w", err)
		}
		p2p.SetEvents(authority)

		if err := authority.Start(); err != nil {
			return fmt.Errorf("failed to start authority: %w", err)
		}
		defer authority.Stop()

		fmt.Printf("Node ID: %s\n", p2p.NodeID())
		fmt.Printf("Operator: %s\n", cfg.Node.OperatorID)
		for _, addr := range p2p.Addrs() {
			fmt.Printf("Listening: %s\n", addr)
		}

		go runCommandLoop(ctx, authority, cfg.Node.OperatorID, func() *engine.Status {
			st := authority.Status()
			return &st
		}, authority.Resync)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		return nil
	},
}

var localCmd = &cobra.Command{
	Use:   "local",
	Short: "Run a single-player session with no networking",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		authority, err := engine.NewLocal("local", types.StateSnapshot{}, game.Step)
		if err != nil {
			return fmt.Errorf("failed to create authority: %w", err)
		}

		fmt.Printf("Operator: %s (single-player)\n", cfg.Node.OperatorID)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go runCommandLoop(ctx, authority, cfg.Node.OperatorID, nil, nil)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

// runCommandLoop reads game commands from stdin and submits them. status
// and resync are nil for single-player sessions.
func runCommandLoop(ctx context.Context, authority engine.Authority, operatorID string, status func() *engine.Status, resync func()) {
	fmt.Println("Commands: deploy | strike <target> | guard | recover | state | log | status | resync")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var payload []byte
		switch fields[0] {
		case "deploy":
			payload = game.DeployPayload()
		case "strike":
			if len(fields) < 2 {
				fmt.Println("usage: strike <target>")
				continue
			}
			payload = game.StrikePayload(fields[1])
		case "guard":
			payload = game.GuardPayload()
		case "recover":
			payload = game.RecoverPayload()
		case "state":
			printState(authority.State(), authority.StateHash())
			continue
		case "log":
			printLog(authority.Log())
			continue
		case "status":
			if status == nil {
				fmt.Println("single-player session: no peers")
			} else {
				printStatus(status())
			}
			continue
		case "resync":
			if resync == nil {
				fmt.Println("single-player session: nothing to resync")
			} else {
				resync()
				fmt.Println("sync requested from all peers")
			}
			continue
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
			continue
		}

		submitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := authority.SubmitAction(submitCtx, types.NewAction(operatorID, payload))
		cancel()
		if err != nil {
			fmt.Printf("submit failed: %v\n", err)
			continue
		}
		fmt.Printf("applied (seq=%d hash=%s)\n", uint64(len(authority.Log()))-1,
			authority.StateHash().ShortString())
	}
}

func printState(state types.StateSnapshot, hash types.Hash) {
	fmt.Printf("Actions applied: %d\n", state.ActionCount)
	fmt.Printf("State hash: %s\n", types.HashString(hash))
	for _, op := range state.Operators {
		guard := ""
		if op.Guarded {
			guard = " [guarded]"
		}
		fmt.Printf("  %s: health=%d energy=%d%s\n", op.ID, op.Health, op.Energy, guard)
	}
}

func printLog(entries []types.LogEntry) {
	for _, e := range entries {
		fmt.Printf("  seq=%d origin=%s operator=%s hash=%s\n",
			e.Seq, e.OriginNode, e.Action.OperatorID, e.StateHash.ShortString())
	}
}

func printStatus(st *engine.Status) {
	fmt.Printf("Node: %s\n", st.NodeID)
	fmt.Printf("Log length: %d\n", st.LogLen)
	fmt.Printf("State hash: %s\n", types.HashString(st.StateHash))
	fmt.Printf("Desynced: %v\n", st.Desynced)
	fmt.Printf("Pending actions: %d\n", st.Pending)
	for _, p := range st.Peers {
		fmt.Printf("  peer %s: log=%d hash=%s\n", p.PeerID, p.LogLen, p.StateHash.ShortString())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
