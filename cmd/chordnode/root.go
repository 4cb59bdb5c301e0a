package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/narendran-r/chordkv/chord"
	"github.com/narendran-r/chordkv/controller"
)

// defaultPort is used when the positional port argument is omitted
// (spec §6.4).
const defaultPort = 8008

var rootCmd = &cobra.Command{
	Use:   "chordnode [port]",
	Short: "Run a Chord DHT ring node",
	Long:  `chordnode starts one peer of a Chord distributed hash table ring and drives it through an interactive menu.`,
	Args:  cobra.MaximumNArgs(1),
	Run:   runNode,
}

// Execute runs the root command, mirroring the teacher pack's
// cmd.Execute() entrypoint shape.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runNode(cmd *cobra.Command, args []string) {
	port := defaultPort
	if len(args) == 1 {
		p, err := strconv.Atoi(args[0])
		if err != nil || p < 1 || p > 65535 {
			fmt.Printf("invalid port %q, must be 1-65535\n", args[0])
			os.Exit(1)
		}
		port = p
	}

	conf := chord.DefaultConfig("0.0.0.0", port)

	ctrl, err := controller.New(conf, nil)
	if err != nil {
		fmt.Printf("failed to start node: %v\n", err)
		os.Exit(1)
	}
	glog.Infof("chordnode listening on port %d", port)

	runMenu(ctrl)
}

// runMenu drives the controller façade from stdin, the thin presentation
// layer spec §1 calls out of scope for the core: it has no algorithmic
// content beyond dispatching lines typed at it to façade calls.
func runMenu(ctrl *controller.Controller) {
	fmt.Println("chordnode ready. commands: start, join <ip:port>, put <k> <v>, get <k>, neighbors, id, exit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "start":
			fmt.Println(ctrl.StartNetwork())
		case "join":
			if len(fields) != 2 {
				fmt.Println("usage: join <ip:port>")
				continue
			}
			fmt.Println(ctrl.JoinNetwork(fields[1]))
		case "put":
			if len(fields) != 3 {
				fmt.Println("usage: put <key> <value>")
				continue
			}
			fmt.Println(ctrl.Put(fields[1], fields[2]))
		case "get":
			if len(fields) != 2 {
				fmt.Println("usage: get <key>")
				continue
			}
			res := ctrl.Get(fields[1])
			fmt.Printf("%+v\n", res)
		case "neighbors":
			succ, pred := ctrl.GetNeighbors()
			fmt.Printf("successor=%s predecessor=%s\n", succ, pred)
		case "id":
			fmt.Println(ctrl.GetID())
		case "exit", "quit":
			fmt.Println(ctrl.Stop())
			return
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func init() {
	// glog registers its flags (-v, -logtostderr, ...) on the standard
	// flag.CommandLine during its own package init and expects
	// flag.Parse to have run before its first log line. Parse an empty
	// set here rather than os.Args: spec §6.4 fixes the CLI surface to
	// a single positional port argument with no other flags, and
	// cobra owns parsing of os.Args itself.
	flag.CommandLine.Parse([]string{})
}
