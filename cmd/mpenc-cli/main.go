// Command mpenc-cli is an interactive demo client for the group chat
// protocol: it connects one participant to a group over a websocket
// GroupChannel (hosting the hub itself with --listen, or joining one with
// --connect) and drives its Greeter from
// line-oriented commands, for manual interop testing of the protocol
// core.
//
// Grounded on the teacher's cmd/sage-crypto, which structures each
// operation as its own cobra.Command with RunE; this CLI reuses the same
// command tree but executes it once per input line instead of once per
// process invocation, since a group session's state must survive across
// commands in a way a one-shot CLI process cannot.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/mpenc/session"
)

var (
	memberID  string
	wsListen  string
	wsConnect string
	keyDir    string
)

var rootCmd = &cobra.Command{
	Use:   "mpenc-cli",
	Short: "mpenc-cli - interactive multi-party E2E group chat demo",
}

var client *demoClient

func main() {
	rootCmd.PersistentFlags().StringVar(&memberID, "id", "", "this participant's member id (required)")
	rootCmd.PersistentFlags().StringVar(&wsListen, "listen", "", "address to host the group's websocket hub on (first member only)")
	rootCmd.PersistentFlags().StringVar(&wsConnect, "connect", "", "websocket URL of the group's hub to join")
	rootCmd.PersistentFlags().StringVar(&keyDir, "keydir", "", "directory holding this participant's seed and peers' static public keys")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if err := rootCmd.ParseFlags(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if memberID == "" {
		fmt.Fprintln(os.Stderr, "error: --id is required")
		os.Exit(1)
	}

	c, err := newDemoClient(memberID, wsListen, wsConnect, keyDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	client = c
	defer client.Close()

	client.sess.OnData(func(e session.DataEvent) {
		fmt.Printf("%s: %s\n", e.From, string(e.Payload))
	})
	fmt.Fprintf(os.Stderr, "mpenc-cli: %s connected; commands: start, include, exclude, refresh, recover, quit, send (Ctrl-D to exit)\n", memberID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rootCmd.SetArgs(strings.Fields(line))
		if err := rootCmd.Execute(); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}
