// Package cli is the interactive and scripted session collaborator: a
// small command loop bound to a built experiment network. It blocks the
// launcher until the user or script is done.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Console is the slice of the network the session needs.
type Console interface {
	Nodes() []string
	PingAll() error
	PingPair() error
	Iperf() error
}

const prompt = "emunet> "

// Run drives a session against net. With a script path, commands are read
// from the file; otherwise from stdin with a prompt. An unknown command is
// reported but does not end the session; "exit", "quit", or EOF does.
func Run(net Console, script string) error {
	if script != "" {
		f, err := os.Open(script)
		if err != nil {
			return fmt.Errorf("opening script %q: %w", script, err)
		}
		defer f.Close()
		return loop(net, f, io.Discard)
	}
	return loop(net, os.Stdin, os.Stdout)
}

func loop(net Console, in io.Reader, promptOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(promptOut, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(promptOut)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		done, err := dispatch(net, line)
		if err != nil {
			fmt.Printf("*** Error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

func dispatch(net Console, line string) (done bool, err error) {
	switch cmd := strings.Fields(line)[0]; cmd {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Println("commands: help nodes net pingall pingpair iperf exit")
	case "nodes":
		fmt.Printf("available nodes: %s\n", strings.Join(net.Nodes(), " "))
	case "net":
		fmt.Printf("%d nodes up\n", len(net.Nodes()))
	case "pingall":
		return false, net.PingAll()
	case "pingpair":
		return false, net.PingPair()
	case "iperf":
		return false, net.Iperf()
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}
