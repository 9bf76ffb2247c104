package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/corvid-run/corvid/pkg/corvid"
	"golang.org/x/term"
)

// runREPL drives an interactive read-eval-print loop against a single
// persistent State so definitions and globals survive across lines. It
// checks stdin with term.IsTerminal so piped input (tests, `corvid < script`)
// gets a quiet non-interactive loop with no banner or prompts.
func runREPL() int {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	state := corvid.NewState()
	defer state.Close()

	if interactive {
		printBanner()
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if interactive {
			fmt.Print(">>> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		source := line
		for needsContinuation(line) {
			if interactive {
				fmt.Print("... ")
			}
			if !scanner.Scan() {
				break
			}
			line = scanner.Text()
			if line == "" {
				break
			}
			source += "\n" + line
		}

		result, err := state.Run(source)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if result != nil && result.Type() != "NoneType" {
			fmt.Println(result.String())
		}
	}

	if interactive {
		fmt.Println()
	}
	return 0
}

// needsContinuation reports whether a line opens a block (ends with ':')
// that the REPL should keep reading until a blank line closes it.
func needsContinuation(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t"), ":")
}

func printBanner() {
	banner := "corvid - a Python bytecode interpreter"
	width := 0
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	if width > 0 && width < len(banner) {
		banner = banner[:width]
	}
	fmt.Println(banner)
}
