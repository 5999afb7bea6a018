package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "digest":
		return runDigest(args[2:])
	case "parse":
		return runParse(args[2:])
	case "reduce":
		return runReduce(args[2:])
	case "prove":
		return runProve(args[2:])
	case "verify":
		return runVerify(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "certanchor"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(stderr, "usage:\n")
	fmt.Fprintf(stderr, "  %s digest --in <certificate.xml> [--parts]\n", name)
	fmt.Fprintf(stderr, "  %s parse --subtree <side-hex:side-hex...>\n", name)
	fmt.Fprintf(stderr, "  %s reduce --leaf <hex> --subtree <path>\n", name)
	fmt.Fprintf(stderr, "  %s prove --index <n> [--anchors-out <file>] [--block <n>] <certificate.xml>...\n", name)
	fmt.Fprintf(stderr, "  %s verify --in <certificate.xml> --subtree <path> [--anchors <file>] [--rpc-url <url>] [--contract <addr>] [--network <name>] [--json]\n", name)
}
