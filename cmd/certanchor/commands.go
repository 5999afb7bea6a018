package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"certanchor/internal/config"
	"certanchor/internal/domain"
	"certanchor/internal/infra/canon"
	"certanchor/internal/infra/ledger/evm"
	"certanchor/internal/infra/ledger/ledgermem"
	"certanchor/internal/infra/merkle"
	"certanchor/internal/logging"
	"certanchor/internal/usecase"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runDigest(args []string) int {
	fs := newFlagSet("digest")
	var inPath string
	var parts bool
	fs.StringVar(&inPath, "in", "", "certificate XML path")
	fs.BoolVar(&parts, "parts", false, "print the contribution of every child")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if inPath == "" {
		fmt.Fprintln(stderr, "digest requires --in")
		return 1
	}
	doc, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(stderr, "read certificate: %v\n", err)
		return 1
	}
	root, err := canon.Parse(doc)
	if err != nil {
		fmt.Fprintf(stderr, "parse certificate: %v\n", err)
		return 1
	}
	if parts {
		for i, child := range root.Children {
			fmt.Fprintf(stdout, "part[%d] tag=%s contribution=%s\n", i, child.Tag, hex.EncodeToString(canon.Contribution(child)))
		}
	}
	fmt.Fprintln(stdout, canon.ComputeLeafDigest(root).Hex())
	return 0
}

func runParse(args []string) int {
	fs := newFlagSet("parse")
	var subtree string
	fs.StringVar(&subtree, "subtree", "", "encoded proof path")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	path, err := merkle.ParseProofPath(subtree)
	if err != nil {
		fmt.Fprintf(stderr, "parse subtree: %v\n", err)
		return 1
	}
	for i, step := range path {
		fmt.Fprintf(stdout, "step[%d] side=%s sibling=%s\n", i, step.Side, step.Digest.Hex())
	}
	return 0
}

func runReduce(args []string) int {
	fs := newFlagSet("reduce")
	var leafHex, subtree string
	fs.StringVar(&leafHex, "leaf", "", "leaf digest hex")
	fs.StringVar(&subtree, "subtree", "", "encoded proof path")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	leaf, err := domain.ParseDigestHex(leafHex)
	if err != nil {
		fmt.Fprintf(stderr, "invalid --leaf: %v\n", err)
		return 1
	}
	var path domain.ProofPath
	if subtree != "" {
		path, err = merkle.ParseProofPath(subtree)
		if err != nil {
			fmt.Fprintf(stderr, "parse subtree: %v\n", err)
			return 1
		}
	}
	fmt.Fprintln(stdout, merkle.Reduce(leaf, path).Hex())
	return 0
}

// runProve builds the anchoring tree over the given certificates and prints
// the root and the encoded path of one of them.
func runProve(args []string) int {
	fs := newFlagSet("prove")
	var index int
	var anchorsOut string
	var block int64
	fs.IntVar(&index, "index", 0, "certificate to prove (0-based)")
	fs.StringVar(&anchorsOut, "anchors-out", "", "write an anchors file containing the root")
	fs.Int64Var(&block, "block", 1, "block number recorded in --anchors-out")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "prove requires at least one certificate")
		return 1
	}

	leaves := make([]domain.Digest, 0, fs.NArg())
	for _, p := range fs.Args() {
		doc, err := os.ReadFile(p)
		if err != nil {
			fmt.Fprintf(stderr, "read certificate: %v\n", err)
			return 1
		}
		leaf, _, err := canon.LeafDigestFromDocument(doc)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", p, err)
			return 1
		}
		leaves = append(leaves, leaf)
	}
	root, err := merkle.Root(leaves)
	if err != nil {
		fmt.Fprintf(stderr, "build tree: %v\n", err)
		return 1
	}
	path, err := merkle.ProofPathFor(leaves, index)
	if err != nil {
		fmt.Fprintf(stderr, "build proof: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "leaf=%s\n", leaves[index].Hex())
	fmt.Fprintf(stdout, "root=%s\n", root.Hex())
	fmt.Fprintf(stdout, "subtree=%s\n", merkle.FormatProofPath(path))

	if anchorsOut != "" {
		anchors := []ledgermem.Anchor{{
			Root:        root.Hex(),
			BlockNumber: block,
			Timestamp:   time.Now().Unix(),
		}}
		payload, err := json.MarshalIndent(anchors, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "encode anchors: %v\n", err)
			return 1
		}
		if err := os.WriteFile(anchorsOut, append(payload, '\n'), 0o644); err != nil {
			fmt.Fprintf(stderr, "write anchors: %v\n", err)
			return 1
		}
	}
	return 0
}

func runVerify(args []string) int {
	cfg := config.FromEnv()
	fs := newFlagSet("verify")
	var inPath, subtree string
	var asJSON bool
	fs.StringVar(&inPath, "in", "", "certificate XML path")
	fs.StringVar(&subtree, "subtree", "", "encoded proof path")
	fs.StringVar(&cfg.LedgerAnchorsFile, "anchors", cfg.LedgerAnchorsFile, "offline anchors file")
	fs.StringVar(&cfg.LedgerRPCURL, "rpc-url", cfg.LedgerRPCURL, "ledger JSON-RPC endpoint")
	fs.StringVar(&cfg.LedgerContractAddress, "contract", cfg.LedgerContractAddress, "anchoring contract address")
	fs.StringVar(&cfg.LedgerNetwork, "network", cfg.LedgerNetwork, "ledger network name")
	fs.BoolVar(&asJSON, "json", false, "print the result as JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	req := usecase.VerifyCertificateRequest{}
	if inPath != "" {
		doc, err := os.ReadFile(inPath)
		if err != nil {
			fmt.Fprintf(stderr, "read certificate: %v\n", err)
			return 1
		}
		s := string(doc)
		req.Certificate = &s
	}
	// An explicit empty --subtree is a malformed proof, not a missing one.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "subtree" {
			req.Subtree = &subtree
		}
	})

	ctx := context.Background()
	uc := &usecase.VerifyCertificate{
		Canon:  &canon.Service{},
		Proofs: &merkle.Service{},
		Info:   cfg.Ledger(),
	}
	if cfg.LedgerRPCURL != "" {
		client, err := evm.Dial(ctx, cfg)
		if err != nil {
			fmt.Fprintf(stderr, "connect ledger: %v\n", err)
			return 1
		}
		defer client.Close()
		uc.Ledger, uc.Blocks = client, client
	} else {
		ledger := ledgermem.New()
		if cfg.LedgerAnchorsFile != "" {
			loaded, err := ledgermem.LoadFile(cfg.LedgerAnchorsFile)
			if err != nil {
				fmt.Fprintf(stderr, "load anchors: %v\n", err)
				return 1
			}
			ledger = loaded
		}
		uc.Ledger, uc.Blocks = ledger, ledger
	}

	res, err := uc.Execute(ctx, req)
	if res == nil {
		fmt.Fprintf(stderr, "verify: %v\n", err)
		return 1
	}
	printResult(res, asJSON)
	if err != nil {
		if !errors.Is(err, domain.ErrVerificationFailed) {
			fmt.Fprintf(stderr, "verify: %v\n", err)
		}
		return 1
	}
	return 0
}

func printResult(res *domain.VerificationResult, asJSON bool) {
	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}
	status := "verified"
	if !res.Verified {
		status = "failed"
	}
	fmt.Fprintf(stdout, "status=%s\n", status)
	if res.Reason != "" {
		fmt.Fprintf(stdout, "reason=%s\n", res.Reason)
	}
	if res.LeafDigest != "" {
		fmt.Fprintf(stdout, "leaf=%s\n", res.LeafDigest)
	}
	if res.MerkleRoot != "" {
		fmt.Fprintf(stdout, "root=%s\n", res.MerkleRoot)
	}
	if res.Verified {
		fmt.Fprintf(stdout, "block=%d date=%s\n", res.BlockNumber, res.Date)
	}
	fmt.Fprintf(stdout, "ledger.network=%s ledger.contract=%s\n", res.Ledger.Network, res.Ledger.Contract)
}
