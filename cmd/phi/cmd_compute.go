package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/phi-engine/internal/cache"
	"github.com/danielpatrickdp/phi-engine/internal/compute"
	"github.com/danielpatrickdp/phi-engine/internal/config"
	"github.com/danielpatrickdp/phi-engine/internal/logging"
	"github.com/danielpatrickdp/phi-engine/internal/model"
	"github.com/danielpatrickdp/phi-engine/internal/network"
	"github.com/danielpatrickdp/phi-engine/internal/subsystem"
)

var computeFlags struct {
	networkPath string
	state       string
	nodes       string
	configPath  string
	outputPath  string
	note        string
	noLog       bool
}

// networkFile is the on-disk network description: a state-by-state
// transition matrix with row/column indices in high-order-first convention,
// an optional connectivity matrix (defaults to full), and optional labels.
type networkFile struct {
	TPM    [][]float64 `json:"tpm"`
	CM     [][]int     `json:"cm"`
	Labels []string    `json:"labels"`
}

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute integrated information for a subsystem",
	Long: `Compute the cause-effect structure of a network in a given state and the
integrated information of a subsystem under its minimum cut.

Usage:
  phi compute --network net.json --state 1,0,0
  phi compute --network net.json --state 1,0,0 --nodes 0,2

The network file is JSON: a state-by-state "tpm" (rows and columns indexed
high-order-bit first), an optional binary "cm" connectivity matrix, and
optional node "labels". Results are appended to the analysis log in the
configured database unless --no-log is set.`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func init() {
	f := computeCmd.Flags()
	f.StringVar(&computeFlags.networkPath, "network", "", "Path to the network JSON file (required)")
	f.StringVar(&computeFlags.state, "state", "", "Current node states, comma separated (required)")
	f.StringVar(&computeFlags.nodes, "nodes", "", "Subsystem node indices, comma separated (default: all)")
	f.StringVar(&computeFlags.configPath, "config", "", "Path to a YAML config file")
	f.StringVarP(&computeFlags.outputPath, "output", "o", "", "Write the full result as JSON to this path")
	f.StringVar(&computeFlags.note, "note", "", "Free-form note stored with the analysis log entry")
	f.BoolVar(&computeFlags.noLog, "no-log", false, "Skip the analysis log")
	computeCmd.MarkFlagRequired("network")
	computeCmd.MarkFlagRequired("state")
}

func runCompute(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(computeFlags.configPath)
	if err != nil {
		return err
	}

	net, err := loadNetwork(computeFlags.networkPath)
	if err != nil {
		return err
	}
	state, err := parseInts(computeFlags.state)
	if err != nil {
		return fmt.Errorf("parse --state: %w", err)
	}
	nodes := allNodes(net.Size())
	if computeFlags.nodes != "" {
		nodes, err = parseInts(computeFlags.nodes)
		if err != nil {
			return fmt.Errorf("parse --nodes: %w", err)
		}
	}

	sub, err := subsystem.New(net, state, nodes)
	if err != nil {
		return err
	}

	store, err := cache.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := logging.EnsureSchema(store.DB()); err != nil {
		return err
	}

	engine := compute.New(sub, compute.Config{
		Cache:     cache.New(cfg.CacheBytes),
		Store:     store,
		Precision: cfg.Precision,
		Workers:   cfg.Workers,
	})

	start := time.Now()
	result, err := engine.SystemMip()
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Printf("nodes:    %v\n", result.Nodes)
	fmt.Printf("state:    %v\n", result.State)
	fmt.Printf("concepts: %d\n", len(result.Unpartitioned))
	fmt.Printf("big Phi:  %.6f\n", result.Phi)
	if result.Phi > 0 {
		fmt.Printf("min cut:  sever %v -> %v\n", result.Cut.Severed, result.Cut.Intact)
	} else {
		fmt.Println("min cut:  none (reducible)")
	}
	fmt.Printf("elapsed:  %s\n", elapsed.Round(time.Millisecond))

	if !computeFlags.noLog {
		id, err := logAnalysis(store, net, result, len(result.Unpartitioned), elapsed)
		if err != nil {
			return err
		}
		fmt.Printf("logged:   %s\n", id)
	}

	if computeFlags.outputPath != "" {
		raw, err := json.MarshalIndent(result.ToMapping(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		if err := os.WriteFile(computeFlags.outputPath, raw, 0o644); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}

func logAnalysis(store *cache.Store, net *network.Network, result *model.SystemMip, concepts int, elapsed time.Duration) (string, error) {
	stateJSON, _ := json.Marshal(result.State)
	nodesJSON, _ := json.Marshal(result.Nodes)
	cutJSON := ""
	if result.Phi > 0 {
		raw, _ := json.Marshal(map[string][]int{
			"severed": result.Cut.Severed,
			"intact":  result.Cut.Intact,
		})
		cutJSON = string(raw)
	}
	var flatCM []int
	for _, row := range net.CM() {
		flatCM = append(flatCM, row...)
	}
	return logging.LogAnalysis(store.DB(), logging.AnalysisEntry{
		NetworkHash: cache.Digest("network", net.TPM(), flatCM),
		State:       string(stateJSON),
		Nodes:       string(nodesJSON),
		Phi:         result.Phi,
		CutJSON:     cutJSON,
		Concepts:    concepts,
		ElapsedMS:   elapsed.Milliseconds(),
		Note:        computeFlags.note,
	})
}

// #region helpers
func loadNetwork(path string) (*network.Network, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read network: %w", err)
	}
	var nf networkFile
	if err := json.Unmarshal(raw, &nf); err != nil {
		return nil, fmt.Errorf("parse network: %w", err)
	}
	cm := nf.CM
	if cm == nil {
		n := nodeCount(len(nf.TPM))
		cm = make([][]int, n)
		for i := range cm {
			cm[i] = make([]int, n)
			for j := range cm[i] {
				cm[i][j] = 1
			}
		}
	}
	return network.FromStateByState(nf.TPM, cm, nf.Labels)
}

// nodeCount returns log2 of the state count.
func nodeCount(states int) int {
	n := 0
	for s := 1; s < states; s <<= 1 {
		n++
	}
	return n
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func allNodes(n int) []int {
	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = i
	}
	return nodes
}

// #endregion helpers
