// Command isocheck is the CLI surface for the checker: generate a
// synthetic workload, check a recorded history against a target isolation
// level, or do both in one step. It follows tinySQL's cmd/main.go idiom --
// a hand-dispatched subcommand string plus a stdlib flag.FlagSet per
// subcommand, no cobra (the teacher never imports it).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/adyalab/isocheck/internal/anomaly"
	"github.com/adyalab/isocheck/internal/checker"
	"github.com/adyalab/isocheck/internal/domain"
	"github.com/adyalab/isocheck/internal/dotgraph"
	"github.com/adyalab/isocheck/internal/dsg"
	"github.com/adyalab/isocheck/internal/generator"
	"github.com/adyalab/isocheck/internal/history"
	"github.com/adyalab/isocheck/internal/historyio"
	"github.com/adyalab/isocheck/internal/isolation"
	"github.com/adyalab/isocheck/internal/netnode"
	"github.com/adyalab/isocheck/internal/witness"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate":
		err = runGenerate(os.Args[2:])
	case "check":
		err = runCheck(os.Args[2:])
	case "test-isolation":
		err = runTestIsolation(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "isocheck: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	exitIfErr(err)
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage:
  isocheck generate <isolation> <output> [flags]
  isocheck check <history> [flags]
  isocheck test-isolation <isolation> [flags]`)
}

func exitIfErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "isocheck: %v\n", err)
	os.Exit(1)
}

// workloadFlags is the flag set shared by generate and test-isolation,
// mirroring spec.md §6's full generator flag list.
type workloadFlags struct {
	abortRate    float64
	writeRate    float64
	predReadRate float64
	connections  int
	objects      int
	transactions int
	forUpdate    bool
	nodes        string
	profile      string
	nemesisCron  string
	nemesisDown  time.Duration
	verbose      bool
}

func buildWorkload(ctx context.Context, isolationStr string, wf workloadFlags) ([]domain.HistoryElem, error) {
	store := generator.NewStore()
	conns := make([]generator.Conn, 0, wf.connections)
	for i := 0; i < wf.connections; i++ {
		conns = append(conns, generator.NewConn(store))
	}

	var remotes []*netnode.RemoteConn
	if strings.TrimSpace(wf.nodes) != "" {
		for _, addr := range strings.Split(wf.nodes, ",") {
			addr = strings.TrimSpace(addr)
			if addr == "" {
				continue
			}
			rc, err := netnode.Dial(addr)
			if err != nil {
				return nil, fmt.Errorf("dial node %s: %w", addr, err)
			}
			remotes = append(remotes, rc)
			conns = append(conns, rc)
		}
	}
	defer func() {
		for _, rc := range remotes {
			_ = rc.Close()
		}
	}()

	cfg := generator.Config{
		Connections:       len(conns),
		Objects:           wf.objects,
		Tables:            []string{"t0", "t1", "t2"},
		TransactionLimit:  wf.transactions,
		AbortRate:         wf.abortRate,
		WriteRate:         wf.writeRate,
		PredicateReadRate: wf.predReadRate,
		ForUpdate:         wf.forUpdate,
		IsolationLevel:    isolationStr,
		Seed:              time.Now().UnixNano(),
		RunID:             uuid.NewString(),
	}
	if strings.TrimSpace(wf.profile) != "" {
		p, err := generator.LoadProfile(wf.profile)
		if err != nil {
			return nil, err
		}
		cfg = p.Apply(cfg)
	}

	var nemesis generator.Nemesis
	if strings.TrimSpace(wf.nemesisCron) != "" {
		var disconnecters []generator.Disconnecter
		for _, c := range conns {
			if dc, ok := c.(generator.Disconnecter); ok {
				disconnecters = append(disconnecters, dc)
			}
		}
		cn, err := generator.NewCronNemesis(disconnecters, wf.nemesisCron, wf.nemesisDown, cfg.Seed)
		if err != nil {
			return nil, err
		}
		nemesis = cn
	}

	history, err := generator.Generate(ctx, cfg, conns, nemesis)
	if wf.verbose {
		log.Printf("isocheck: run %s generated %d transactions across %d connections", cfg.RunID, cfg.TransactionLimit, cfg.Connections)
	}
	return history, err
}

func newWorkloadFlagSet(name string) (*flag.FlagSet, *workloadFlags) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	wf := &workloadFlags{}
	fs.Float64Var(&wf.abortRate, "abort-rate", 0.15, "fraction of transactions that roll back")
	fs.Float64Var(&wf.writeRate, "write-rate", 0.33, "fraction of operations that write")
	fs.Float64Var(&wf.predReadRate, "predicate-read-rate", 0.10, "fraction of operations that predicate-read")
	fs.IntVar(&wf.connections, "connections", 4, "number of simulated connections")
	fs.IntVar(&wf.objects, "objects", 16, "number of objects to generate")
	fs.IntVar(&wf.transactions, "transactions", 100, "number of transactions to generate")
	fs.BoolVar(&wf.forUpdate, "for-update", false, "append reads with a locking read hint")
	fs.StringVar(&wf.nodes, "nodes", "", "comma-separated host:port list of remote generator nodes")
	fs.StringVar(&wf.profile, "profile", "", "YAML file overriding the workload config above")
	fs.StringVar(&wf.nemesisCron, "nemesis-schedule", "", "CRON expression scheduling connection-drop fault injection (e.g. \"*/30 * * * * *\")")
	fs.DurationVar(&wf.nemesisDown, "nemesis-down-for", 2*time.Second, "how long a connection stays dropped once the nemesis schedule fires")
	fs.BoolVar(&wf.verbose, "verbose", false, "verbose logging")
	return fs, wf
}

func newCheckFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet(name, flag.ContinueOnError)
}

func runGenerate(args []string) error {
	fs, wf := newWorkloadFlagSet("generate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 2 {
		return fmt.Errorf("generate requires <isolation> <output>")
	}
	isolationStr, output := rest[0], rest[1]

	elems, err := buildWorkload(context.Background(), isolationStr, *wf)
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer f.Close()
	return historyio.Write(f, elems, historyio.FormatNDJSON)
}

// checkFlags is the flag set the check subcommand accepts.
type checkFlags struct {
	targetIsolation string
	limit           int
	fullGraph       bool
	graph           string
	separateCycles  bool
	verbose         bool
}

func runCheck(args []string) error {
	fs := newCheckFlagSet("check")
	var cf checkFlags
	fs.StringVar(&cf.targetIsolation, "target-isolation", "serializable", "isolation level to check against")
	fs.IntVar(&cf.limit, "limit", 0, "stop after this many reported anomalies (0 = unbounded)")
	fs.BoolVar(&cf.fullGraph, "full-graph", false, "dump the full DSG instead of just cyclical nodes")
	fs.StringVar(&cf.graph, "graph", "", "write a DOT graph to this file")
	fs.BoolVar(&cf.separateCycles, "separate-cycles", false, "write one DOT file per cycle instead of a single graph")
	fs.BoolVar(&cf.verbose, "verbose", false, "verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("check requires <history>")
	}

	f, err := os.Open(rest[0])
	if err != nil {
		return fmt.Errorf("opening %s: %w", rest[0], err)
	}
	defer f.Close()
	elems, err := historyio.Read(f, historyio.FormatNDJSON)
	if err != nil {
		return err
	}

	return checkAndReport(elems, cf)
}

func runTestIsolation(args []string) error {
	fs, wf := newWorkloadFlagSet("test-isolation")
	var cf checkFlags
	fs.IntVar(&cf.limit, "limit", 0, "stop after this many reported anomalies (0 = unbounded)")
	fs.BoolVar(&cf.fullGraph, "full-graph", false, "dump the full DSG instead of just cyclical nodes")
	fs.StringVar(&cf.graph, "graph", "", "write a DOT graph to this file")
	fs.BoolVar(&cf.separateCycles, "separate-cycles", false, "write one DOT file per cycle instead of a single graph")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) < 1 {
		return fmt.Errorf("test-isolation requires <isolation>")
	}
	cf.targetIsolation = rest[0]

	elems, err := buildWorkload(context.Background(), rest[0], *wf)
	if err != nil {
		return err
	}
	return checkAndReport(elems, cf)
}

func checkAndReport(elems []domain.HistoryElem, cf checkFlags) error {
	idx, err := history.NewIndex(elems)
	if err != nil {
		return err
	}
	level, err := isolation.ParseIsolationLevel(cf.targetIsolation)
	if err != nil {
		return err
	}

	ctx := context.Background()
	anomalies, err := checker.Check(ctx, idx, level, checker.Options{Limit: cf.limit})
	if err != nil {
		return err
	}

	if len(anomalies) == 0 {
		fmt.Printf("OK: history is admissible under %s\n", level)
	} else {
		fmt.Printf("FAIL: %d anomal%s found under %s\n", len(anomalies), plural(len(anomalies)), level)
		fmt.Println(witness.RenderAll(anomalies))
	}

	if cf.graph != "" {
		if err := writeGraph(idx, cf); err != nil {
			return err
		}
	}

	if len(anomalies) > 0 {
		os.Exit(1)
	}
	return nil
}

func writeGraph(idx *history.Index, cf checkFlags) error {
	g, err := dsg.Build(idx)
	if err != nil {
		return err
	}

	// G2's edge mask spans all four edge types, so every cycle is included.
	allCycles := []anomaly.Kind{anomaly.G2}

	if cf.separateCycles {
		dots, err := dotgraph.DumpCycles(g, allCycles)
		if err != nil {
			return err
		}
		for i, dot := range dots {
			name := fmt.Sprintf("%s.%d.dot", cf.graph, i)
			if err := os.WriteFile(name, []byte(dot), 0o644); err != nil {
				return err
			}
		}
		return nil
	}

	dot, err := dotgraph.Dump(g, allCycles, cf.fullGraph)
	if err != nil {
		return err
	}
	return os.WriteFile(cf.graph, []byte(dot), 0o644)
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
