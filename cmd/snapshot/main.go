// Command snapshot inspects snapshot files: header, entity counts, or the
// full JSON dump.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"stonedelve.sim/internal/persistence/snapshot"
)

func main() {
	var (
		headerOnly = flag.Bool("header", false, "print only the header line")
		full       = flag.Bool("full", false, "dump the full snapshot as JSON")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: snapshot [-header|-full] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	if *headerOnly {
		h, err := snapshot.PeekHeader(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read header: %v\n", err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(h, "", "  ")
		fmt.Println(string(out))
		return
	}

	snap, err := snapshot.Read(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read snapshot: %v\n", err)
		os.Exit(1)
	}

	if *full {
		out, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("world:       %s\n", snap.Header.WorldID)
	fmt.Printf("tick:        %d\n", snap.Header.Tick)
	fmt.Printf("seed:        %d\n", snap.Seed)
	fmt.Printf("grid:        %dx%dx%d (epoch %d)\n", snap.Grid.Width, snap.Grid.Height, snap.Grid.Depth, snap.Grid.Epoch)
	fmt.Printf("agents:      %d\n", len(snap.Agents))
	fmt.Printf("resources:   %d\n", len(snap.Resources))
	fmt.Printf("stockpiles:  %d\n", len(snap.Stockpiles))
	fmt.Printf("relations:   %d\n", len(snap.Relations))
	fmt.Printf("sources:     %d\n", len(snap.Grid.Sources))
	fmt.Printf("deferred:    %d\n", len(snap.Grid.Deferred))
}
