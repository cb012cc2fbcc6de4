// rigc compiles a synthesis procedure against a hardware graph into an
// execution script: rigc -graph rig.json -procedure proc.yaml -out run.script
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/labforge/synthrig/pkg/logging"
	"github.com/labforge/synthrig/pkg/metrics"
	"github.com/labforge/synthrig/pkg/pipeline"
	"github.com/labforge/synthrig/pkg/rig"
	"github.com/labforge/synthrig/pkg/script"
	"github.com/labforge/synthrig/pkg/steps"
	"github.com/labforge/synthrig/pkg/validation"
)

func main() {
	graphPath := flag.String("graph", "", "Hardware graph (node-link JSON)")
	procPath := flag.String("procedure", "", "Procedure document (YAML)")
	outPath := flag.String("out", "run.script", "Execution script output path")
	jsonPath := flag.String("json", "", "Also export the script as JSON to this path")
	dryRun := flag.Bool("dry-run", false, "Clamp waits to 1s and execute against the simulator")
	autoClean := flag.Bool("auto-clean", true, "Insert backbone cleaning between contaminating steps")
	dvMethod := flag.String("dead-volume", "", "Filter dead-volume handling: solvent or inert_gas")
	flag.Parse()

	if *graphPath == "" || *procPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	opts := pipeline.Options{
		DryRun:                 *dryRun,
		AutoClean:              *autoClean,
		FilterDeadVolumeMethod: *dvMethod,
	}
	if err := validation.ValidateRunOptions(opts); err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	g, err := loadGraph(*graphPath)
	if err != nil {
		log.Fatalf("Failed to load graph %s: %v", *graphPath, err)
	}
	proc, err := loadProcedure(*procPath)
	if err != nil {
		log.Fatalf("Failed to load procedure %s: %v", *procPath, err)
	}
	log.Printf("Loaded rig (%d nodes) and procedure (%d steps)", len(g.Nodes()), len(proc.Steps))

	p := pipeline.NewPreparer(g, opts)
	p.Logger = logging.NewDefaultLogger()
	p.Metrics = metrics.DefaultRegistry()

	prep, err := p.Prepare(proc)
	if err != nil {
		log.Fatalf("Preparation failed: %v", err)
	}
	for _, w := range prep.Warnings {
		log.Printf("Warning: %s", w)
	}
	log.Printf("Prepared run %s: %d commands", prep.RunID, len(prep.Commands))

	if err := writeScript(*outPath, prep); err != nil {
		log.Fatalf("Failed to write script: %v", err)
	}
	log.Printf("Script written to %s", *outPath)

	if *jsonPath != "" {
		if err := exportJSON(*outPath, *jsonPath); err != nil {
			log.Fatalf("Failed to export JSON: %v", err)
		}
		log.Printf("JSON export written to %s", *jsonPath)
	}

	if *dryRun {
		dev := steps.NewSimDevice()
		r := pipeline.NewRunner(dev)
		r.Logger = p.Logger
		r.Metrics = p.Metrics
		if err := r.Run(context.Background(), prep); err != nil {
			log.Fatalf("Dry run failed: %v", err)
		}
		log.Printf("Dry run finished: %d device calls", len(dev.Commands))
	}
}

func loadGraph(path string) (*rig.Graph, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	// Node-link documents list their nodes; legacy attributed documents
	// key them by id, which fails the node-link decode and falls through.
	var doc rig.Document
	if err := json.Unmarshal(raw, &doc); err != nil || len(doc.Nodes) == 0 {
		legacy, lerr := rig.ParseLegacy(raw)
		if lerr != nil {
			return nil, fmt.Errorf("parse: %w", lerr)
		}
		doc = *legacy
	}
	if err := validation.ValidateGraphDocument(&doc); err != nil {
		return nil, err
	}
	return rig.FromDocument(&doc)
}

func loadProcedure(path string) (*pipeline.Procedure, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc pipeline.Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if err := validation.ValidateProcedureDocument(&doc); err != nil {
		return nil, err
	}
	return pipeline.FromDocument(&doc)
}

func writeScript(path string, prep *pipeline.Prepared) error {
	w, err := script.NewWriter(path, prep.RunID)
	if err != nil {
		return err
	}
	if err := w.AppendAll(prep.Commands); err != nil {
		w.Close()
		return err
	}
	stats := w.Stats()
	if err := w.Close(); err != nil {
		return err
	}
	log.Printf("Script stats: %d entries, %d bytes (%.0f%% saved)",
		stats.Entries, stats.BytesCompressed, stats.SpaceSavings*100)
	return nil
}

func exportJSON(scriptPath, jsonPath string) error {
	s, err := script.Read(scriptPath)
	if err != nil {
		return err
	}
	f, err := os.Create(jsonPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return script.ExportJSON(f, s)
}
