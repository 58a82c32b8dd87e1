// Package main exports the backend's automation rules to a YAML file or
// reconciles the backend with one.
//
//	rulesync -export rules.yaml
//	rulesync -import rules.yaml -dry-run
//	rulesync -import rules.yaml -prune
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/NomadCrew/ap-workbench/config"
	"github.com/NomadCrew/ap-workbench/internal/apclient"
	"github.com/NomadCrew/ap-workbench/internal/rules"
)

func main() {
	exportPath := flag.String("export", "", "Write the backend rule set to this file (- for stdout)")
	importPath := flag.String("import", "", "Reconcile the backend with this rule file (- for stdin)")
	dryRun := flag.Bool("dry-run", false, "Report what -import would change without writing")
	prune := flag.Bool("prune", false, "Delete backend rules missing from the imported file")
	timeout := flag.Duration("timeout", time.Minute, "Overall time limit")
	flag.Parse()

	if (*exportPath == "") == (*importPath == "") {
		log.Fatal("Exactly one of -export or -import is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := apclient.NewClient(cfg.Backend.BaseURL, apclient.WithTimeout(cfg.Backend.Timeout()))
	svc := rules.NewService(client, cfg.Rules.PromoteThreshold)

	if *exportPath != "" {
		if err := export(ctx, svc, *exportPath); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		return
	}

	in, closeIn, err := openInput(*importPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *importPath, err)
	}
	defer closeIn()

	result, err := svc.Import(ctx, in, rules.SyncOptions{DryRun: *dryRun, Prune: *prune})
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	prefix := ""
	if result.DryRun {
		prefix = "[dry run] "
	}
	log.Printf("%screated: %s", prefix, list(result.Created))
	log.Printf("%supdated: %s", prefix, list(result.Updated))
	log.Printf("%sunchanged: %s", prefix, list(result.Unchanged))
	log.Printf("%sdeleted: %s", prefix, list(result.Deleted))
}

func export(ctx context.Context, svc *rules.Service, path string) error {
	if path == "-" {
		return svc.Export(ctx, os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := svc.Export(ctx, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("Wrote rules to %s", path)
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func list(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
