package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/tailored-agentic-units/callcenter/server"
	"github.com/tailored-agentic-units/callcenter/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to YAML config file")
		envFile    = flag.String("env", "", "Path to industry .env file")
		table      = flag.String("table", "", "Logical table: "+strings.Join(tableNames(), ", ")+" (required)")
		csvFile    = flag.String("csv", "", "CSV file to import (required)")
		key        = flag.String("key", "", "Column used as the partition key (overrides config)")
		rename     = flag.String("rename", "", "Comma-separated header renames, from=to")
		lists      = flag.String("lists", "", "Comma-separated columns holding comma-separated lists")
		numbers    = flag.String("numbers", "", "Comma-separated columns holding numbers")
		keepGoing  = flag.Bool("keep-going", false, "Skip rows that fail to store")
	)
	flag.Parse()

	if *table == "" || *csvFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: import -table <name> -csv <file>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := server.DefaultConfig()
	if *configFile != "" {
		loaded, err := server.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	env, err := server.LoadEnv(*envFile)
	if err != nil {
		log.Fatalf("Failed to load environment: %v", err)
	}
	cfg.ApplyEnv(env)

	if *key != "" {
		if _, ok := cfg.Store.Tables[*table]; ok {
			cfg.Store.Merge(&store.Config{Tables: map[string]store.TableConfig{*table: {Key: *key}}})
		}
	}

	renames, err := store.ParseRename(*rename)
	if err != nil {
		log.Fatalf("Invalid -rename: %v", err)
	}

	if cfg.Store.Backend == store.BackendMemory {
		log.Fatalf("Store backend %q does not persist; configure file or dynamodb", cfg.Store.Backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	catalog, err := store.Open(ctx, &cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	target, err := catalog.Table(*table)
	if err != nil {
		log.Fatalf("Failed to open table: %v (tables: %s)", err, strings.Join(catalog.Names(), ", "))
	}

	f, err := os.Open(*csvFile)
	if err != nil {
		log.Fatalf("Failed to open CSV: %v", err)
	}
	defer f.Close()

	result, err := store.ImportCSV(ctx, target, f, store.ImportOptions{
		Lists:           split(*lists),
		Numbers:         split(*numbers),
		Rename:          renames,
		ContinueOnError: *keepGoing,
	})
	fmt.Printf("Imported: %d\nFailed: %d\n", result.Imported, result.Failed)
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}
}

func tableNames() []string {
	return []string{
		store.TableCustomers,
		store.TableBookings,
		store.TableVehicles,
		store.TableAccommodation,
		store.TableFlights,
	}
}

func split(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
