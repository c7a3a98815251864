// Command balance-runner replays the tuning scenarios against the economy
// catalog and exits non-zero when any of them drifts.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/CosmicClicker/server/internal/balance"
	"github.com/MRamiBalles/CosmicClicker/server/internal/domain/economy"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
)

func main() {
	catalogPath := flag.String("catalog", "", "Economy catalog YAML (default: embedded catalog)")
	out := flag.String("out", "", "Write results as JSON to this file")
	verbose := flag.Bool("v", false, "Log each scenario as it runs")
	flag.Parse()

	log := logger.Discard()
	if *verbose {
		log = logger.NewLogger()
	}

	cat := economy.DefaultCatalog()
	if *catalogPath != "" {
		data, err := os.ReadFile(*catalogPath)
		if err == nil {
			cat, err = economy.LoadCatalog(data)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "load catalog: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Println("COSMIC CLICKER - BALANCE SCENARIOS")
	fmt.Println(strings.Repeat("=", 72))

	results := balance.NewRunner(cat, log).Run(balance.Scenarios())
	for _, r := range results {
		mark := "PASS"
		if !r.Passed {
			mark = "FAIL"
		}
		fmt.Printf("%-4s  %-20s  %s\n", mark, r.Scenario, r.Actual)
		if !r.Passed {
			fmt.Printf("      expected: %s\n      reason:   %s\n", r.Expected, r.Reason)
		}
	}

	passed, failed := balance.Summary(results)
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("Passed: %d  Failed: %d\n", passed, failed)

	if *out != "" {
		data, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write results: %v\n", err)
		}
	}

	if failed > 0 {
		fmt.Println("\nEconomy needs retuning before release.")
		os.Exit(1)
	}
}
