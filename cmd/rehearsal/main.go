// Package main - rehearsal
// Runs the scripted rehearsal scenarios on the virtual clock against the
// stock scenario or a scenario file, and exits non-zero on any failure.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
	"github.com/MRamiBalles/DreamSprite/server/internal/rehearsal"
	"github.com/MRamiBalles/DreamSprite/server/internal/scenario"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Scenario YAML (default: embedded stock scenario)")
	seed := flag.Int64("seed", 1, "Seed for vitals jitter")
	out := flag.String("out", "", "Write results as JSON to this file")
	verbose := flag.Bool("v", false, "Show engine logs")
	flag.Parse()

	sc, err := scenario.LoadOrDefault(*scenarioPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rehearsal: "+err.Error())
		os.Exit(2)
	}

	log := logger.NewNopLogger()
	if *verbose {
		log = logger.NewLogger()
	}

	name := sc.Name
	if name == "" {
		name = "unnamed"
	}
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("DREAM SPRITE REHEARSAL: %s (%d actors)\n", name, len(sc.Roster))
	fmt.Println(strings.Repeat("=", 60))

	r := rehearsal.New(sc.Setup(), log, *seed)
	results := r.Run()

	passed, failed := 0, 0
	for _, res := range results {
		mark := "PASS"
		if res.Passed {
			passed++
		} else {
			failed++
			mark = "FAIL"
		}
		fmt.Printf("[%s] %-22s expected: %s\n", mark, res.Scenario, res.Expected)
		fmt.Printf("       %-22s actual:   %s\n", "", res.Actual)
		if res.Reason != "" {
			fmt.Printf("       %-22s %s\n", "", res.Reason)
		}
	}

	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Passed: %d  Failed: %d\n", passed, failed)

	if *out != "" {
		data, _ := json.MarshalIndent(results, "", "  ")
		if err := os.WriteFile(*out, data, 0644); err != nil {
			fmt.Fprintln(os.Stderr, "rehearsal: write results: "+err.Error())
			os.Exit(2)
		}
		fmt.Println("Results saved to " + *out)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
