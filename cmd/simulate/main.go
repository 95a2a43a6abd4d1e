package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/purrank/internal/simulation"
)

// Default configuration constants.
const (
	defaultCandidates  = 16
	defaultTournaments = 10
	defaultTopN        = 50
	defaultSeed        = 1
	defaultTimeout     = 30 * time.Second
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		candidates  = flag.Int("candidates", defaultCandidates, "Number of candidates per tournament")
		tournaments = flag.Int("tournaments", defaultTournaments, "Number of tournaments to run")
		workers     = flag.Int("workers", runtime.NumCPU(), "Number of concurrent tournament runners")
		voter       = flag.String("voter", simulation.VoterAlphabetical, "Voter strategy: alphabetical or random")
		seed        = flag.Int64("seed", defaultSeed, "Seed for the random voter")
		topN        = flag.Int("top", defaultTopN, "Number of leaderboard entries to fetch afterwards")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile     = flag.String("log", "", "Log file for simulation output (default: simulation_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulation.ShowHelp()
		return
	}

	if err := simulation.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &simulation.Config{
		BaseURL:     *baseURL,
		Candidates:  *candidates,
		Tournaments: *tournaments,
		Workers:     *workers,
		Voter:       *voter,
		Seed:        *seed,
		TopN:        *topN,
		Timeout:     *timeout,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	if err := simulation.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
