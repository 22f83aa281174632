// Package main provides a performance benchmarking tool for the kpiscore CLI.
// It generates synthetic quality-system exports of increasing size, measures execution
// times across report commands, runs each test multiple times, treats the first
// successful cached run as cold and averages the rest as warm, and writes CSV output
// for performance analysis and documentation.
//
// Prerequisites:
// - kpiscore binary installed and available in PATH
//
// Usage: go run benchmark/main.go [data-base-dir]
//
//	data-base-dir: Directory the synthetic datasets are written to
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	DataBase    string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Datasets    []string
	RecordsPer  map[string]int
	Commands    map[string][]string
	Order       []string
}

// benchEpoch and benchAsOf pin the period range of every run.
var (
	benchEpoch = time.Date(2016, time.October, 26, 0, 0, 0, 0, time.UTC)
	benchAsOf  = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
)

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [data-base-dir]\n", os.Args[0])
		os.Exit(1)
	}
	dataBase := os.Args[1]

	config := BenchmarkConfig{
		DataBase:    dataBase,
		Timeout:     5 * time.Minute,
		Workers:     5,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets:    []string{"small", "medium", "large"},
		RecordsPer: map[string]int{
			"small":  1_000,
			"medium": 25_000,
			"large":  250_000,
		},
		Commands: map[string][]string{
			"composite":  {"composite"},
			"commitment": {"commitment"},
			"trend":      {"trend", "training", "--granularity", "quarter"},
			"counts":     {"counts", "capas", "--breakdown", "Priority"},
		},
		Order: []string{"composite", "commitment", "trend", "counts"},
	}

	if err := checkPrerequisites(); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	if err := generateDatasets(config); err != nil {
		fmt.Printf("Failed to generate datasets: %v\n", err)
		os.Exit(1)
	}

	// Clear the cache using kpiscore cache clear
	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("kpiscore", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the kpiscore binary exists
func checkPrerequisites() error {
	if _, err := exec.LookPath("kpiscore"); err != nil {
		return fmt.Errorf("kpiscore binary not found in PATH")
	}
	return nil
}

// generateDatasets writes one directory of exports per dataset size
func generateDatasets(config BenchmarkConfig) error {
	for _, dataset := range config.Datasets {
		dir := filepath.Join(config.DataBase, dataset)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		n := config.RecordsPer[dataset]
		fmt.Printf("Generating %s dataset (%d records per category)\n", dataset, n)

		// Seeded so every benchmark run reads the same exports
		rng := rand.New(rand.NewPCG(uint64(n), 42))
		for name, gen := range generators {
			if err := writeExport(filepath.Join(dir, name+".csv"), n, rng, gen); err != nil {
				return fmt.Errorf("failed to write %s export: %w", name, err)
			}
		}
	}
	return nil
}

// rowGenerator returns the header of an export and builds one random row.
type rowGenerator struct {
	header []string
	row    func(rng *rand.Rand) []string
}

var generators = map[string]rowGenerator{
	"audits": {
		header: []string{"Planned Start Date", "Start Date", "End Date", "Internal/External"},
		row: func(rng *rand.Rand) []string {
			planned := randomDate(rng)
			return []string{day(planned), day(planned), day(planned.AddDate(0, 0, rng.IntN(45))), pick(rng, "Internal", "External")}
		},
	},
	"capas": {
		header: []string{"Date Created", "Due Date", "Date of Submission", "Effectiveness Verification Status", "Priority"},
		row: func(rng *rand.Rand) []string {
			created := randomDate(rng)
			return []string{
				day(created), day(created.AddDate(0, 0, 30)), day(created.AddDate(0, 0, rng.IntN(40))),
				pick(rng, "Pass", "Fail", ""), pick(rng, "Low", "Medium", "High"),
			}
		},
	},
	"complaints": {
		header: []string{"Complaint Created Date", "Completed Date", "Device Type"},
		row: func(rng *rand.Rand) []string {
			created := randomDate(rng)
			return []string{day(created), day(created.AddDate(0, 0, rng.IntN(90))), pick(rng, "Analyzer", "Reader", "")}
		},
	},
	"training": {
		header: []string{"Due Date", "Completed Date", "User"},
		row: func(rng *rand.Rand) []string {
			due := randomDate(rng)
			return []string{day(due), day(due.AddDate(0, 0, rng.IntN(20)-14)), fmt.Sprintf("user%d", rng.IntN(500))}
		},
	},
	"usage": {
		header: []string{"Usage Date", "Device", "Account", "Number Of Runs"},
		row: func(rng *rand.Rand) []string {
			return []string{day(randomDate(rng)), fmt.Sprintf("dev%d", rng.IntN(200)), fmt.Sprintf("acct%d", rng.IntN(50)), fmt.Sprint(rng.IntN(100))}
		},
	},
}

func writeExport(path string, n int, rng *rand.Rand, gen rowGenerator) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	buf := bufio.NewWriter(file)
	writer := csv.NewWriter(buf)
	if err := writer.Write(gen.header); err != nil {
		_ = file.Close()
		return err
	}
	for range n {
		if err := writer.Write(gen.row(rng)); err != nil {
			_ = file.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func randomDate(rng *rand.Rand) time.Time {
	days := int(benchAsOf.Sub(benchEpoch).Hours() / 24)
	return benchEpoch.AddDate(0, 0, rng.IntN(days))
}

func day(t time.Time) string { return t.Format(time.DateOnly) }

func pick(rng *rand.Rand, values ...string) string { return values[rng.IntN(len(values))] }

// runBenchmarks executes all benchmark tests across configured datasets
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, dataset := range config.Datasets {
		fmt.Printf("Benchmarking %s\n", dataset)
		dataPath := filepath.Join(config.DataBase, dataset)
		for _, command := range config.Order {
			results = append(results, runBenchmarkSuite(config, dataset, dataPath, command))
		}
	}

	return results
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, dataPath, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, dataset)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, dataPath, config.Commands[command], cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a kpiscore command multiple times with specified cache backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, dataPath string, commandArgs []string, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{}, commandArgs...)
	args = append(args,
		"--cache-backend", cacheBackend,
		"--source-dir", dataPath,
		"--workers", fmt.Sprint(config.Workers),
		"--epoch", day(benchEpoch),
		"--as-of", day(benchAsOf),
		"--output", "csv",
	)

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("kpiscore", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.Output()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && len(output) > 0 {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/kpiscore_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"dataset", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range config.Order {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
