package kv

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jhartmann-dev/dLock/cmd/util"
	"github.com/jhartmann-dev/dLock/lib/db"
	"github.com/jhartmann-dev/dLock/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dLock servers",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfSessionTTLSec    = uint64(600)
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	KeyValueCommands.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. session,acquire)"))
	key = "threads"
	KeyValueCommands.PersistentFlags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	KeyValueCommands.PersistentFlags().Int(key, 1000, util.WrapString("How large the value for the acquire-large test should be (in KB)"))
	key = "keys"
	KeyValueCommands.PersistentFlags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dLock servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	sessionResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("session") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				id, err := rpcStore.CreateSession(perfSessionTTLSec, 0, db.BehaviorDelete)
				if err != nil {
					log.Printf("(session) - error creating session: %v\n", err)
					continue
				}
				if _, err := rpcStore.DestroySession(id); err != nil {
					log.Printf("(session) - error destroying session: %v\n", err)
				}
			}
		})
	})

	results["session"] = sessionResult
	printResult("session", sessionResult)

	acquireResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("acquire") {
			return
		}

		// prepare a session to hold the keys
		sessionID, ok := benchSession("acquire")
		if !ok {
			return
		}

		// prepare keys
		getKey, _ := getKeys("acquire")

		// cleanup (destroying the session removes the acquired keys)
		b.Cleanup(func() {
			destroyBenchSession("acquire", sessionID)
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, err := rpcStore.AcquireKey(getKey(counter), []byte("test"), sessionID)
				if err != nil {
					log.Printf("(acquire) - error acquiring key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["acquire"] = acquireResult
	printResult("acquire", acquireResult)

	acquireLargeResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("acquire-large") {
			return
		}

		// prepare a session and a large value
		sessionID, ok := benchSession("acquire-large")
		if !ok {
			return
		}
		largeValue := make([]byte, perfLargeValueSizeKB*1024)

		// prepare keys
		getKey, _ := getKeys("acquire-large")

		// cleanup
		b.Cleanup(func() {
			destroyBenchSession("acquire-large", sessionID)
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, err := rpcStore.AcquireKey(getKey(counter), largeValue, sessionID)
				if err != nil {
					log.Printf("(acquire-large) - error acquiring key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["acquire-large"] = acquireLargeResult
	printResult("acquire-large", acquireLargeResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare a session and acquire the keys
		sessionID, ok := benchSession("get")
		if !ok {
			return
		}
		getKey, iter := getKeys("get")
		iter(func(k string) {
			_, err := rpcStore.AcquireKey(k, []byte("test"), sessionID)
			if err != nil {
				log.Printf("(get) - error acquiring key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			destroyBenchSession("get", sessionID)
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, _, err := rpcStore.GetKey(getKey(counter))
				if err != nil {
					log.Printf("(get) - error getting key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult)

	hasResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has") {
			return
		}

		// prepare a session and acquire the keys
		sessionID, ok := benchSession("has")
		if !ok {
			return
		}
		getKey, iter := getKeys("has")
		iter(func(k string) {
			_, err := rpcStore.AcquireKey(k, []byte("test"), sessionID)
			if err != nil {
				log.Printf("(has) - error acquiring key: %v\n", err)
			}
		})

		// cleanup
		b.Cleanup(func() {
			destroyBenchSession("has", sessionID)
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				_, err := rpcStore.HasKey(getKey(counter))
				if err != nil {
					log.Printf("(has) - error checking key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["has"] = hasResult
	printResult("has", hasResult)

	hasNotResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("has-not") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s/has-not-%d", perfKeyPrefix, counter%100)
				_, err := rpcStore.HasKey(key)
				if err != nil {
					log.Printf("(has-not) - error checking key: %v\n", err)
				}
				counter++
			}
		})
	})

	results["has-not"] = hasNotResult
	printResult("has-not", hasNotResult)

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare a session
		sessionID, ok := benchSession("mixed")
		if !ok {
			return
		}
		getKey, _ := getKeys("mixed")

		// cleanup
		b.Cleanup(func() {
			destroyBenchSession("mixed", sessionID)
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			key := getKey(counter)
			for pb.Next() {
				var err error
				switch counter % 4 {
				case 0: // acquire
					_, err = rpcStore.AcquireKey(key, []byte("test"), sessionID)
				case 1: // get
					_, _, err = rpcStore.GetKey(key)
				case 2: // has
					_, err = rpcStore.HasKey(key)
				case 3: // delete (frees the key for the next acquire)
					err = rpcStore.DeleteKey(key)
				}

				if err != nil {
					log.Printf("(mixed) - error performing operation (%d): %v\n", counter%4, err)
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// benchSession creates the session that holds the benchmark keys
func benchSession(test string) (string, bool) {
	id, err := rpcStore.CreateSession(perfSessionTTLSec, 0, db.BehaviorDelete)
	if err != nil {
		log.Printf("(%s) - error creating session: %v\n", test, err)
		return "", false
	}
	return id, true
}

// destroyBenchSession destroys the benchmark session; with delete behavior
// this also removes every key the session acquired
func destroyBenchSession(test string, sessionID string) {
	if _, err := rpcStore.DestroySession(sessionID); err != nil {
		log.Printf("(%s) - error destroying session: %v\n", test, err)
	}
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Transport.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.Transport.RetryCount),
			strconv.Itoa(config.Transport.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
