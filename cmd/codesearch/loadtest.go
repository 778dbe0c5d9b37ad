package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	loadURL         string
	loadConcurrency int
	loadDuration    time.Duration
	loadLimit       int
	loadQueries     []string
)

var defaultLoadQueries = []string{
	"parse config",
	"http handler",
	"read file",
	"user session",
	"cache invalidate",
	"tokenize identifier",
	"connection pool",
	"retry backoff",
	"json decode",
	"error wrap",
}

var loadtestCmd = &cobra.Command{
	Use:   "loadtest",
	Short: "Drive a running server with concurrent searches and report latency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loadConcurrency < 1 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		queries := loadQueries
		if len(queries) == 0 {
			queries = defaultLoadQueries
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "target %s, %d workers for %s, %d queries\n",
			loadURL, loadConcurrency, loadDuration, len(queries))

		ctx, cancel := context.WithTimeout(cmd.Context(), loadDuration)
		defer cancel()
		stats := runLoad(ctx, loadURL, queries, loadConcurrency, loadLimit)
		stats.report(w, loadDuration)
		if stats.total == 0 {
			return errors.New("no requests completed, is the server running?")
		}
		return nil
	},
}

func init() {
	loadtestCmd.Flags().StringVar(&loadURL, "url", "http://localhost:8080", "Base URL of the search API")
	loadtestCmd.Flags().IntVarP(&loadConcurrency, "concurrency", "c", 10, "Number of concurrent workers")
	loadtestCmd.Flags().DurationVarP(&loadDuration, "duration", "d", 30*time.Second, "Test duration")
	loadtestCmd.Flags().IntVar(&loadLimit, "limit", 10, "Results requested per query")
	loadtestCmd.Flags().StringArrayVarP(&loadQueries, "query", "q", nil, "Query to send (repeatable)")
	rootCmd.AddCommand(loadtestCmd)
}

type loadStats struct {
	mu        sync.Mutex
	total     int64
	failed    int64
	cacheHits int64
	latencies []time.Duration
	statuses  map[int]int64
}

func (s *loadStats) record(d time.Duration, status int, cacheHit bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if err != nil {
		s.failed++
		return
	}
	if status < 200 || status >= 300 {
		s.failed++
	}
	if cacheHit {
		s.cacheHits++
	}
	s.latencies = append(s.latencies, d)
	s.statuses[status]++
}

func runLoad(ctx context.Context, baseURL string, queries []string, workers, limit int) *loadStats {
	stats := &loadStats{statuses: make(map[int]int64)}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        workers * 2,
			MaxIdleConnsPerHost: workers * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	var g errgroup.Group
	for id := range workers {
		g.Go(func() error {
			for i := id; ctx.Err() == nil; i++ {
				target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d",
					baseURL, url.QueryEscape(queries[i%len(queries)]), limit)
				start := time.Now()
				status, hit, err := searchOnce(ctx, client, target)
				if ctx.Err() != nil {
					return nil
				}
				stats.record(time.Since(start), status, hit, err)
			}
			return nil
		})
	}
	g.Wait()
	return stats
}

func searchOnce(ctx context.Context, client *http.Client, target string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if resp.StatusCode == http.StatusOK {
		json.NewDecoder(resp.Body).Decode(&body)
	}
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.CacheHit, nil
}

func (s *loadStats) report(w io.Writer, duration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintf(tw, "requests\t%d\n", s.total)
	fmt.Fprintf(tw, "failed\t%d\n", s.failed)
	if s.total > 0 {
		fmt.Fprintf(tw, "error rate\t%.2f%%\n", float64(s.failed)/float64(s.total)*100)
		fmt.Fprintf(tw, "requests/sec\t%.2f\n", float64(s.total)/duration.Seconds())
		fmt.Fprintf(tw, "cache hits\t%d\n", s.cacheHits)
	}

	if len(s.latencies) > 0 {
		sorted := slices.Clone(s.latencies)
		slices.Sort(sorted)
		var sum time.Duration
		for _, l := range sorted {
			sum += l
		}
		avg := sum / time.Duration(len(sorted))
		var sq float64
		for _, l := range sorted {
			diff := float64(l - avg)
			sq += diff * diff
		}

		fmt.Fprintf(tw, "latency min\t%s\n", sorted[0])
		fmt.Fprintf(tw, "latency avg\t%s\n", avg)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(tw, "latency p%.0f\t%s\n", p, latencyPercentile(sorted, p))
		}
		fmt.Fprintf(tw, "latency max\t%s\n", sorted[len(sorted)-1])
		fmt.Fprintf(tw, "latency stddev\t%s\n", time.Duration(math.Sqrt(sq/float64(len(sorted)))))
	}

	for _, code := range slices.Sorted(maps.Keys(s.statuses)) {
		fmt.Fprintf(tw, "status %d\t%d\n", code, s.statuses[code])
	}
}

// latencyPercentile uses the nearest-rank method on sorted.
func latencyPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
