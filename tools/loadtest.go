package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// call is one request shape in the mix. Reads dominate; control calls keep
// the closed loop and the factory knob moving while the readers hammer them.
type call struct {
	name   string
	method string
	path   string
	body   func(r *rand.Rand) any
	weight int
}

var mix = []call{
	{name: "summary", method: "GET", path: "/twins/thermal/summary", weight: 40},
	{name: "forecast", method: "GET", path: "/twins/thermal/forecast?steps=8", weight: 15},
	{name: "history", method: "GET", path: "/twins/thermal/history?n=50", weight: 10},
	{name: "plant", method: "GET", path: "/twins/plant/state", weight: 15},
	{name: "factory", method: "GET", path: "/factory/state", weight: 10},
	{name: "feedback", method: "POST", path: "/twins/thermal/feedback", weight: 5, body: func(r *rand.Rand) any {
		return map[string]float64{"delta": r.Float64()*2 - 1}
	}},
	{name: "speed", method: "POST", path: "/factory/speed", weight: 5, body: func(r *rand.Rand) any {
		return map[string]float64{"speed": 0.5 + r.Float64()}
	}},
}

type stats struct {
	mu        sync.Mutex
	latencies map[string][]time.Duration
	failures  map[string]int
}

func (s *stats) record(name string, d time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.failures[name]++
		return
	}
	s.latencies[name] = append(s.latencies[name], d)
}

func main() {
	base := flag.String("url", "http://localhost:8080", "twin engine base URL")
	workers := flag.Int("workers", 32, "concurrent clients")
	duration := flag.Duration("duration", 30*time.Second, "test length")
	flag.Parse()

	fmt.Printf("Load test: %s, %d workers, %v\n\n", *base, *workers, *duration)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *workers,
			MaxIdleConnsPerHost: *workers,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	st := &stats{latencies: make(map[string][]time.Duration), failures: make(map[string]int)}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < *workers; i++ {
		seed := uint64(i + 1)
		g.Go(func() error {
			r := rand.New(rand.NewPCG(seed, uint64(start.UnixNano())))
			for gctx.Err() == nil {
				c := pick(r)
				d, ok := send(gctx, client, *base, c, r)
				if gctx.Err() != nil {
					return nil
				}
				st.record(c.name, d, ok)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "load test failed:", err)
		os.Exit(1)
	}
	report(st, time.Since(start))
}

func pick(r *rand.Rand) call {
	total := 0
	for _, c := range mix {
		total += c.weight
	}
	n := r.IntN(total)
	for _, c := range mix {
		if n < c.weight {
			return c
		}
		n -= c.weight
	}
	return mix[0]
}

func send(ctx context.Context, client *http.Client, base string, c call, r *rand.Rand) (time.Duration, bool) {
	var body *bytes.Reader
	if c.body != nil {
		b, _ := json.Marshal(c.body(r))
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, c.method, base+c.path, body)
	if err != nil {
		return 0, false
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return latency, false
	}
	resp.Body.Close()
	return latency, resp.StatusCode == http.StatusOK
}

func percentile(sorted []time.Duration, p int) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func report(st *stats, elapsed time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()

	names := make([]string, 0, len(mix))
	for _, c := range mix {
		names = append(names, c.name)
	}

	fmt.Println("==========================================")
	fmt.Printf("%-10s %8s %6s %10s %10s %10s\n", "call", "ok", "fail", "p50", "p95", "p99")
	var ok, failed int
	for _, name := range names {
		lat := st.latencies[name]
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		ok += len(lat)
		failed += st.failures[name]
		fmt.Printf("%-10s %8d %6d %10v %10v %10v\n", name, len(lat), st.failures[name],
			percentile(lat, 50), percentile(lat, 95), percentile(lat, 99))
	}
	fmt.Println("==========================================")
	fmt.Printf("Duration:     %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Requests/sec: %.2f\n", float64(ok+failed)/elapsed.Seconds())
	if ok+failed > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(ok)/float64(ok+failed)*100)
	}
}
