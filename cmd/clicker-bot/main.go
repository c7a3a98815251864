// Package main - clicker-bot
// Load generator for soak testing: N concurrent WebSocket players issuing
// weighted random commands and timing the server's replies.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// Config for the bot
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Applied          int64
	Rejected         int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func (s *Stats) addLatency(d time.Duration) {
	s.mu.Lock()
	s.Latencies = append(s.Latencies, d)
	s.mu.Unlock()
}

type weightedCommand struct {
	weight int
	build  func() map[string]any
}

func withID(t, id string) func() map[string]any {
	return func() map[string]any {
		return map[string]any{"type": t, "payload": map[string]any{"id": id}}
	}
}

func bare(t string) func() map[string]any {
	return func() map[string]any { return map[string]any{"type": t} }
}

// Clicks dominate like in a real session; purchases and collects follow.
var commandMix = []weightedCommand{
	{60, bare("CLICK_STAR")},
	{10, withID("COLLECT", "asteroid-miner")},
	{4, withID("COLLECT", "comet-catcher")},
	{6, withID("PURCHASE_UPGRADE", "star-gatherer")},
	{3, withID("PURCHASE_UPGRADE", "nebula-net")},
	{6, withID("PURCHASE_GENERATOR", "asteroid-miner")},
	{3, withID("PURCHASE_GENERATOR", "comet-catcher")},
	{2, withID("PURCHASE_RESEARCH", "basic-optics")},
	{2, bare("CLICK_DYNAMIC_EVENT")},
	{2, withID("CAST_SPELL", "wizards-might")},
	{1, bare("CLAIM_OFFLINE")},
	{1, func() map[string]any {
		return map[string]any{"type": "SET_AUTO_COLLECTOR", "payload": map[string]any{"enabled": rand.IntN(2) == 0}}
	}},
}

var totalWeight = func() int {
	n := 0
	for _, c := range commandMix {
		n += c.weight
	}
	return n
}()

func randomCommand() map[string]any {
	r := rand.IntN(totalWeight)
	for _, c := range commandMix {
		if r < c.weight {
			return c.build()
		}
		r -= c.weight
	}
	return bare("CLICK_STAR")()
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 10, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	out := flag.String("out", "bot_results.json", "Results file")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
	}

	fmt.Println("=========================================")
	fmt.Println("COSMIC CLICKER BOT - Soak Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stats := runSoakTest(ctx, config)
	if !printResults(stats, config, *out) {
		os.Exit(1)
	}
}

func runSoakTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	fmt.Println("\nStarting clients...")

	g, gctx := errgroup.WithContext(ctx)
	for i := range config.NumClients {
		g.Go(func() error {
			runClient(gctx, i, config, stats)
			return nil
		})

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.MessagesSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("Progress: Sent=%d Recv=%d Errors=%d\n", sent, recv, errs)
			}
		}
	})

	g.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	session := uuid.NewString()[:8]

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	var (
		inflightMu sync.Mutex
		inflight   = make(map[string]time.Time)
	)

	// Receiver: frames may carry several newline-separated messages.
	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range bytes.Split(frame, []byte{'\n'}) {
				atomic.AddInt64(&stats.MessagesReceived, 1)
				var msg struct {
					Type string `json:"type"`
					Data struct {
						RequestID string `json:"requestId"`
						OK        bool   `json:"ok"`
					} `json:"data"`
				}
				if json.Unmarshal(line, &msg) != nil || msg.Type != "result" {
					continue
				}
				if msg.Data.OK {
					atomic.AddInt64(&stats.Applied, 1)
				} else {
					atomic.AddInt64(&stats.Rejected, 1)
				}
				inflightMu.Lock()
				if sent, ok := inflight[msg.Data.RequestID]; ok {
					stats.addLatency(time.Since(sent))
					delete(inflight, msg.Data.RequestID)
				}
				inflightMu.Unlock()
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			cmd := randomCommand()
			reqID := session + "-" + strconv.Itoa(seq)
			cmd["requestId"] = reqID

			inflightMu.Lock()
			inflight[reqID] = time.Now()
			inflightMu.Unlock()

			if err := conn.WriteJSON(cmd); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(p*float64(len(sorted)-1))]
}

// printResults prints and saves the report. It reports whether the run passed.
func printResults(stats *Stats, config Config, path string) bool {
	fmt.Println("\n=========================================")
	fmt.Println("SOAK TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	applied := atomic.LoadInt64(&stats.Applied)
	rejected := atomic.LoadInt64(&stats.Rejected)
	errs := atomic.LoadInt64(&stats.Errors)
	errorRate := float64(errs) / float64(sent+1) * 100

	fmt.Printf("Commands Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Applied/Rejected:  %d/%d\n", applied, rejected)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", errorRate)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f cmd/sec\n", throughput)

	stats.mu.Lock()
	latencies := slices.Clone(stats.Latencies)
	stats.mu.Unlock()
	slices.Sort(latencies)

	p50, p99 := percentile(latencies, 0.5), percentile(latencies, 0.99)
	if len(latencies) > 0 {
		fmt.Printf("\nRound-trip latency:\n")
		fmt.Printf("  Min: %v\n", latencies[0])
		fmt.Printf("  P50: %v\n", p50)
		fmt.Printf("  P99: %v\n", p99)
		fmt.Printf("  Max: %v\n", latencies[len(latencies)-1])
	}

	passed := errorRate < 5
	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("TEST PASSED: System handled the load")
	case passed:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]any{
		"commands_sent":      sent,
		"messages_received":  recv,
		"applied":            applied,
		"rejected":           rejected,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_p50_ms":     float64(p50) / 1e6,
		"latency_p99_ms":     float64(p99) / 1e6,
		"config": map[string]any{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, err := json.MarshalIndent(results, "", "  ")
	if err == nil {
		err = os.WriteFile(path, jsonData, 0644)
	}
	if err != nil {
		log.Printf("Failed to save results: %v", err)
	} else {
		fmt.Printf("\nResults saved to %s\n", path)
	}
	return passed
}
