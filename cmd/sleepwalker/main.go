// Package main - sleepwalker
// Load generator: concurrent websocket clients that walk the session
// through its phases by reacting to the snapshots the server pushes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/network"
)

// Config for the sleepwalker
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Seed           int64
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	Snapshots        int64
	Errors           int64
	EventsByType     map[events.EventType]int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 10, "Number of concurrent clients")
	interval := flag.Duration("interval", 250*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Seed for action choice")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Seed:           *seed,
	}

	fmt.Println("=========================================")
	fmt.Println("SLEEPWALKER - Dream session load test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupt received, stopping...")
		cancel()
	}()

	stats := runLoadTest(ctx, config)
	printResults(stats, config)
}

func runLoadTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		EventsByType: make(map[events.EventType]int64),
		Latencies:    make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup
	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}
	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: Sent=%d Recv=%d Errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

// walker is one client's view of the session.
type walker struct {
	mu   sync.Mutex
	snap engine.Snapshot
	seen bool
	rng  *rand.Rand
}

func (w *walker) update(s engine.Snapshot) {
	w.mu.Lock()
	w.snap, w.seen = s, true
	w.mu.Unlock()
}

// next picks an action that is valid for the last known phase.
func (w *walker) next() (engine.Action, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.seen {
		return engine.Action{}, false
	}

	s := w.snap
	switch s.Phase {
	case engine.PhaseAwake:
		if s.HasArtifact {
			return engine.Action{Type: engine.ActionOpenDream}, true
		}
		return engine.Action{Type: engine.ActionOpenSelection}, true
	case engine.PhaseSelecting:
		if len(s.UserPicks) > 0 && w.rng.Intn(3) == 0 {
			return engine.Action{Type: engine.ActionSubmit}, true
		}
		if len(s.Catalog) == 0 {
			return engine.Action{Type: engine.ActionAddCustom, Label: "Sleepwalking"}, true
		}
		return engine.Action{Type: engine.ActionToggleIngredient, Label: s.Catalog[w.rng.Intn(len(s.Catalog))]}, true
	case engine.PhaseTransitioning:
		return engine.Action{Type: engine.ActionMediaEnded}, true
	case engine.PhaseSleeping:
		if w.rng.Intn(4) == 0 {
			return engine.Action{Type: engine.ActionWakeUp}, true
		}
		return engine.Action{Type: engine.ActionExtendSleep}, true
	}
	// Brewing accepts no user actions; wait for the capsules.
	return engine.Action{}, false
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("Client %d: Connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	w := &walker{rng: rand.New(rand.NewSource(config.Seed + int64(clientID)))}

	go func() {
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			envs, err := network.DecodeFrame(frame)
			if err != nil {
				atomic.AddInt64(&stats.Errors, 1)
			}
			for _, env := range envs {
				atomic.AddInt64(&stats.MessagesReceived, 1)
				switch env.Type {
				case network.MsgTypeSnapshot:
					var s engine.Snapshot
					if json.Unmarshal(env.Payload, &s) == nil {
						w.update(s)
						atomic.AddInt64(&stats.Snapshots, 1)
					}
				case network.MsgTypeEvent:
					var ev events.Event
					if json.Unmarshal(env.Payload, &ev) == nil {
						stats.mu.Lock()
						stats.EventsByType[ev.Type]++
						stats.mu.Unlock()
					}
				}
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			action, ok := w.next()
			if !ok {
				continue
			}
			start := time.Now()
			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Snapshots:         %d\n", atomic.LoadInt64(&stats.Snapshots))
	fmt.Printf("Errors:            %d\n", errs)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if len(stats.Latencies) > 0 {
		sorted := append([]time.Duration(nil), stats.Latencies...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		var total time.Duration
		for _, l := range sorted {
			total += l
		}
		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", sorted[0])
		fmt.Printf("  Avg: %v\n", total/time.Duration(len(sorted)))
		fmt.Printf("  P95: %v\n", sorted[len(sorted)*95/100])
		fmt.Printf("  Max: %v\n", sorted[len(sorted)-1])
	}

	types := make([]string, 0, len(stats.EventsByType))
	for t := range stats.EventsByType {
		types = append(types, string(t))
	}
	sort.Strings(types)
	fmt.Printf("\nJournal events seen (all clients):\n")
	for _, t := range types {
		fmt.Printf("  %-20s %d\n", t, stats.EventsByType[events.EventType(t)])
	}

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"events_by_type":     stats.EventsByType,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
			"seed":     config.Seed,
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile("sleepwalker_results.json", jsonData, 0644); err != nil {
		fmt.Println("Failed to save results: " + err.Error())
		return
	}
	fmt.Println("\nResults saved to sleepwalker_results.json")
}
