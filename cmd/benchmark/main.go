package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	catalogSize int
	username    string
	password    string
)

// Metrics
var (
	totalRequests uint64
	issued201     uint64 // Loans created
	conflict409   uint64 // Item already on loan (expected contention)
	returned200   uint64 // Loans closed
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.IntVar(&catalogSize, "items", 50, "Items to create for the run")
	flag.StringVar(&username, "user", "admin", "API username")
	flag.StringVar(&password, "password", "admin", "API password")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark | Workers: %d | Duration: %s | Items: %d", concurrency, duration, catalogSize)

	items, membership, err := seedFixtures()
	if err != nil {
		log.Fatalf("Fixture setup failed: %v", err)
	}

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, items, membership)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// seedFixtures creates a fresh membership and a uniquely-titled batch of
// items so repeated runs against the same database never collide.
func seedFixtures() ([]int64, int64, error) {
	runID := uuid.NewString()[:8]

	var memResp struct {
		MembershipNo int64 `json:"membership_no"`
	}
	if err := post("/api/v1/memberships",
		map[string]string{"name": "bench-" + runID, "duration": "1y"}, &memResp); err != nil {
		return nil, 0, err
	}

	items := make([]int64, 0, catalogSize)
	for i := 0; i < catalogSize; i++ {
		var itemResp struct {
			ID int64 `json:"id"`
		}
		title := fmt.Sprintf("bench-%s-%d", runID, i)
		if err := post("/api/v1/items",
			map[string]string{"kind": "book", "title": title, "author": "benchmark"}, &itemResp); err != nil {
			return nil, 0, err
		}
		items = append(items, itemResp.ID)
	}
	return items, memResp.MembershipNo, nil
}

func worker(wg *sync.WaitGroup, start time.Time, items []int64, membership int64) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for time.Since(start) < duration {
		itemID := items[rng.Intn(len(items))]
		atomic.AddUint64(&totalRequests, 1)

		var issued struct {
			LoanID int64 `json:"loan_id"`
		}
		status, err := doJSON(client, "POST", "/api/v1/loans",
			map[string]any{"item_id": itemID, "membership_no": membership}, &issued)
		switch {
		case err != nil:
			atomic.AddUint64(&failOther, 1)
			continue
		case status == http.StatusCreated:
			atomic.AddUint64(&issued201, 1)
		case status == http.StatusConflict:
			atomic.AddUint64(&conflict409, 1)
			continue
		default:
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		status, err = doJSON(client, "POST",
			fmt.Sprintf("/api/v1/loans/%d/return", issued.LoanID),
			map[string]any{"fine_paid": true}, nil)
		if err != nil || status != http.StatusOK {
			atomic.AddUint64(&failOther, 1)
			continue
		}
		atomic.AddUint64(&returned200, 1)
	}
}

func post(path string, payload any, out any) error {
	client := &http.Client{Timeout: 10 * time.Second}
	status, err := doJSON(client, "POST", path, payload, out)
	if err != nil {
		return err
	}
	if status != http.StatusCreated {
		return fmt.Errorf("%s: unexpected status %d", path, status)
	}
	return nil
}

func doJSON(client *http.Client, method, path string, payload any, out any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequest(method, targetURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(username, password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func printResults(elapsed time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	fmt.Println("\n--- Benchmark Results ---")
	fmt.Printf("Elapsed:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Total Requests: %d (%.0f req/s)\n", total, float64(total)/elapsed.Seconds())
	fmt.Printf("Issued (201):   %d\n", atomic.LoadUint64(&issued201))
	fmt.Printf("Returned (200): %d\n", atomic.LoadUint64(&returned200))
	fmt.Printf("Conflict (409): %d\n", atomic.LoadUint64(&conflict409))
	fmt.Printf("Other failures: %d\n", atomic.LoadUint64(&failOther))
}
