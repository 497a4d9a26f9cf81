package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type benchResult struct {
	Timestamp       string         `json:"timestamp"`
	BaseURL         string         `json:"base_url"`
	Transactions    int            `json:"transactions"`
	Concurrency     int            `json:"concurrency"`
	OperationsPerTx int            `json:"operations_per_transaction"`
	TotalOperations int            `json:"total_operations"`
	SuccessfulTx    int            `json:"successful_transactions"`
	ErrorTx         int            `json:"error_transactions"`
	DurationSeconds float64        `json:"duration_seconds"`
	AvgLatencyMs    float64        `json:"avg_latency_ms"`
	MinLatencyMs    float64        `json:"min_latency_ms"`
	MaxLatencyMs    float64        `json:"max_latency_ms"`
	P50LatencyMs    float64        `json:"p50_latency_ms"`
	P90LatencyMs    float64        `json:"p90_latency_ms"`
	P95LatencyMs    float64        `json:"p95_latency_ms"`
	P99LatencyMs    float64        `json:"p99_latency_ms"`
	ThroughputTPS   float64        `json:"throughput_tps"`
	StatusCounts    map[string]int `json:"status_counts"`
	ErrorClasses    map[string]int `json:"error_classes"`
	FirstError      string         `json:"first_error"`
}

type metrics struct {
	mu           sync.Mutex
	success      int
	errors       int
	total        time.Duration
	minLatency   time.Duration
	maxLatency   time.Duration
	latenciesMs  []float64
	statusCounts map[string]int
	errorClasses map[string]int
	firstError   string
}

func newMetrics() *metrics {
	return &metrics{
		statusCounts: make(map[string]int),
		errorClasses: make(map[string]int),
	}
}

func (m *metrics) recordTransaction(latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.errors++
		return
	}
	m.success++
	m.total += latency
	if m.minLatency == 0 || latency < m.minLatency {
		m.minLatency = latency
	}
	if latency > m.maxLatency {
		m.maxLatency = latency
	}
	m.latenciesMs = append(m.latenciesMs, float64(latency.Milliseconds()))
}

func (m *metrics) recordStatus(status int, err error, class string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCounts[strconv.Itoa(status)]++
	if class != "" {
		m.errorClasses[class]++
	}
	if err != nil && m.firstError == "" {
		m.firstError = err.Error()
	}
}

// operationsPerTx: product create, customer create, cart add, checkout.
const operationsPerTx = 4

func main() {
	baseURL := flag.String("base-url", getenv("CHECKOUT_BASE_URL", "http://localhost:8080"), "checkout-service base URL")
	total := flag.Int("total", 1000, "total number of transactions")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	quantity := flag.Int("quantity", 1, "units per cart line")
	output := flag.String("output", "", "optional output path for JSON result")
	flag.Parse()

	if *total <= 0 {
		fmt.Fprintln(os.Stderr, "total must be > 0")
		os.Exit(1)
	}
	if *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency must be > 0")
		os.Exit(1)
	}
	if *quantity <= 0 {
		fmt.Fprintln(os.Stderr, "quantity must be > 0")
		os.Exit(1)
	}

	tasks := make(chan struct{})
	var wg sync.WaitGroup
	m := newMetrics()
	client := &http.Client{}

	start := time.Now()
	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range tasks {
				latency, err := runTransaction(client, *baseURL, *quantity, *timeout, m)
				m.recordTransaction(latency, err)
			}
		}()
	}

	for i := 0; i < *total; i++ {
		tasks <- struct{}{}
	}
	close(tasks)
	wg.Wait()

	duration := time.Since(start)
	avgLatency := 0.0
	minLatency := 0.0
	maxLatency := 0.0
	if m.success > 0 {
		avgLatency = float64(m.total.Milliseconds()) / float64(m.success)
		minLatency = float64(m.minLatency.Milliseconds())
		maxLatency = float64(m.maxLatency.Milliseconds())
	}
	p50, p90, p95, p99 := calcPercentiles(m.latenciesMs)

	result := benchResult{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		BaseURL:         *baseURL,
		Transactions:    *total,
		Concurrency:     *concurrency,
		OperationsPerTx: operationsPerTx,
		TotalOperations: *total * operationsPerTx,
		SuccessfulTx:    m.success,
		ErrorTx:         m.errors,
		DurationSeconds: duration.Seconds(),
		AvgLatencyMs:    avgLatency,
		MinLatencyMs:    minLatency,
		MaxLatencyMs:    maxLatency,
		P50LatencyMs:    p50,
		P90LatencyMs:    p90,
		P95LatencyMs:    p95,
		P99LatencyMs:    p99,
		ThroughputTPS:   float64(m.success) / duration.Seconds(),
		StatusCounts:    m.statusCounts,
		ErrorClasses:    m.errorClasses,
		FirstError:      m.firstError,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		os.Exit(1)
	}

	if *output != "" {
		if err := writeResult(*output, result); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write output: %v\n", err)
			os.Exit(1)
		}
	}
}

// runTransaction drives one isolated checkout: a fresh product with just
// enough stock, a fresh customer, one cart line, then checkout. Fresh
// state per transaction keeps runs independent of each other's stock.
func runTransaction(client *http.Client, baseURL string, quantity int, timeout time.Duration, m *metrics) (time.Duration, error) {
	start := time.Now()
	suffix := uuid.NewString()

	productID, err := createResource(client, baseURL+"/products", map[string]any{
		"name":      "bench-item-" + suffix,
		"price":     100,
		"stock":     quantity,
		"weight_kg": 0.5,
	}, "product_id", timeout, m)
	if err != nil {
		return time.Since(start), fmt.Errorf("create product: %w", err)
	}

	customerID, err := createResource(client, baseURL+"/customers", map[string]any{
		"name":    "bench-customer-" + suffix,
		"balance": 1000000,
	}, "customer_id", timeout, m)
	if err != nil {
		return time.Since(start), fmt.Errorf("create customer: %w", err)
	}

	if _, err := postJSON(client, baseURL+"/cart/items", map[string]any{
		"customer_id": customerID,
		"product_id":  productID,
		"quantity":    quantity,
	}, timeout, m); err != nil {
		return time.Since(start), fmt.Errorf("add cart item: %w", err)
	}

	if _, err := postJSON(client, baseURL+"/checkout", map[string]any{
		"customer_id": customerID,
	}, timeout, m); err != nil {
		return time.Since(start), fmt.Errorf("checkout: %w", err)
	}
	return time.Since(start), nil
}

func createResource(client *http.Client, url string, payload map[string]any, idField string, timeout time.Duration, m *metrics) (string, error) {
	body, err := postJSON(client, url, payload, timeout, m)
	if err != nil {
		return "", err
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", err
	}
	id, _ := parsed[idField].(string)
	if id == "" {
		return "", fmt.Errorf("response missing %s", idField)
	}
	return id, nil
}

func postJSON(client *http.Client, url string, payload any, timeout time.Duration, m *metrics) (string, error) {
	data, _ := json.Marshal(payload)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		m.recordStatus(0, err, "transport")
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	resp, err := client.Do(req)
	if err != nil {
		m.recordStatus(0, err, "transport")
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	bodyStr := strings.TrimSpace(string(body))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("status %d: %s", resp.StatusCode, bodyStr)
		m.recordStatus(resp.StatusCode, err, classifyError(resp.StatusCode, bodyStr))
		return bodyStr, err
	}
	m.recordStatus(resp.StatusCode, nil, "")
	return bodyStr, nil
}

// classifyError separates pipeline rejections (kind field present) from
// plain HTTP failures.
func classifyError(status int, body string) string {
	var payload map[string]any
	if body != "" && json.Unmarshal([]byte(body), &payload) == nil {
		if kind, _ := payload["kind"].(string); kind != "" {
			return "rejected_" + kind
		}
	}
	switch {
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	default:
		return ""
	}
}

func writeResult(path string, result benchResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func calcPercentiles(values []float64) (float64, float64, float64, float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sort.Float64s(values)
	return percentile(values, 0.50), percentile(values, 0.90), percentile(values, 0.95), percentile(values, 0.99)
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
