package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/nazeru/checkout-lab-go/pkg/contracts"
	"github.com/nazeru/checkout-lab-go/pkg/kafka"
	"github.com/nazeru/checkout-lab-go/pkg/logging"
	"github.com/nazeru/checkout-lab-go/pkg/metrics"
)

const serviceName = "notifier"

type cfg struct {
	Port         string
	KafkaBrokers string
	Topic        string
	GroupID      string
}

func readCfg() (cfg, error) {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		return cfg{}, errors.New("KAFKA_BROKERS is required")
	}
	return cfg{
		Port:         getenv("PORT", "8081"),
		KafkaBrokers: brokers,
		Topic:        getenv("KAFKA_TOPIC", kafka.DefaultTopic),
		GroupID:      getenv("KAFKA_GROUP_ID", "notifier"),
	}, nil
}

// inbox deduplicates events by id so a redelivered message does not
// produce a second notification.
type inbox struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newInbox() *inbox {
	return &inbox{seen: make(map[string]struct{})}
}

func (i *inbox) firstSeen(eventID string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[eventID]; ok {
		return false
	}
	i.seen[eventID] = struct{}{}
	return true
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	srvMetrics := metrics.NewServerMetrics("notifier")
	client := kafka.NewClient(cfg.KafkaBrokers)
	go consumeEvents(client, cfg, newInbox())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
		srvMetrics.Requests.WithLabelValues("health", "200").Inc()
		srvMetrics.LatencyMS.WithLabelValues("health").Observe(float64(time.Since(start).Milliseconds()))
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	log.Printf("notifier listening on :%s", cfg.Port)
	log.Fatal(srv.ListenAndServe())
}

func consumeEvents(client *kafka.Client, cfg cfg, seen *inbox) {
	reader := client.NewReader(cfg.Topic, cfg.GroupID)
	defer reader.Close()
	for {
		msg, err := reader.ReadMessage(context.Background())
		if err != nil {
			log.Printf("kafka read error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		var evt contracts.Event
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			log.Printf("event decode error: %v", err)
			continue
		}
		if evt.EventID == "" || !seen.firstSeen(evt.EventID) {
			continue
		}
		logging.Log(logging.Fields{
			Service: serviceName, CheckoutID: evt.CheckoutID, Customer: evt.Customer,
			EventID: evt.EventID, Step: evt.Type, Status: "notified",
		})
	}
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
