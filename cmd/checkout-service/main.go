package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/nazeru/checkout-lab-go/internal/shop/checkout"
	"github.com/nazeru/checkout-lab-go/internal/shop/domain"
	"github.com/nazeru/checkout-lab-go/internal/shop/store"
	"github.com/nazeru/checkout-lab-go/pkg/contracts"
	"github.com/nazeru/checkout-lab-go/pkg/idempotency"
	"github.com/nazeru/checkout-lab-go/pkg/kafka"
	"github.com/nazeru/checkout-lab-go/pkg/logging"
	"github.com/nazeru/checkout-lab-go/pkg/metrics"
)

const serviceName = "checkout-service"

type cfg struct {
	Port         string
	KafkaBrokers string
	KafkaTopic   string
	SeedDemo     bool
}

func readCfg() (cfg, error) {
	seed := strings.ToLower(getenv("SEED_DEMO_DATA", "false"))
	return cfg{
		Port:         getenv("PORT", "8080"),
		KafkaBrokers: getenv("KAFKA_BROKERS", ""),
		KafkaTopic:   getenv("KAFKA_TOPIC", kafka.DefaultTopic),
		SeedDemo:     seed == "1" || seed == "true" || seed == "yes",
	}, nil
}

type ProductRequest struct {
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
	Stock    int      `json:"stock"`
	Expired  *bool    `json:"expired,omitempty"`
	WeightKg *float64 `json:"weight_kg,omitempty"`
}

type CustomerRequest struct {
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

type CartItemRequest struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
}

type CheckoutRequest struct {
	CustomerID string `json:"customer_id"`
}

type CheckoutResponse struct {
	CheckoutID   string                   `json:"checkout_id"`
	Status       string                   `json:"status"`
	Subtotal     decimal.Decimal          `json:"subtotal"`
	ShippingFees decimal.Decimal          `json:"shipping_fees"`
	Total        decimal.Decimal          `json:"total"`
	Balance      decimal.Decimal          `json:"balance"`
	Receipt      checkout.Receipt         `json:"receipt"`
	Shipment     *checkout.ShipmentNotice `json:"shipment,omitempty"`
}

type app struct {
	store      *store.Store
	engine     *checkout.Engine
	replays    *idempotency.Cache
	srvMetrics *metrics.ServerMetrics
	ckMetrics  *metrics.CheckoutMetrics
	writer     *kafkago.Writer // nil when kafka is disabled
}

func main() {
	cfg, err := readCfg()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	a := &app{
		store:      store.New(),
		engine:     &checkout.Engine{},
		replays:    idempotency.NewCache(),
		srvMetrics: metrics.NewServerMetrics("checkout_service"),
		ckMetrics:  metrics.NewCheckoutMetrics("checkout_service"),
	}

	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if kafkaClient.Enabled() {
		a.writer = kafkaClient.NewWriter(cfg.KafkaTopic)
		defer a.writer.Close()
	}

	if cfg.SeedDemo {
		for name, id := range a.store.SeedDemo() {
			logging.Log(logging.Fields{Service: serviceName, Product: name, Step: "seed", Status: "loaded", Message: id})
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("checkout-service listening on :%s (kafka=%v)", cfg.Port, kafkaClient.Enabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server error: %v", err)
	}
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/products", a.handleCreateProduct)
	mux.HandleFunc("/customers", a.handleCreateCustomer)
	mux.HandleFunc("/cart/items", a.handleAddCartItem)
	mux.HandleFunc("/checkout", a.handleCheckout)
	return mux
}

func (a *app) observe(handler string, code int, start time.Time) {
	a.srvMetrics.Requests.WithLabelValues(handler, strconv.Itoa(code)).Inc()
	a.srvMetrics.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	a.observe("health", http.StatusOK, start)
}

func (a *app) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		a.observe("products", http.StatusMethodNotAllowed, start)
		return
	}
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		a.observe("products", http.StatusBadRequest, start)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Price < 0 || req.Stock < 0 || (req.WeightKg != nil && *req.WeightKg < 0) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "name is required, price/stock/weight_kg must be >= 0"})
		a.observe("products", http.StatusBadRequest, start)
		return
	}

	price := decimal.NewFromFloat(req.Price)
	var p *domain.Product
	switch {
	case req.Expired != nil && req.WeightKg != nil:
		p = domain.NewExpirableShippable(req.Name, price, req.Stock, *req.Expired, decimal.NewFromFloat(*req.WeightKg))
	case req.WeightKg != nil:
		p = domain.NewShippable(req.Name, price, req.Stock, decimal.NewFromFloat(*req.WeightKg))
	case req.Expired != nil:
		p = domain.NewExpirable(req.Name, price, req.Stock, *req.Expired)
	default:
		p = domain.NewSimple(req.Name, price, req.Stock)
	}

	id := a.store.AddProduct(p)
	writeJSON(w, http.StatusCreated, map[string]any{"product_id": id})
	a.observe("products", http.StatusCreated, start)
}

func (a *app) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		a.observe("customers", http.StatusMethodNotAllowed, start)
		return
	}
	var req CustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		a.observe("customers", http.StatusBadRequest, start)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.Balance < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "name is required, balance must be >= 0"})
		a.observe("customers", http.StatusBadRequest, start)
		return
	}

	id := a.store.AddCustomer(domain.NewCustomer(req.Name, decimal.NewFromFloat(req.Balance)))
	writeJSON(w, http.StatusCreated, map[string]any{"customer_id": id})
	a.observe("customers", http.StatusCreated, start)
}

func (a *app) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		a.observe("cart_items", http.StatusMethodNotAllowed, start)
		return
	}
	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		a.observe("cart_items", http.StatusBadRequest, start)
		return
	}
	if req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "quantity must be > 0"})
		a.observe("cart_items", http.StatusBadRequest, start)
		return
	}
	customer, ok := a.store.Customer(req.CustomerID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "customer not found"})
		a.observe("cart_items", http.StatusNotFound, start)
		return
	}
	product, ok := a.store.Product(req.ProductID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "product not found"})
		a.observe("cart_items", http.StatusNotFound, start)
		return
	}

	err := a.store.Serialize(func() error {
		return customer.Cart().AddItem(product, req.Quantity)
	})
	if err != nil {
		code := statusForKind(domain.ErrKind(err))
		writeJSON(w, code, map[string]any{"error": err.Error(), "kind": domain.ErrKind(err)})
		a.observe("cart_items", code, start)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "added"})
	a.observe("cart_items", http.StatusOK, start)
}

func (a *app) handleCheckout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		a.observe("checkout", http.StatusMethodNotAllowed, start)
		return
	}
	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		a.observe("checkout", http.StatusBadRequest, start)
		return
	}
	customer, ok := a.store.Customer(req.CustomerID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "customer not found"})
		a.observe("checkout", http.StatusNotFound, start)
		return
	}

	// Replay: a retried checkout must not debit the customer twice. The
	// cache check and the pipeline run under the same lock, so concurrent
	// requests carrying one key cannot both miss the cache and commit.
	idemKey := idempotency.Key(r)
	checkoutID := uuid.NewString()
	var summary *checkout.Summary
	var resp CheckoutResponse
	var replayBody []byte
	err := a.store.Serialize(func() error {
		if idemKey != "" {
			if body, ok := a.replays.Get(idemKey); ok {
				replayBody = body
				return nil
			}
		}
		var cerr error
		summary, cerr = a.engine.Checkout(r.Context(), customer)
		if cerr != nil {
			return cerr
		}
		resp = CheckoutResponse{
			CheckoutID:   checkoutID,
			Status:       "COMMITTED",
			Subtotal:     summary.Subtotal,
			ShippingFees: summary.ShippingFees,
			Total:        summary.Total,
			Balance:      customer.Balance(),
			Receipt:      summary.Receipt,
			Shipment:     summary.Notice,
		}
		if idemKey != "" {
			if body, merr := json.Marshal(resp); merr == nil {
				a.replays.Put(idemKey, body)
			}
		}
		return nil
	})
	if err != nil {
		kind := domain.ErrKind(err)
		a.ckMetrics.Attempts.WithLabelValues(string(kind)).Inc()
		logging.Log(logging.Fields{
			Service: serviceName, CheckoutID: checkoutID, Customer: customer.Name(),
			Step: "checkout", Status: "failed", Message: err.Error(),
			DurationMS: time.Since(start).Milliseconds(),
		})
		a.publish(contracts.Event{
			EventID: uuid.NewString(), CheckoutID: checkoutID, Customer: customer.Name(),
			CreatedAt: time.Now().UTC(), Type: contracts.EventCheckoutFailed,
			Payload: map[string]any{"kind": string(kind), "message": err.Error()},
		})
		code := statusForKind(kind)
		writeJSON(w, code, map[string]any{"error": err.Error(), "kind": kind})
		a.observe("checkout", code, start)
		return
	}

	if replayBody != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(replayBody)
		a.observe("checkout", http.StatusOK, start)
		return
	}

	a.ckMetrics.Attempts.WithLabelValues("committed").Inc()
	a.ckMetrics.DurationMS.Observe(float64(time.Since(start).Milliseconds()))
	logging.Log(logging.Fields{
		Service: serviceName, CheckoutID: checkoutID, Customer: customer.Name(),
		Step: "checkout", Status: "committed",
		DurationMS: time.Since(start).Milliseconds(),
	})

	a.publish(contracts.Event{
		EventID: uuid.NewString(), CheckoutID: checkoutID, Customer: customer.Name(),
		CreatedAt: time.Now().UTC(), Type: contracts.EventCheckoutCompleted,
		Payload: map[string]any{
			"subtotal":      summary.Subtotal.String(),
			"shipping_fees": summary.ShippingFees.String(),
			"total":         summary.Total.String(),
		},
	})
	if summary.Notice != nil {
		a.publish(contracts.Event{
			EventID: uuid.NewString(), CheckoutID: checkoutID, Customer: customer.Name(),
			CreatedAt: time.Now().UTC(), Type: contracts.EventShipmentCreated,
			Payload: map[string]any{"total_weight_kg": summary.Notice.TotalWeightKg.String()},
		})
	}

	writeJSON(w, http.StatusOK, resp)
	a.observe("checkout", http.StatusOK, start)
}

// publish sends the event when kafka is enabled; delivery failures are
// logged, never surfaced, since the checkout itself already committed.
// The publish context is detached from the request: a client hanging up
// after commit must not cancel delivery of the committed event.
func (a *app) publish(evt contracts.Event) {
	if a.writer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := kafka.PublishEvent(ctx, a.writer, evt); err != nil {
		logging.Log(logging.Fields{
			Service: serviceName, CheckoutID: evt.CheckoutID, EventID: evt.EventID,
			Step: "publish", Status: "error", Message: err.Error(),
		})
	}
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInsufficientStock, domain.KindOutOfStock, domain.KindExpiredProduct:
		return http.StatusConflict
	case domain.KindEmptyCart, domain.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}
