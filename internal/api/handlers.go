package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Order amounts above this are tagged "large" on the orders counter.
const largeOrderThreshold = 100

// User ids at or above this are treated as premium accounts.
const premiumUserThreshold = 1000

// Home serves the service landing page.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "homepage")
	defer span.End()
	span.SetAttributes(attribute.String("page.type", "homepage"))

	h.log.Info("Homepage accessed")

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Instrumented demo service",
		"metrics_flow": "app -> OTEL collector -> Prometheus -> Grafana",
		"endpoints": []string{
			"/", "/users/{id}", "/config", "/orders", "/health",
			"/metrics-demo", "/slow", "/error", "/random",
		},
	})
}

// GetUser looks up a user by id. Ids must be positive integers; ids at or
// above premiumUserThreshold are reported as premium accounts.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "get_user")
	defer span.End()

	userID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Invalid user ID")
		badRequest(w, "user id must be an integer")
		return
	}
	span.SetAttributes(attribute.Int("user.id", userID))

	userType := "standard"
	if userID >= premiumUserThreshold {
		userType = "premium"
	}
	h.registry.UserLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("user_type", userType),
	))

	h.log.Info("Looking up user", zap.Int("user_id", userID))

	// Simulated lookup latency.
	time.Sleep(20 * time.Millisecond)

	if userID <= 0 {
		span.SetStatus(codes.Error, "Invalid user ID")
		badRequest(w, "user id must be positive")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"name":    fmt.Sprintf("User %d", userID),
		"type":    userType,
	})
}

// GetConfig reports the active telemetry configuration.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "get_config")
	defer span.End()

	h.log.Info("Configuration requested")

	writeJSON(w, http.StatusOK, map[string]any{
		"service_name":           h.cfg.ServiceName,
		"service_version":        h.cfg.ServiceVersion,
		"instance_id":            h.cfg.InstanceID,
		"environment":            h.cfg.Environment,
		"collector_endpoint":     h.cfg.CollectorEndpoint,
		"metric_export_interval": h.cfg.MetricExportInterval.String(),
		"observability":          []string{"metrics", "traces", "logs"},
	})
}

// orderRequest is the /orders request body. A missing amount defaults
// to zero.
type orderRequest struct {
	Amount float64 `json:"amount"`
}

// CreateOrder creates a demo order, walking through nested child spans
// for each processing step.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "create_order")
	defer span.End()

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.SetStatus(codes.Error, "Invalid order body")
		badRequest(w, "invalid request body")
		return
	}
	span.SetAttributes(attribute.Float64("order.amount", req.Amount))

	orderSize := "small"
	if req.Amount > largeOrderThreshold {
		orderSize = "large"
	}
	h.registry.OrdersCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("order_size", orderSize),
		attribute.String("currency", "USD"),
	))

	h.log.Info("Creating order",
		zap.Float64("amount", req.Amount),
		zap.String("order_size", orderSize))

	_, validateSpan := h.tracer.Start(ctx, "validate_order")
	time.Sleep(10 * time.Millisecond)
	validateSpan.AddEvent("Order validation completed")
	validateSpan.End()

	_, paymentSpan := h.tracer.Start(ctx, "process_payment")
	paymentSpan.SetAttributes(attribute.String("payment.method", "credit_card"))
	time.Sleep(30 * time.Millisecond)
	paymentSpan.AddEvent("Payment processed")
	paymentSpan.End()

	_, inventorySpan := h.tracer.Start(ctx, "update_inventory")
	time.Sleep(10 * time.Millisecond)
	inventorySpan.AddEvent("Inventory updated")
	inventorySpan.End()

	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": "order_" + uuid.NewString(),
		"amount":   req.Amount,
		"status":   "created",
	})
}

// Health is the liveness endpoint. It never fails and adds no latency.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "health_check")
	defer span.End()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": h.cfg.ServiceName,
		"metrics": "enabled",
	})
}

// MetricsDemo synthesizes a burst of business metrics for dashboard
// testing: five random user lookups and one to three orders.
func (h *Handler) MetricsDemo(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "metrics_demo")
	defer span.End()

	userTypes := []string{"standard", "premium"}
	for i := 0; i < 5; i++ {
		h.registry.UserLookups.Add(ctx, 1, metric.WithAttributes(
			attribute.String("user_type", userTypes[cryptoRandIntn(2)]),
		))
	}

	orderSizes := []string{"small", "large"}
	orders := 1 + cryptoRandIntn(3)
	h.registry.OrdersCounter.Add(ctx, orders, metric.WithAttributes(
		attribute.String("order_size", orderSizes[cryptoRandIntn(2)]),
		attribute.String("currency", "USD"),
	))

	h.log.Info("Generated demo metrics", zap.Int64("orders", orders))

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Demo metrics generated!",
		"generated": map[string]any{
			"user_lookups": 5,
			"orders":       orders,
		},
	})
}

// Slow simulates a multi-step slow operation, one child span per step.
// Total latency is roughly two seconds.
func (h *Handler) Slow(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "slow_operation")
	defer span.End()

	h.log.Info("Starting slow operation")

	for i := 1; i <= 3; i++ {
		_, stepSpan := h.tracer.Start(ctx, fmt.Sprintf("slow_step_%d", i))
		time.Sleep(700 * time.Millisecond)
		stepSpan.AddEvent(fmt.Sprintf("Completed step %d", i))
		stepSpan.End()
	}

	h.log.Info("Slow operation completed")

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Slow operation completed",
		"duration": "~2 seconds",
	})
}

// Error always fails with a 500. Exists to exercise error metrics and
// error span status.
func (h *Handler) Error(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "error_operation")
	defer span.End()

	h.log.Error("Triggering demo error")
	span.SetStatus(codes.Error, "Demo error")

	internalError(w, "demo error for testing metrics")
}

// Random succeeds 75% of the time and fails with a 500 otherwise.
func (h *Handler) Random(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "random_operation")
	defer span.End()

	if cryptoRandIntn(4) < 3 {
		h.log.Info("Random operation succeeded")
		writeJSON(w, http.StatusOK, map[string]any{
			"result": "success",
			"value":  1 + cryptoRandIntn(100),
		})
		return
	}

	h.log.Error("Random operation failed")
	span.SetStatus(codes.Error, "Random failure")
	internalError(w, "random failure")
}
