package httptransport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/inflight/component"
	"github.com/kbukum/inflight/errors"
	"github.com/kbukum/inflight/flight"
)

func TestComponent_Lifecycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	}))
	defer srv.Close()

	comp := NewComponent(Config{
		Name:    "test-http",
		BaseURL: srv.URL,
	})

	// Before Start, adapter should be nil
	if comp.Adapter() != nil {
		t.Error("Adapter() should be nil before Start()")
	}
	if h := comp.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before Start, got %s", h.Status)
	}
	if _, err := comp.Perform(context.Background(), flight.Get(srv.URL)); !flight.IsTransport(err) {
		t.Errorf("expected transport error before Start, got %v", err)
	}

	if err := comp.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	health := comp.Health(context.Background())
	if health.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %s", health.Status)
	}
	if health.Name != "test-http" {
		t.Errorf("expected name test-http, got %s", health.Name)
	}

	resp, err := comp.Perform(context.Background(), comp.Adapter().Endpoint(http.MethodGet, "/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	if err := comp.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if comp.Adapter() != nil {
		t.Error("Adapter() should be nil after Stop()")
	}
}

func TestComponent_StartInvalidConfig(t *testing.T) {
	comp := NewComponent(Config{BaseURL: "not a url"})
	err := comp.Start(context.Background())
	if errors.CodeOf(err) != errors.ErrCodeInvalidConfig {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestComponent_Describe(t *testing.T) {
	comp := NewComponent(Config{BaseURL: "https://api.example.com"})
	d := comp.Describe()
	if d.Name != "http" || d.Type != "http-transport" || d.Details != "https://api.example.com" {
		t.Errorf("unexpected description %+v", d)
	}
}

func TestComponent_Registry(t *testing.T) {
	reg := component.NewRegistry()
	comp := NewComponent(Config{})
	mux, err := flight.NewEndpointMultiplexer(comp, flight.WithConfig(flight.Config{Name: "api"}))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []component.Component{comp, mux} {
		if err := reg.Register(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := reg.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, h := range reg.HealthAll(context.Background()) {
		if h.Status != component.StatusHealthy {
			t.Errorf("%s: expected healthy, got %s", h.Name, h.Status)
		}
	}
	if err := reg.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
}
