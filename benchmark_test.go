package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"github.com/harithra-blueberry/aiprescription/data"
	"github.com/harithra-blueberry/aiprescription/handlers"
	"github.com/harithra-blueberry/aiprescription/health"
	"github.com/harithra-blueberry/aiprescription/prescription"
	"github.com/harithra-blueberry/aiprescription/server"
	"github.com/harithra-blueberry/aiprescription/validation"
)

// createBenchmarkCatalog builds a catalog large enough for resolution cost
// to show, with the default medicines included.
func createBenchmarkCatalog() *catalog.Catalog {
	entries := catalog.Default().Entries()
	for i := range 2000 {
		entries = append(entries, catalog.Entry{
			Name:     fmt.Sprintf("medicine %d forte", i),
			Category: "Benchmark",
			Strength: fmt.Sprintf("%d mg", 10+i%500),
		})
	}
	return catalog.New(entries)
}

func createBenchmarkServer(b *testing.B) (*server.Server, *prescription.Service) {
	b.Helper()
	cfg := testConfig()

	store := data.NewStore()
	store.UpdateCatalog(createBenchmarkCatalog())

	service, err := newService(cfg, store, prescription.Options{})
	if err != nil {
		b.Fatalf("Failed to create service: %v", err)
	}
	checker := health.NewHealthChecker(store, cfg.CatalogReloadAt, nil)
	handler := handlers.NewHTTPHandler(service, store, validation.NewInputValidator(0), checker, cfg.MaxAudioBytes)
	srv := server.NewServer(cfg, handler)
	b.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, service
}

// clientAddr spreads requests over many clients so the rate limiter does
// not throttle the benchmark.
var clientCounter atomic.Uint64

func clientAddr() string {
	n := clientCounter.Add(1)
	return fmt.Sprintf("10.%d.%d.%d:1234", (n>>16)&0xff, (n>>8)&0xff, n&0xff)
}

func BenchmarkProcess(b *testing.B) {
	_, service := createBenchmarkServer(b)

	b.ReportAllocs()
	for b.Loop() {
		service.Process(scenario)
	}
}

func BenchmarkProcessBatch(b *testing.B) {
	_, service := createBenchmarkServer(b)
	transcripts := make([]string, 10)
	for i := range transcripts {
		transcripts[i] = scenario
	}

	b.ReportAllocs()
	for b.Loop() {
		if _, err := service.ProcessBatch(context.Background(), transcripts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCreatePrescriptionEndpoint(b *testing.B) {
	srv, _ := createBenchmarkServer(b)
	body := `{"transcript":"` + scenario + `"}`

	b.ReportAllocs()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader(body))
		req.RemoteAddr = clientAddr()
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			b.Fatalf("Expected status 200, got %d", rr.Code)
		}
	}
}

func BenchmarkResolveEndpoint(b *testing.B) {
	srv, _ := createBenchmarkServer(b)

	b.ReportAllocs()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodGet, "/v1/medicines/resolve?q=paracetmol", nil)
		req.RemoteAddr = clientAddr()
		rr := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			b.Fatalf("Expected status 200, got %d", rr.Code)
		}
	}
}

func BenchmarkConcurrentRequests(b *testing.B) {
	srv, _ := createBenchmarkServer(b)
	body := `{"transcript":"` + scenario + `"}`

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest(http.MethodPost, "/v1/prescriptions", strings.NewReader(body))
			req.RemoteAddr = clientAddr()
			rr := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				b.Errorf("Expected status 200, got %d", rr.Code)
			}
		}
	})
}
