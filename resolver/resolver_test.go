package resolver

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/harithra-blueberry/aiprescription/catalog"
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Entry{
		{Name: "dolo 650", Category: "Analgesic", Strength: "650 mg"},
		{Name: "paracetamol"},
		{Name: "ibuprofen"},
		{Name: "aspirin"},
		{Name: "acetaminophen"},
	})
}

func TestNewValidatesArguments(t *testing.T) {
	tests := []struct {
		name      string
		scorer    Scorer
		threshold int
		wantErr   error
	}{
		{"default threshold", TokenScorer{}, DefaultThreshold, nil},
		{"zero threshold", TokenScorer{}, 0, nil},
		{"max threshold", TokenScorer{}, 100, nil},
		{"negative threshold", TokenScorer{}, -1, ErrInvalidThreshold},
		{"threshold above 100", TokenScorer{}, 101, ErrInvalidThreshold},
		{"nil scorer", nil, 70, ErrNilScorer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.scorer, tt.threshold)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if r.Threshold() != tt.threshold {
				t.Errorf("Expected threshold %d, got %d", tt.threshold, r.Threshold())
			}
		})
	}
}

func TestResolveScenarioTranscript(t *testing.T) {
	r := Default()

	result := r.Resolve("dolo six fifty 650 mg twice a day after food for 5 days in the morning", testCatalog())

	if result.Status != Resolved {
		t.Fatalf("Expected Resolved, got %s (confidence %d)", result.Status, result.Confidence)
	}
	if result.Entry == nil || result.Entry.Name != "dolo 650" {
		t.Fatalf("Expected match dolo 650, got %+v", result.Entry)
	}
	if result.Confidence < DefaultThreshold {
		t.Errorf("Expected confidence >= %d, got %d", DefaultThreshold, result.Confidence)
	}
	if result.Entry.Strength != "650 mg" {
		t.Errorf("Expected full catalog entry to be returned, got %+v", result.Entry)
	}
}

func TestResolveUnknownDrug(t *testing.T) {
	result := Default().Resolve("xyzzy unknown drug", testCatalog())

	if result.Status != Unresolved {
		t.Fatalf("Expected Unresolved, got %s with %+v", result.Status, result.Entry)
	}
	if result.Entry != nil {
		t.Errorf("Expected no entry, got %+v", result.Entry)
	}
	if result.Confidence >= DefaultThreshold {
		t.Errorf("Expected confidence below threshold, got %d", result.Confidence)
	}
	if result.Name() != UnknownMedicine {
		t.Errorf("Expected name %q, got %q", UnknownMedicine, result.Name())
	}
}

func TestResolveEmptyCatalog(t *testing.T) {
	for _, cat := range []*catalog.Catalog{nil, catalog.Empty()} {
		result := Default().Resolve("dolo 650", cat)

		if result.Status != Unresolved {
			t.Errorf("Expected Unresolved for empty catalog, got %s", result.Status)
		}
		if result.Confidence != 0 {
			t.Errorf("Expected confidence 0 for empty catalog, got %d", result.Confidence)
		}
		if result.Entry != nil {
			t.Errorf("Expected nil entry, got %+v", result.Entry)
		}
	}
}

func TestResolveEmptyCandidate(t *testing.T) {
	result := Default().Resolve("", testCatalog())

	if result.Status != Unresolved {
		t.Errorf("Expected Unresolved, got %s", result.Status)
	}
	if result.Confidence != 0 {
		t.Errorf("Expected confidence 0, got %d", result.Confidence)
	}
}

func TestResolveIsCaseAndPunctuationInsensitive(t *testing.T) {
	tests := []struct {
		candidate string
		want      string
	}{
		{"IBUPROFEN", "ibuprofen"},
		{"Dolo-650!", "dolo 650"},
		{"take  aspirin,  twice", "aspirin"},
		{"ibuprofin 400 mg", "ibuprofen"},
		{"dolo650", "dolo 650"},
	}

	for _, tt := range tests {
		t.Run(tt.candidate, func(t *testing.T) {
			result := Default().Resolve(tt.candidate, testCatalog())
			if result.Status != Resolved {
				t.Fatalf("Expected Resolved, got %s (confidence %d)", result.Status, result.Confidence)
			}
			if result.Entry.Name != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, result.Entry.Name)
			}
		})
	}
}

func TestResolveTieBreakKeepsCatalogOrder(t *testing.T) {
	constant := ScorerFunc(func(a, b string) int { return 80 })
	r, err := New(constant, 70)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	result := r.Resolve("anything", testCatalog())

	if result.Entry == nil || result.Entry.Name != "dolo 650" {
		t.Fatalf("Expected first catalog entry on tie, got %+v", result.Entry)
	}
}

func TestResolveThresholdBoundary(t *testing.T) {
	// Score is driven by the name so the max over the catalog is known.
	scores := map[string]int{"dolo 650": 40, "paracetamol": 69, "ibuprofen": 70, "aspirin": 12, "acetaminophen": 0}
	scorer := ScorerFunc(func(a, b string) int { return scores[b] })

	for threshold := 0; threshold <= 100; threshold++ {
		r, err := New(scorer, threshold)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}

		result := r.Resolve("whatever", testCatalog())
		wantResolved := 70 >= threshold

		if (result.Status == Resolved) != wantResolved {
			t.Fatalf("threshold %d: expected resolved=%v, got %s", threshold, wantResolved, result.Status)
		}
		if result.Confidence != 70 {
			t.Fatalf("threshold %d: expected confidence 70, got %d", threshold, result.Confidence)
		}
		if result.Status == Resolved && (result.Entry == nil || result.Entry.Name != "ibuprofen") {
			t.Fatalf("threshold %d: expected ibuprofen, got %+v", threshold, result.Entry)
		}
		if result.Status == Unresolved && result.Entry != nil {
			t.Fatalf("threshold %d: unresolved result must not carry an entry", threshold)
		}
	}
}

func TestResolveClampsScorerOutput(t *testing.T) {
	r, _ := New(ScorerFunc(func(a, b string) int { return 250 }), 70)

	result := r.Resolve("x", testCatalog())
	if result.Confidence != 100 {
		t.Errorf("Expected clamped confidence 100, got %d", result.Confidence)
	}

	r, _ = New(ScorerFunc(func(a, b string) int { return -5 }), 0)
	result = r.Resolve("x", testCatalog())
	if result.Confidence != 0 {
		t.Errorf("Expected clamped confidence 0, got %d", result.Confidence)
	}
	if result.Status != Resolved {
		t.Errorf("Expected Resolved with threshold 0, got %s", result.Status)
	}
}

func TestResultMarshalJSON(t *testing.T) {
	resolved := Default().Resolve("aspirin", testCatalog())
	data, err := json.Marshal(resolved)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(string(data), `"status":"resolved"`) {
		t.Errorf("Expected resolved status in %s", data)
	}
	if !strings.Contains(string(data), `"name":"aspirin"`) {
		t.Errorf("Expected aspirin name in %s", data)
	}

	unresolved := Result{Confidence: 12, Status: Unresolved}
	data, err = json.Marshal(unresolved)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(string(data), `"medicine":null`) {
		t.Errorf("Expected null medicine in %s", data)
	}
	if !strings.Contains(string(data), `"name":"Unknown Medicine"`) {
		t.Errorf("Expected Unknown Medicine in %s", data)
	}
}

func BenchmarkResolve(b *testing.B) {
	r := Default()
	cat := testCatalog()
	transcript := "dolo six fifty 650 mg twice a day after food for 5 days in the morning"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Resolve(transcript, cat)
	}
}
