package prescription

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/harithra-blueberry/aiprescription/catalog"
	"github.com/harithra-blueberry/aiprescription/extractor"
	"github.com/harithra-blueberry/aiprescription/formatter"
	"github.com/harithra-blueberry/aiprescription/interfaces"
	"github.com/harithra-blueberry/aiprescription/logging"
	"github.com/harithra-blueberry/aiprescription/metrics"
	"github.com/harithra-blueberry/aiprescription/resolver"
)

var (
	// ErrNotConfigured indicates an optional collaborator was not set up.
	ErrNotConfigured = errors.New("not configured")
	// ErrBatchTooLarge indicates a batch above the configured maximum.
	ErrBatchTooLarge = errors.New("batch too large")
)

// DefaultMaxBatch bounds ProcessBatch input.
const DefaultMaxBatch = 100

// Options configures a Service. Nil collaborators disable the operations
// that need them; nil Resolver and Extractor use the package defaults.
type Options struct {
	Resolver         *resolver.Resolver
	Extractor        *extractor.Extractor
	Formatter        formatter.Formatter
	Transcriber      interfaces.Transcriber
	Renderer         interfaces.Renderer
	Uploader         interfaces.Uploader
	Dispatcher       interfaces.Dispatcher
	BatchConcurrency int
	MaxBatch         int
}

// Service builds prescription records against the store's current catalog.
// It is safe for concurrent use.
type Service struct {
	store       interfaces.CatalogStore
	resolver    *resolver.Resolver
	extractor   *extractor.Extractor
	formatter   formatter.Formatter
	transcriber interfaces.Transcriber
	renderer    interfaces.Renderer
	uploader    interfaces.Uploader
	dispatcher  interfaces.Dispatcher
	concurrency int
	maxBatch    int
	now         func() time.Time
}

// NewService creates a pipeline service reading catalogs from store.
func NewService(store interfaces.CatalogStore, opts Options) *Service {
	s := &Service{
		store:       store,
		resolver:    opts.Resolver,
		extractor:   opts.Extractor,
		formatter:   opts.Formatter,
		transcriber: opts.Transcriber,
		renderer:    opts.Renderer,
		uploader:    opts.Uploader,
		dispatcher:  opts.Dispatcher,
		concurrency: opts.BatchConcurrency,
		maxBatch:    opts.MaxBatch,
		now:         time.Now,
	}
	if s.resolver == nil {
		s.resolver = resolver.Default()
	}
	if s.extractor == nil {
		s.extractor = extractor.Default()
	}
	if s.concurrency <= 0 {
		s.concurrency = runtime.GOMAXPROCS(0)
	}
	if s.maxBatch <= 0 {
		s.maxBatch = DefaultMaxBatch
	}
	return s
}

// Process turns one transcript into a record. It never fails: unknown
// medicines come back Unresolved and missing fields come back absent.
func (s *Service) Process(transcript string) Record {
	return s.process(s.store.GetCatalog(), transcript, "text")
}

func (s *Service) process(cat *catalog.Catalog, transcript, source string) Record {
	start := time.Now()

	identity := s.resolver.Resolve(transcript, cat)
	fields := s.extractor.Extract(transcript)

	rec := Record{
		ID:               uuid.New(),
		Identity:         identity,
		Fields:           fields,
		SourceTranscript: transcript,
		CreatedAt:        s.now(),
	}

	recordMetrics(rec)
	metrics.PipelineDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	logging.Debug("Prescription processed",
		"id", rec.ID.String(),
		"status", identity.Status.String(),
		"medicine", identity.Name(),
		"confidence", identity.Confidence,
		"fields_found", fields.Found(),
	)
	return rec
}

func recordMetrics(rec Record) {
	metrics.RecordResolution(rec.Identity.Status.String(), rec.Identity.Confidence)

	f := rec.Fields
	for field, v := range map[extractor.Field]extractor.Value{
		extractor.FieldDosage:          f.Dosage,
		extractor.FieldFrequency:       f.Frequency,
		extractor.FieldDuration:        f.Duration,
		extractor.FieldFoodInstruction: f.FoodInstruction,
	} {
		if v.IsPresent() {
			metrics.RecordField(string(field))
		}
	}
	if len(f.Timing) > 0 {
		metrics.RecordField(string(extractor.FieldTiming))
	}
}

// ProcessBatch processes transcripts in parallel against one catalog
// snapshot. Results keep the input order. It stops early only when ctx is
// cancelled.
func (s *Service) ProcessBatch(ctx context.Context, transcripts []string) ([]Record, error) {
	if len(transcripts) > s.maxBatch {
		return nil, fmt.Errorf("%w: %d transcripts, limit %d", ErrBatchTooLarge, len(transcripts), s.maxBatch)
	}

	cat := s.store.GetCatalog()
	records := make([]Record, len(transcripts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, transcript := range transcripts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records[i] = s.process(cat, transcript, "batch")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch interrupted: %w", err)
	}
	return records, nil
}

// ProcessAudio transcribes an audio capture and processes the transcript.
func (s *Service) ProcessAudio(ctx context.Context, audio []byte, contentType string) (Record, error) {
	if s.transcriber == nil {
		return Record{}, fmt.Errorf("speech transcription %w", ErrNotConfigured)
	}

	start := time.Now()
	transcript, err := s.transcriber.Transcribe(ctx, audio, contentType)
	if err != nil {
		return Record{}, fmt.Errorf("transcribe audio: %w", err)
	}

	rec := s.process(s.store.GetCatalog(), transcript, "audio")
	metrics.PipelineDuration.WithLabelValues("transcription").Observe(time.Since(start).Seconds())
	return rec, nil
}

// Format renders the record as prescription text.
func (s *Service) Format(rec Record) string {
	return s.formatter.Format(rec.Identity, rec.Fields)
}

// Render produces the record's document.
func (s *Service) Render(rec Record) ([]byte, string, error) {
	if s.renderer == nil {
		return nil, "", fmt.Errorf("document rendering %w", ErrNotConfigured)
	}

	doc, err := s.renderer.Render(s.Format(rec))
	if err != nil {
		return nil, "", fmt.Errorf("render prescription %s: %w", rec.ID, err)
	}
	return doc, s.renderer.ContentType(), nil
}

// Deliver renders the record, uploads the document and sends its link to
// the recipient.
func (s *Service) Deliver(ctx context.Context, rec Record, to string) (delivery Delivery, err error) {
	defer func() { metrics.RecordDelivery(err) }()

	if s.uploader == nil {
		return Delivery{}, fmt.Errorf("document storage %w", ErrNotConfigured)
	}
	if s.dispatcher == nil {
		return Delivery{}, fmt.Errorf("message dispatch %w", ErrNotConfigured)
	}

	doc, contentType, err := s.Render(rec)
	if err != nil {
		return Delivery{}, err
	}

	url, err := s.uploader.Upload(ctx, rec.DocumentKey(), doc, contentType)
	if err != nil {
		return Delivery{}, fmt.Errorf("upload prescription %s: %w", rec.ID, err)
	}

	sid, err := s.dispatcher.SendMedia(ctx, to, "Your prescription for "+rec.Identity.Name(), url)
	if err != nil {
		return Delivery{}, fmt.Errorf("send prescription %s: %w", rec.ID, err)
	}

	logging.Info("Prescription delivered", "id", rec.ID.String(), "sid", sid)
	return Delivery{RecordID: rec.ID, DocumentURL: url, MessageSID: sid, To: to}, nil
}

// Resolve matches a medicine name against the current catalog.
func (s *Service) Resolve(query string) resolver.Result {
	res := s.resolver.Resolve(query, s.store.GetCatalog())
	metrics.RecordResolution(res.Status.String(), res.Confidence)
	return res
}

// Lookup finds a catalog entry by exact name, falling back to fuzzy
// resolution.
func (s *Service) Lookup(name string) resolver.Result {
	if e, ok := s.store.GetCatalog().Lookup(name); ok {
		return resolver.Result{Entry: &e, Confidence: 100, Status: resolver.Resolved}
	}
	return s.Resolve(name)
}

// Details renders the catalog details for name.
func (s *Service) Details(name string) (resolver.Result, string) {
	res := s.Lookup(name)
	return res, s.formatter.FormatDetails(name, res)
}
