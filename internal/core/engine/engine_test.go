package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docchat/internal/core/extractor"
	"github.com/markdave123-py/docchat/internal/models"
)

// fakeRegistry implements Registry in memory with the same guarded
// transitions the SQL client enforces.
type fakeRegistry struct {
	mu   sync.Mutex
	docs map[string]*models.Document
}

func newFakeRegistry(docs ...*models.Document) *fakeRegistry {
	r := &fakeRegistry{docs: make(map[string]*models.Document)}
	for _, d := range docs {
		cp := *d
		r.docs[d.ID] = &cp
	}
	return r
}

func (r *fakeRegistry) GetDocumentByID(_ context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *fakeRegistry) MarkExtracting(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok || d.Status != models.StatusPending {
		return false, nil
	}
	d.Status = models.StatusExtracting
	return true, nil
}

func (r *fakeRegistry) MarkReady(_ context.Context, id string, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.docs[id]
	if d == nil || d.Status != models.StatusExtracting {
		return assert.AnError
	}
	d.Status = models.StatusReady
	d.ExtractionSource = source
	return nil
}

func (r *fakeRegistry) MarkError(_ context.Context, id string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.docs[id]
	if d == nil || d.Status.Terminal() {
		return assert.AnError
	}
	d.Status = models.StatusError
	d.ErrorReason = reason
	return nil
}

func (r *fakeRegistry) get(id string) models.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.docs[id]
}

type fakeBlobs struct {
	data []byte
}

func (b *fakeBlobs) GetFile(context.Context, string, string) ([]byte, error) {
	return b.data, nil
}

type fakeSink struct {
	mu   sync.Mutex
	puts []models.ExtractedText
}

func (s *fakeSink) Put(_ context.Context, et *models.ExtractedText) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, *et)
	return nil
}

func (s *fakeSink) all() []models.ExtractedText {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ExtractedText(nil), s.puts...)
}

// fakeTier is a scripted extractor that counts invocations.
type fakeTier struct {
	name       string
	applicable bool
	result     extractor.Result
	delay      time.Duration
	calls      atomic.Int32
}

func (f *fakeTier) Name() string { return f.name }

func (f *fakeTier) Applicable([]byte, string) bool { return f.applicable }

func (f *fakeTier) Extract(ctx context.Context, _ []byte, _ string) extractor.Result {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.result
}

func pendingDoc(id string) *models.Document {
	return &models.Document{
		ID:          id,
		OwnerID:     "owner-1",
		FileName:    "report.pdf",
		ContentType: "application/pdf",
		StorageURL:  "https://bucket.s3.us-east-2.amazonaws.com/users/owner-1/documents/" + id + "/report.pdf",
		Status:      models.StatusPending,
	}
}

func newTestEngine(reg Registry, sink TextSink, tiers ...extractor.Extractor) *Engine {
	return NewEngine(reg, &fakeBlobs{data: []byte("%PDF-1.4")}, sink, tiers, NewLeaseTable(time.Minute), 5*time.Second)
}

func TestProcessOne_LocalTierWins(t *testing.T) {
	reg := newFakeRegistry(pendingDoc("doc-1"))
	sink := &fakeSink{}
	local := &fakeTier{name: extractor.TierLocal, applicable: true, result: extractor.Success("embedded text")}
	vendor := &fakeTier{name: extractor.TierVendor, applicable: true, result: extractor.Success("never used")}
	vision := &fakeTier{name: extractor.TierVision, applicable: true, result: extractor.Success("never used")}

	eng := newTestEngine(reg, sink, local, vendor, vision)
	require.NoError(t, eng.ProcessOne(context.Background(), "doc-1"))

	doc := reg.get("doc-1")
	assert.Equal(t, models.StatusReady, doc.Status)
	assert.Equal(t, extractor.TierLocal, doc.ExtractionSource)

	// The paid tiers were never touched.
	assert.Equal(t, int32(0), vendor.calls.Load())
	assert.Equal(t, int32(0), vision.calls.Load())

	puts := sink.all()
	require.Len(t, puts, 1)
	assert.Equal(t, "embedded text", puts[0].Text)
	assert.Equal(t, extractor.TierLocal, puts[0].ExtractionSource)
}

func TestProcessOne_FallsThroughToVendor(t *testing.T) {
	reg := newFakeRegistry(pendingDoc("doc-1"))
	sink := &fakeSink{}
	local := &fakeTier{name: extractor.TierLocal, applicable: true, result: extractor.NotApplicable("local: no extractable text layer")}
	vendor := &fakeTier{name: extractor.TierVendor, applicable: true, result: extractor.Success("vendor text")}
	vision := &fakeTier{name: extractor.TierVision, applicable: true, result: extractor.Success("never used")}

	eng := newTestEngine(reg, sink, local, vendor, vision)
	require.NoError(t, eng.ProcessOne(context.Background(), "doc-1"))

	doc := reg.get("doc-1")
	assert.Equal(t, models.StatusReady, doc.Status)
	assert.Equal(t, extractor.TierVendor, doc.ExtractionSource)
	assert.Equal(t, int32(1), local.calls.Load())
	assert.Equal(t, int32(0), vision.calls.Load())
}

func TestProcessOne_ImageGoesToVisionTier(t *testing.T) {
	doc := pendingDoc("doc-1")
	doc.ContentType = "image/png"
	reg := newFakeRegistry(doc)
	sink := &fakeSink{}
	local := &fakeTier{name: extractor.TierLocal, applicable: false}
	vendor := &fakeTier{name: extractor.TierVendor, applicable: false}
	vision := &fakeTier{name: extractor.TierVision, applicable: true, result: extractor.Success("ocr text")}

	eng := newTestEngine(reg, sink, local, vendor, vision)
	require.NoError(t, eng.ProcessOne(context.Background(), "doc-1"))

	got := reg.get("doc-1")
	assert.Equal(t, models.StatusReady, got.Status)
	assert.Equal(t, extractor.TierVision, got.ExtractionSource)
	assert.Equal(t, int32(0), local.calls.Load())
	assert.Equal(t, int32(0), vendor.calls.Load())
}

func TestProcessOne_AllTiersExhausted(t *testing.T) {
	reg := newFakeRegistry(pendingDoc("doc-1"))
	sink := &fakeSink{}
	local := &fakeTier{name: extractor.TierLocal, applicable: true, result: extractor.Failed("local boom")}
	vendor := &fakeTier{name: extractor.TierVendor, applicable: true, result: extractor.Failed("vendor boom")}
	vision := &fakeTier{name: extractor.TierVision, applicable: true, result: extractor.Failed("vision boom")}

	eng := newTestEngine(reg, sink, local, vendor, vision)
	require.NoError(t, eng.ProcessOne(context.Background(), "doc-1"))

	doc := reg.get("doc-1")
	assert.Equal(t, models.StatusError, doc.Status)
	assert.Contains(t, doc.ErrorReason, "local boom")
	assert.Contains(t, doc.ErrorReason, "vendor boom")
	assert.Contains(t, doc.ErrorReason, "vision boom")
	assert.Empty(t, sink.all())
}

func TestProcessOne_ConcurrentCallersRunOneChain(t *testing.T) {
	reg := newFakeRegistry(pendingDoc("doc-1"))
	sink := &fakeSink{}
	local := &fakeTier{
		name:       extractor.TierLocal,
		applicable: true,
		result:     extractor.Success("text"),
		delay:      20 * time.Millisecond,
	}

	eng := newTestEngine(reg, sink, local)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- eng.ProcessOne(context.Background(), "doc-1")
		}()
	}
	wg.Wait()
	close(errs)

	// Losers either hit the lease (ErrInProgress) or observe the
	// finalized document and no-op.
	for err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrInProgress)
		}
	}

	// Exactly one chain ran: one extractor call, one durable write.
	assert.Equal(t, int32(1), local.calls.Load())
	assert.Len(t, sink.all(), 1)
	assert.Equal(t, models.StatusReady, reg.get("doc-1").Status)
}

func TestProcessOne_TerminalDocumentUntouched(t *testing.T) {
	doc := pendingDoc("doc-1")
	doc.Status = models.StatusReady
	doc.ExtractionSource = extractor.TierLocal
	reg := newFakeRegistry(doc)
	local := &fakeTier{name: extractor.TierLocal, applicable: true, result: extractor.Success("text")}

	eng := newTestEngine(reg, &fakeSink{}, local)
	require.NoError(t, eng.ProcessOne(context.Background(), "doc-1"))

	assert.Equal(t, int32(0), local.calls.Load())
	assert.Equal(t, models.StatusReady, reg.get("doc-1").Status)
}

func TestProcessOne_BudgetExceededAbortsChain(t *testing.T) {
	reg := newFakeRegistry(pendingDoc("doc-1"))
	sink := &fakeSink{}
	slow := &fakeTier{
		name:       extractor.TierLocal,
		applicable: true,
		result:     extractor.Failed("local: took too long"),
		delay:      100 * time.Millisecond,
	}
	vendor := &fakeTier{name: extractor.TierVendor, applicable: true, result: extractor.Success("never reached")}

	eng := NewEngine(reg, &fakeBlobs{data: []byte("%PDF-1.4")}, sink, []extractor.Extractor{slow, vendor}, NewLeaseTable(time.Minute), 20*time.Millisecond)
	require.NoError(t, eng.ProcessOne(context.Background(), "doc-1"))

	doc := reg.get("doc-1")
	assert.Equal(t, models.StatusError, doc.Status)
	assert.Contains(t, doc.ErrorReason, "extraction budget exceeded")
	// The untried tier stays untried.
	assert.Equal(t, int32(0), vendor.calls.Load())
	assert.Empty(t, sink.all())
}

func TestProcessOne_ShutdownCancelDoesNotFinalize(t *testing.T) {
	reg := newFakeRegistry(pendingDoc("doc-1"))
	sink := &fakeSink{}
	slow := &fakeTier{
		name:       extractor.TierLocal,
		applicable: true,
		result:     extractor.Failed("local: interrupted"),
		delay:      time.Second,
	}
	vendor := &fakeTier{name: extractor.TierVendor, applicable: true, result: extractor.Success("never reached")}

	// Generous budget: only the caller's cancellation ends this chain.
	eng := NewEngine(reg, &fakeBlobs{data: []byte("%PDF-1.4")}, sink, []extractor.Extractor{slow, vendor}, NewLeaseTable(time.Minute), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := eng.ProcessOne(ctx, "doc-1")
	require.ErrorIs(t, err, context.Canceled)

	// No finalization: the document is neither READY nor ERROR, so it
	// is not falsely recorded as unreadable.
	doc := reg.get("doc-1")
	assert.Equal(t, models.StatusExtracting, doc.Status)
	assert.Empty(t, doc.ErrorReason)
	assert.Equal(t, int32(0), vendor.calls.Load())
	assert.Empty(t, sink.all())
}

func TestProcessOne_UnknownDocument(t *testing.T) {
	reg := newFakeRegistry()
	eng := newTestEngine(reg, &fakeSink{})
	err := eng.ProcessOne(context.Background(), "missing")
	require.Error(t, err)
}
