package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxaccess/voxaccess-api/internal/database"
	"github.com/voxaccess/voxaccess-api/internal/models"
	"github.com/voxaccess/voxaccess-api/internal/storage"
)

type fakeRegistry struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	audioKeys map[string]*string
}

func newFakeRegistry(docs ...*models.Document) *fakeRegistry {
	r := &fakeRegistry{
		docs:      map[string]*models.Document{},
		audioKeys: map[string]*string{},
	}
	for _, doc := range docs {
		r.docs[doc.ID] = doc
	}
	return r
}

func (r *fakeRegistry) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[id]; ok {
		return doc, nil
	}
	return nil, database.ErrDocumentNotFound
}

func (r *fakeRegistry) SetAudioKey(ctx context.Context, id string, audioKey *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioKeys[id] = audioKey
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) RemoveAll(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.Remove(ctx, key)
	}
	return nil
}

type fakeOCR struct {
	calls int32
	fn    func(image []byte) (string, error)
}

func (o *fakeOCR) Recognize(ctx context.Context, image []byte) (string, error) {
	atomic.AddInt32(&o.calls, 1)
	return o.fn(image)
}

func ocrReturning(text string) *fakeOCR {
	return &fakeOCR{fn: func([]byte) (string, error) { return text, nil }}
}

func ocrFailing(err error) *fakeOCR {
	return &fakeOCR{fn: func([]byte) (string, error) { return "", err }}
}

type fakeCaptioner struct {
	calls   int32
	caption string
	err     error
}

func (c *fakeCaptioner) Describe(ctx context.Context, image []byte, contentType string) (string, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.err != nil {
		return "", c.err
	}
	return c.caption, nil
}

type fakeSynth struct {
	mu       sync.Mutex
	calls    int
	lastText string
	audio    []byte
	err      error
}

func (s *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastText = text
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

type fakePDF struct {
	pages       []PageText
	layerErr    error
	images      [][]byte
	renderErr   error
	renderCalls int32
}

func (p *fakePDF) ExtractTextLayer(ctx context.Context, pdfBytes []byte) ([]PageText, error) {
	if p.layerErr != nil {
		return nil, p.layerErr
	}
	return p.pages, nil
}

func (p *fakePDF) RenderPages(ctx context.Context, pdfBytes []byte) ([][]byte, error) {
	atomic.AddInt32(&p.renderCalls, 1)
	if p.renderErr != nil {
		return nil, p.renderErr
	}
	return p.images, nil
}

type pipelineFixture struct {
	registry *fakeRegistry
	store    *fakeStore
	ocr      *fakeOCR
	caption  *fakeCaptioner
	synth    *fakeSynth
	pdf      *fakePDF
	pipeline *Pipeline
}

func imageDoc(id string) *models.Document {
	return &models.Document{
		ID:          id,
		Filename:    "photo.jpg",
		ContentType: "image/jpeg",
		MediaKind:   models.MediaKindImage,
		SizeBytes:   3,
		StorageKey:  storage.UploadKey(id, "photo.jpg"),
	}
}

func pdfDoc(id string) *models.Document {
	return &models.Document{
		ID:          id,
		Filename:    "doc.pdf",
		ContentType: "application/pdf",
		MediaKind:   models.MediaKindPDF,
		SizeBytes:   3,
		StorageKey:  storage.UploadKey(id, "doc.pdf"),
	}
}

func newFixture(t *testing.T, doc *models.Document) *pipelineFixture {
	t.Helper()

	f := &pipelineFixture{
		registry: newFakeRegistry(doc),
		store:    newFakeStore(),
		ocr:      ocrReturning(""),
		caption:  &fakeCaptioner{caption: "uma foto"},
		synth:    &fakeSynth{audio: []byte("mp3-bytes")},
		pdf:      &fakePDF{},
	}
	require.NoError(t, f.store.Save(context.Background(), doc.StorageKey,
		bytes.NewReader([]byte("raw")), 3, doc.ContentType))

	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)
	return f
}

func TestProcessUnknownDocument(t *testing.T) {
	f := newFixture(t, imageDoc("known"))

	for _, mode := range []models.ProcessMode{models.ModeText, models.ModeDescription, models.ModeAudio, models.ModeAll} {
		_, err := f.pipeline.Process(context.Background(), "missing", mode)
		assert.ErrorIs(t, err, database.ErrDocumentNotFound, "mode %s", mode)
	}
}

func TestProcessImageFullMode(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrReturning("  Bom dia \n")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, "Bom dia", *result.Text)
	require.NotNil(t, result.WordCount)
	assert.Equal(t, 2, *result.WordCount)
	require.NotNil(t, result.Description)
	assert.Equal(t, "uma foto", *result.Description)
	require.NotNil(t, result.AudioURL)
	assert.Equal(t, "/api/audio/doc1", *result.AudioURL)

	// OCR text wins over the caption as speech input
	assert.Equal(t, "Bom dia", f.synth.lastText)

	// audio artifact persisted and recorded
	_, ok := f.store.objects[storage.AudioKey("doc1")]
	assert.True(t, ok)
	require.NotNil(t, f.registry.audioKeys["doc1"])
	assert.Equal(t, storage.AudioKey("doc1"), *f.registry.audioKeys["doc1"])
}

func TestProcessImageEmptyOCRFallsBackToCaption(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrReturning("   \n\t")
	f.caption.caption = "a photo of a cat"
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, MsgNoTextDetected, *result.Text)
	require.NotNil(t, result.WordCount)
	assert.Equal(t, models.CountWords(MsgNoTextDetected), *result.WordCount)

	// The sentinel is never spoken; the caption is.
	require.NotNil(t, result.AudioURL)
	assert.Equal(t, "a photo of a cat", f.synth.lastText)
}

func TestProcessImageNoTextNoCaptionNoSpeech(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrReturning("")
	f.caption.err = Unavailable("model not loaded")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Description)
	assert.Equal(t, MsgCaptionUnavailable, *result.Description)

	// Degrade messages are not eligible as speech input.
	assert.Nil(t, result.AudioURL)
	assert.Equal(t, 0, f.synth.calls)
}

func TestProcessImageCaptionEngineFailure(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.caption.err = EngineFailure("inference exploded")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Description)
	assert.Equal(t, MsgCaptionFailed("inference exploded"), *result.Description)
}

func TestProcessImageOCRFailureDegradesToMessage(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrFailing(EngineFailure("tesseract crashed"))
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeText)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, "Erro ao processar OCR: tesseract crashed", *result.Text)
}

func TestProcessImageTextModeSkipsCaptionAndSpeech(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrReturning("Bom dia")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeText)
	require.NoError(t, err)

	assert.Nil(t, result.Description)
	assert.Nil(t, result.AudioURL)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.caption.calls))
	assert.Equal(t, 0, f.synth.calls)
}

func TestProcessImageDescriptionModeSkipsOCR(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeDescription)
	require.NoError(t, err)

	assert.Nil(t, result.Text)
	assert.Nil(t, result.WordCount)
	require.NotNil(t, result.Description)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.ocr.calls))
}

func TestProcessPDFTextLayerSkipsOCR(t *testing.T) {
	f := newFixture(t, pdfDoc("doc1"))
	f.pdf.pages = []PageText{
		{Number: 1, Text: "primeira página"},
		{Number: 2, Text: ""},
		{Number: 3, Text: "terceira página"},
	}
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, "primeira página\n\nterceira página", *result.Text)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.ocr.calls), "OCR must not run when the text layer has content")
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.pdf.renderCalls))

	// PDFs never get a description
	assert.Nil(t, result.Description)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.caption.calls))
}

func TestProcessPDFEmptyLayerRunsOCRPerPage(t *testing.T) {
	f := newFixture(t, pdfDoc("doc1"))
	f.pdf.pages = []PageText{{Number: 1}, {Number: 2}, {Number: 3}}
	f.pdf.images = [][]byte{[]byte("p1"), []byte("p2"), []byte("p3")}
	f.ocr = &fakeOCR{fn: func(image []byte) (string, error) {
		switch string(image) {
		case "p1":
			return "texto um", nil
		case "p2":
			return "  ", nil
		default:
			return "texto três", nil
		}
	}}
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeText)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, "--- Página 1 ---\ntexto um\n\n--- Página 3 ---\ntexto três", *result.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(&f.ocr.calls), "one OCR call per rendered page")
}

func TestProcessPDFRendererUnavailable(t *testing.T) {
	f := newFixture(t, pdfDoc("doc1"))
	f.pdf.pages = []PageText{{Number: 1}}
	f.pdf.renderErr = Unavailable("pdftoppm not found in PATH")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, MsgInstallPoppler, *result.Text)

	// The install hint is displayable text, not speech input.
	assert.Nil(t, result.AudioURL)
	assert.Equal(t, 0, f.synth.calls)
}

func TestProcessPDFAllPagesEmpty(t *testing.T) {
	f := newFixture(t, pdfDoc("doc1"))
	f.pdf.pages = []PageText{{Number: 1}}
	f.pdf.images = [][]byte{[]byte("p1")}
	f.ocr = ocrReturning("   ")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeText)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Equal(t, MsgPDFNoText, *result.Text)
}

func TestProcessPDFSpeechFromExtractedText(t *testing.T) {
	f := newFixture(t, pdfDoc("doc1"))
	f.pdf.pages = []PageText{{Number: 1, Text: "conteúdo do documento"}}
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.AudioURL)
	assert.Equal(t, "conteúdo do documento", f.synth.lastText)
}

func TestProcessSynthesisFailureOmitsAudio(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrReturning("Bom dia")
	f.synth.err = Unavailable("speech service unreachable")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	result, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	require.NotNil(t, result.Text)
	assert.Nil(t, result.AudioURL)
	_, ok := f.store.objects[storage.AudioKey("doc1")]
	assert.False(t, ok)
}

func TestProcessAudioArtifactOverwritten(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	f.ocr = ocrReturning("Bom dia")
	f.pipeline = NewPipeline(f.registry, f.store, f.ocr, f.caption, f.synth, f.pdf, 4)

	_, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	f.synth.audio = []byte("new-mp3-bytes")
	_, err = f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	require.NoError(t, err)

	assert.Equal(t, []byte("new-mp3-bytes"), f.store.objects[storage.AudioKey("doc1")])
}

func TestProcessMissingBytesBehavesAsNotFound(t *testing.T) {
	f := newFixture(t, imageDoc("doc1"))
	require.NoError(t, f.store.Remove(context.Background(), storage.UploadKey("doc1", "photo.jpg")))

	_, err := f.pipeline.Process(context.Background(), "doc1", models.ModeAll)
	assert.ErrorIs(t, err, database.ErrDocumentNotFound)
}
