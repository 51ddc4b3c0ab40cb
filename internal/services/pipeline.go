package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/voxaccess/voxaccess-api/internal/database"
	"github.com/voxaccess/voxaccess-api/internal/models"
	"github.com/voxaccess/voxaccess-api/internal/storage"
)

// TextRecognizer extracts text from an encoded image.
type TextRecognizer interface {
	Recognize(ctx context.Context, imageBytes []byte) (string, error)
}

// Captioner generates a natural-language description of an image.
type Captioner interface {
	Describe(ctx context.Context, imageBytes []byte, contentType string) (string, error)
}

// Synthesizer converts text to MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// PDFReader reads embedded text and rasterizes pages of a PDF.
type PDFReader interface {
	ExtractTextLayer(ctx context.Context, pdfBytes []byte) ([]PageText, error)
	RenderPages(ctx context.Context, pdfBytes []byte) ([][]byte, error)
}

// DocumentRegistry is the slice of the registry the pipeline needs.
type DocumentRegistry interface {
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	SetAudioKey(ctx context.Context, id string, audioKey *string) error
}

// Pipeline orchestrates the extraction adapters for one document at a time.
// It is stateless across requests: adapters and stores are shared, injected
// once at startup, and every Process call degrades stage failures into
// displayable text instead of failing the request. The only request-level
// failure is an unknown document.
type Pipeline struct {
	registry DocumentRegistry
	store    storage.ObjectStore
	ocr      TextRecognizer
	caption  Captioner
	speech   Synthesizer
	pdf      PDFReader

	// inference bounds concurrent OCR/caption/TTS calls process-wide so a
	// burst of slow documents cannot starve unrelated requests.
	inference   *semaphore.Weighted
	pageWorkers int
}

// NewPipeline wires the content extraction pipeline. inferenceSlots bounds
// concurrent engine calls across all requests.
func NewPipeline(
	registry DocumentRegistry,
	store storage.ObjectStore,
	ocr TextRecognizer,
	caption Captioner,
	speech Synthesizer,
	pdf PDFReader,
	inferenceSlots int,
) *Pipeline {
	if inferenceSlots < 1 {
		inferenceSlots = 1
	}
	return &Pipeline{
		registry:    registry,
		store:       store,
		ocr:         ocr,
		caption:     caption,
		speech:      speech,
		pdf:         pdf,
		inference:   semaphore.NewWeighted(int64(inferenceSlots)),
		pageWorkers: inferenceSlots,
	}
}

// Process runs the extraction policy for one document. It fails only when
// the document does not exist; every adapter failure is absorbed into the
// result fields.
func (p *Pipeline) Process(ctx context.Context, id string, mode models.ProcessMode) (*models.ExtractionResult, error) {
	doc, err := p.registry.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	raw, err := p.readObject(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			// Registry row without bytes: a delete raced us.
			return nil, database.ErrDocumentNotFound
		}
		return nil, err
	}

	result := &models.ExtractionResult{}

	// candidate is the single text-for-speech choice. Only genuine text
	// ever lands here; sentinel and degrade messages are not speakable.
	var candidate TextOutcome

	switch doc.MediaKind {
	case models.MediaKindPDF:
		if mode.WantsText() {
			outcome := p.extractPDFText(ctx, raw)
			p.setText(result, renderPDFText(outcome))
			candidate = outcome
		}
		// Captioning is image-only; PDFs never get a description.

	default:
		var ocrOutcome TextOutcome
		if mode.WantsText() {
			ocrOutcome = p.extractImageText(ctx, raw)
			p.setText(result, renderImageText(ocrOutcome))
		}

		var caption string
		var captionOK bool
		if mode.WantsDescription() {
			caption, captionOK = p.describeImage(ctx, raw, doc.ContentType)
			result.Description = &caption
		}

		// Prefer recognized text; fall back to a genuine caption.
		if ocrOutcome.Status == TextFound {
			candidate = ocrOutcome
		} else if captionOK {
			candidate = FoundText(caption)
		}
	}

	if mode.WantsAudio() && candidate.Status == TextFound && candidate.Text != "" {
		audioURL, err := p.synthesizeAudio(ctx, doc, candidate.Text)
		if err != nil {
			log.Printf("Warning: speech synthesis failed for document %s: %v", doc.ID, err)
		} else {
			result.AudioURL = &audioURL
		}
	}

	return result, nil
}

func (p *Pipeline) readObject(ctx context.Context, key string) ([]byte, error) {
	rc, err := p.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// setText fills the recognized-text field and its derived word count. The
// count is always recomputed from the rendered text, whitespace-split.
func (p *Pipeline) setText(result *models.ExtractionResult, text string) {
	result.Text = &text
	wc := models.CountWords(text)
	result.WordCount = &wc
}

// extractImageText runs OCR over an image and classifies the outcome.
func (p *Pipeline) extractImageText(ctx context.Context, image []byte) TextOutcome {
	text, err := p.recognize(ctx, image)
	if err != nil {
		return UnavailableText("Erro ao processar OCR: " + adapterDetail(err))
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NoText()
	}
	return FoundText(trimmed)
}

// extractPDFText implements the PDF policy: text layer first, then per-page
// OCR over rendered pages, then degrade-to-message.
func (p *Pipeline) extractPDFText(ctx context.Context, raw []byte) TextOutcome {
	pages, err := p.pdf.ExtractTextLayer(ctx, raw)
	if err == nil {
		var parts []string
		for _, page := range pages {
			if page.Text != "" {
				parts = append(parts, page.Text)
			}
		}
		if len(parts) > 0 {
			return FoundText(strings.Join(parts, "\n\n"))
		}
	}

	images, err := p.pdf.RenderPages(ctx, raw)
	if err != nil {
		var aerr *AdapterError
		if errors.As(err, &aerr) && aerr.Kind == AdapterUnavailable {
			return UnavailableText(MsgInstallPoppler)
		}
		return UnavailableText("Erro ao processar PDF: " + adapterDetail(err))
	}

	texts, ocrErr := p.ocrPages(ctx, images)
	if ocrErr != nil {
		return UnavailableText("Erro ao processar OCR: " + adapterDetail(ocrErr))
	}

	var parts []string
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text != "" {
			parts = append(parts, fmt.Sprintf("--- Página %d ---\n%s", i+1, text))
		}
	}
	if len(parts) == 0 {
		return NoText()
	}
	return FoundText(strings.Join(parts, "\n\n"))
}

// ocrPages recognizes rendered pages concurrently, keeping results in page
// order. Individual page failures blank that page; an error is returned
// only when every page failed the same way, meaning the engine itself is
// down.
func (p *Pipeline) ocrPages(ctx context.Context, images [][]byte) ([]string, error) {
	texts := make([]string, len(images))
	pageErrs := make([]error, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.pageWorkers)
	for i, image := range images {
		i, image := i, image
		g.Go(func() error {
			text, err := p.recognize(gctx, image)
			if err != nil {
				pageErrs[i] = err
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, err := range pageErrs {
		if err != nil {
			failed++
		}
	}
	if failed == len(images) && len(images) > 0 {
		return nil, pageErrs[0]
	}

	return texts, nil
}

// describeImage runs captioning, substituting a displayable message on any
// failure. The bool reports whether the description is a genuine caption
// and therefore eligible as speech input.
func (p *Pipeline) describeImage(ctx context.Context, image []byte, contentType string) (string, bool) {
	caption, err := p.describe(ctx, image, contentType)
	if err != nil {
		var aerr *AdapterError
		if errors.As(err, &aerr) && aerr.Kind == AdapterUnavailable {
			return MsgCaptionUnavailable, false
		}
		return MsgCaptionFailed(adapterDetail(err)), false
	}
	return caption, true
}

// synthesizeAudio runs speech synthesis and persists the artifact under the
// document's audio key, overwriting any previous synthesis.
func (p *Pipeline) synthesizeAudio(ctx context.Context, doc *models.Document, text string) (string, error) {
	audio, err := p.speak(ctx, text)
	if err != nil {
		return "", err
	}

	key := storage.AudioKey(doc.ID)
	if err := p.store.Save(ctx, key, bytes.NewReader(audio), int64(len(audio)), "audio/mpeg"); err != nil {
		return "", fmt.Errorf("failed to store audio artifact: %w", err)
	}

	if err := p.registry.SetAudioKey(ctx, doc.ID, &key); err != nil {
		log.Printf("Warning: failed to record audio key for document %s: %v", doc.ID, err)
	}

	return "/api/audio/" + doc.ID, nil
}

// recognize gates an OCR call on the shared inference budget.
func (p *Pipeline) recognize(ctx context.Context, image []byte) (string, error) {
	if err := p.inference.Acquire(ctx, 1); err != nil {
		return "", EngineFailure("inference gate: %v", err)
	}
	defer p.inference.Release(1)
	return p.ocr.Recognize(ctx, image)
}

// describe gates a captioning call on the shared inference budget.
func (p *Pipeline) describe(ctx context.Context, image []byte, contentType string) (string, error) {
	if err := p.inference.Acquire(ctx, 1); err != nil {
		return "", EngineFailure("inference gate: %v", err)
	}
	defer p.inference.Release(1)
	return p.caption.Describe(ctx, image, contentType)
}

// speak gates a synthesis call on the shared inference budget.
func (p *Pipeline) speak(ctx context.Context, text string) ([]byte, error) {
	if err := p.inference.Acquire(ctx, 1); err != nil {
		return nil, EngineFailure("inference gate: %v", err)
	}
	defer p.inference.Release(1)
	return p.speech.Synthesize(ctx, text)
}

// renderImageText maps an image OCR outcome to its displayable text.
func renderImageText(outcome TextOutcome) string {
	switch outcome.Status {
	case TextFound:
		return outcome.Text
	case NoTextDetected:
		return MsgNoTextDetected
	default:
		return outcome.Message
	}
}

// renderPDFText maps a PDF extraction outcome to its displayable text.
func renderPDFText(outcome TextOutcome) string {
	switch outcome.Status {
	case TextFound:
		return outcome.Text
	case NoTextDetected:
		return MsgPDFNoText
	default:
		return outcome.Message
	}
}

// adapterDetail unwraps the adapter error detail for message substitution.
func adapterDetail(err error) string {
	var aerr *AdapterError
	if errors.As(err, &aerr) {
		return aerr.Detail
	}
	return err.Error()
}
