package services

// User-facing texts substituted by the degrade-to-message policy. Kept in
// pt-BR to match the audience of the reading front-ends.
const (
	// MsgNoTextDetected renders a NoTextDetected outcome for images.
	MsgNoTextDetected = "Nenhum texto foi detectado na imagem."

	// MsgPDFNoText renders a PDF whose text layer and OCR both came up empty.
	MsgPDFNoText = "Não foi possível extrair texto do PDF."

	// MsgInstallPoppler renders a scanned PDF that cannot be rasterized
	// because poppler is not installed.
	MsgInstallPoppler = "Para processar PDFs escaneados, instale poppler: brew install poppler (macOS) ou sudo apt-get install poppler-utils (Linux)"

	// MsgCaptionUnavailable renders a captioning stage that is not loaded.
	MsgCaptionUnavailable = "Descrição de imagem não disponível no momento. Por favor, use apenas OCR."
)

// MsgCaptionFailed renders a captioning stage that ran and failed.
func MsgCaptionFailed(detail string) string {
	return "Erro ao gerar descrição: " + detail + ". Use a função OCR para extrair texto."
}
