package pipeline

import (
	"log/slog"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/common"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/extract"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/fields"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/imaging"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/normalize"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/ocr"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/raster"
)

// Build assembles the full orchestrator from configuration: engine chain,
// rasterizer, structural extractor, normalizer and field extractor.
func Build(cfg *common.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	runner := ocr.ExecRunner{}

	var engines []ocr.Engine
	if cfg.OCR.RemoteOCRURL != "" {
		engines = append(engines, ocr.NewRemoteEngine(ocr.RemoteConfig{
			BaseURL:             cfg.OCR.RemoteOCRURL,
			ConfidenceThreshold: cfg.OCR.AcceptConfidence,
			HTTPTimeout:         cfg.OCR.EngineTimeout,
		}, nil, logger))
	}
	engines = append(engines,
		ocr.NewTesseractEngine(ocr.TesseractConfig{
			Binary:      cfg.OCR.Tesseract,
			TessdataDir: cfg.OCR.TessdataDir,
			PSM:         cfg.OCR.PSM,
			OEM:         cfg.OCR.OEM,
		}, runner, logger),
		ocr.NewSyntheticEngine(),
	)

	chain := ocr.NewChain(ocr.ChainConfig{
		Engines:          engines,
		PerEngineTimeout: cfg.OCR.EngineTimeout,
		AcceptConfidence: cfg.OCR.AcceptConfidence,
	}, logger)

	rasterizer := raster.NewRasterizer(raster.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, runner, logger)

	structural := extract.NewPDFText(cfg.OCR.Pdftotext, runner, logger)

	selector := extract.NewSelector(extract.Config{
		Concurrency: cfg.OCR.PageConcurrency,
	}, structural, rasterizer, chain, imaging.DefaultOptions(), logger)

	var remote normalize.Cleaner
	if cfg.Normalize.RemoteURL != "" {
		remote = normalize.NewRemoteCleaner(normalize.RemoteConfig{
			BaseURL:     cfg.Normalize.RemoteURL,
			HTTPTimeout: cfg.Normalize.Timeout,
		}, nil, logger)
	}
	normalizer := normalize.NewNormalizer(remote, logger)
	structurer := fields.NewExtractor(logger)

	return NewOrchestrator(selector, normalizer, structurer, cfg.Queue.ProcessingTimeout, logger)
}
