package main

import (
	"fmt"
	"log"

	"quintos/internal/config"
	"quintos/internal/events"
	"quintos/internal/handler"
	"quintos/internal/llm"
	"quintos/internal/ocr"
	"quintos/internal/ocr/extractor"
	"quintos/internal/router"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Telemetry
	emitter := events.NewEmitter(events.LogSink{}, cfg.Events.BufferSize)
	defer emitter.Close()

	// Inference gateway
	llmClient, err := llm.New(&cfg.LLM, emitter)
	if err != nil {
		return fmt.Errorf("failed to initialize llm client: %w", err)
	}

	// Pipeline
	registry := extractor.NewDefaultRegistry(llmClient)
	pipeline := ocr.NewPipeline(llmClient, emitter, registry, cfg.LLM.VisionModel, cfg.LLM.ConversationModel)

	// Handlers
	ocrH := handler.NewOCRHandler(pipeline, cfg.OCR.MaxUploadSizeMB)
	healthH := handler.NewHealthHandler(cfg.LLM.Provider)

	// Setup router
	r := router.Setup(ocrH, healthH)

	log.Printf("Server starting on %s (llm provider: %s)", cfg.Server.Port, cfg.LLM.Provider)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
