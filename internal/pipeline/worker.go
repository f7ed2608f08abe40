package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hwingest/internal/chunker"
	"hwingest/internal/ingest"
	"hwingest/internal/stats"
)

// Worker processes a single document job: parse, dedup, chunk.
type Worker struct {
	engine   *chunker.Engine
	jobs     *JobStore
	recorder *stats.Recorder
	log      *slog.Logger
	chunkCfg chunker.Config

	pdfFallback bool
}

func NewWorker(engine *chunker.Engine, jobs *JobStore, rec *stats.Recorder, log *slog.Logger, chunkCfg chunker.Config, pdfFallback bool) *Worker {
	return &Worker{
		engine:      engine,
		jobs:        jobs,
		recorder:    rec,
		log:         log,
		chunkCfg:    chunkCfg,
		pdfFallback: pdfFallback,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID, "filename", job.Filename)
	started := time.Now()

	if err := ctx.Err(); err != nil {
		job.AddError("canceled before processing")
		job.SetStatus(StatusFailed, "queued")
		return
	}

	// Phase 1: Parse.
	job.SetStatus(StatusParsing, "parsing")
	parser, err := ingest.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if pp, ok := parser.(*ingest.PDFParser); ok {
		pp.FallbackPdftotext = w.pdfFallback
	}

	doc, err := parser.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	// Caller-supplied identity fields win; the parser's findings fill the
	// gaps and flow back to the job for status reporting.
	doc.DocID, doc.Title, doc.Chip = job.ReconcileIdentity(doc.DocID, doc.Title, doc.Chip)

	// Phase 1.5: Dedup on the parsed text.
	hash := ContentHashHex([]byte(doc.Content))
	job.SetContentHash(hash)
	if owner, claimed := w.jobs.ClaimHash(hash, doc.DocID); !claimed && owner != doc.DocID {
		log.Info("duplicate document, skipping", "existing_doc_id", owner)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	}

	// Phase 2: Chunk.
	job.SetStatus(StatusChunking, "chunking")
	cfg := w.chunkCfg
	if override, ok := job.ChunkConfig(); ok {
		cfg = override
	}
	chunks, err := w.engine.Chunk(*doc, cfg)
	if err != nil {
		var ce *chunker.ChunkError
		if errors.As(err, &ce) {
			log.Error("chunking failed", "doc_id", ce.DocID, "error", ce)
		} else {
			log.Error("chunking failed", "error", err)
		}
		job.AddError(fmt.Sprintf("chunk: %s", err))
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	job.SetChunks(chunks)
	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no extractable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	job.SetStatus(StatusCompleted, "done")
	if w.recorder != nil {
		w.recorder.RecordDocument(doc.DocType, len(chunks), time.Since(started))
	}
	log.Info("ingest complete",
		"doc_type", doc.DocType,
		"chunks", len(chunks),
		"elapsed", time.Since(started).Round(time.Millisecond))
}
