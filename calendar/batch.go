package calendar

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchChunkSize is how many events are processed concurrently.
const BatchChunkSize = 10

type BatchStatus string

const (
	BatchSuccess BatchStatus = "success"
	BatchFailed  BatchStatus = "failed"
)

type BatchOptions struct {
	StopOnError  bool `json:"stopOnError,omitempty" jsonschema_description:"Whether to stop processing if an error occurs"`
	ValidateOnly bool `json:"validateOnly,omitempty" jsonschema_description:"Only validate the events without creating them"`
}

type BatchResult struct {
	Input   EventInput  `json:"event"`
	Status  BatchStatus `json:"status"`
	EventID string      `json:"eventId,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

type BatchSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type BatchResponse struct {
	Success bool          `json:"success"`
	Results []BatchResult `json:"results"`
	Summary BatchSummary  `json:"summary"`
	Message string        `json:"message"`
}

// CreateMultipleEvents creates (or, with ValidateOnly, only validates) inputs
// in chunks of BatchChunkSize. Events within a chunk run concurrently; results
// keep input order. With StopOnError, chunks after the first failing one are
// not processed and count as failed.
func (s *Service) CreateMultipleEvents(ctx context.Context, inputs []EventInput, opts BatchOptions) BatchResponse {
	results := make([]BatchResult, 0, len(inputs))
	successful, failed := 0, 0
	var firstErr string

	for off := 0; off < len(inputs); off += BatchChunkSize {
		end := off + BatchChunkSize
		if end > len(inputs) {
			end = len(inputs)
		}
		chunk := make([]BatchResult, end-off)

		var g errgroup.Group
		for i := off; i < end; i++ {
			i := i
			g.Go(func() error {
				chunk[i-off] = s.processBatchItem(ctx, inputs[i], opts.ValidateOnly)
				return nil
			})
		}
		_ = g.Wait()

		chunkFailed := false
		for _, r := range chunk {
			if r.Status == BatchSuccess {
				successful++
				continue
			}
			failed++
			chunkFailed = true
			if firstErr == "" {
				firstErr = r.Error
			}
		}
		results = append(results, chunk...)

		if opts.StopOnError && chunkFailed {
			s.log.WithField("processed", len(results)).Warn("batch stopped on error")
			return BatchResponse{
				Success: false,
				Results: results,
				Summary: BatchSummary{Total: len(inputs), Successful: successful, Failed: len(inputs) - successful},
				Message: "Batch operation failed: " + firstErr,
			}
		}
	}

	return BatchResponse{
		Success: failed == 0,
		Results: results,
		Summary: BatchSummary{Total: len(inputs), Successful: successful, Failed: failed},
		Message: batchSummaryMessage(successful, failed, opts.ValidateOnly),
	}
}

func (s *Service) processBatchItem(ctx context.Context, in EventInput, validateOnly bool) BatchResult {
	if validateOnly {
		if _, _, err := Validate(in); err != nil {
			return BatchResult{Input: in, Status: BatchFailed, Error: err.Error()}
		}
		return BatchResult{Input: in, Status: BatchSuccess, Message: "Event validation successful"}
	}
	e, err := s.CreateEvent(ctx, in)
	if err != nil {
		return BatchResult{Input: in, Status: BatchFailed, Error: err.Error()}
	}
	return BatchResult{Input: in, Status: BatchSuccess, EventID: e.ID}
}

func batchSummaryMessage(successful, failed int, validated bool) string {
	op := "created"
	if validated {
		op = "validated"
	}
	if failed == 0 {
		return fmt.Sprintf("Successfully %s all %d events.", op, successful)
	}
	return fmt.Sprintf("%s %d events successfully, %d failed.", op, successful, failed)
}
