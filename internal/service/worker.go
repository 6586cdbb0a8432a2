package service

import (
	"context"
	"errors"
	"sync"
)

// TaskError accumulates multiple errors produced during bulk ingestion.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkIngestor loads large structure datasets using worker pools. Nodes must
// be ingested before links so edge upserts find both endpoints.
type BulkIngestor struct {
	service *StructureService
	workers int
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(service *StructureService, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		service: service,
		workers: workers,
	}
}

// IngestNodes processes the provided node inputs concurrently.
func (bi *BulkIngestor) IngestNodes(ctx context.Context, nodes []NodeInput) error {
	return bi.run(ctx, len(nodes), func(idx int) error {
		return bi.service.UpsertNode(ctx, nodes[idx])
	})
}

// IngestLinks processes link inputs concurrently.
func (bi *BulkIngestor) IngestLinks(ctx context.Context, links []LinkInput) error {
	return bi.run(ctx, len(links), func(idx int) error {
		return bi.service.UpsertLink(ctx, links[idx])
	})
}

// IngestPersons processes person inputs concurrently.
func (bi *BulkIngestor) IngestPersons(ctx context.Context, persons []PersonInput) error {
	return bi.run(ctx, len(persons), func(idx int) error {
		return bi.service.UpsertPerson(ctx, persons[idx])
	})
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
