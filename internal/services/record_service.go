// Package services holds the application layer: input validation, owner
// stamping, and the orchestration between stores and the sync pipeline.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ndegwamoche/budget-tracker/internal/amqp"
	"github.com/ndegwamoche/budget-tracker/internal/core"
	"github.com/ndegwamoche/budget-tracker/internal/store"
)

// ErrValidation wraps rejected input so the transport layer can answer 400.
var ErrValidation = errors.New("validation failed")

var validate = validator.New()

// RecordInput is the write payload for expense records. Amount arrives as a
// decimal string to keep float rounding out of the API.
type RecordInput struct {
	Amount     string `json:"amount" validate:"required"`
	CategoryID string `json:"category_id" validate:"required"`
	Note       string `json:"note" validate:"max=500"`
	OccurredOn string `json:"occurred_on" validate:"required,datetime=2006-01-02"`
	Paid       bool   `json:"paid"`
}

// Publisher notifies the sync worker about local writes. Satisfied by
// *amqp.Client; nil when the backend needs no sync.
type Publisher interface {
	PublishRecordSync(ctx context.Context, recordID, ownerID, operation string) error
}

// RecordService validates input and drives the record store.
type RecordService struct {
	store     store.RecordStore
	publisher Publisher
}

func NewRecordService(st store.RecordStore, publisher Publisher) *RecordService {
	return &RecordService{store: st, publisher: publisher}
}

func (s *RecordService) toRecord(ownerID string, input RecordInput) (core.Record, error) {
	if err := validate.Struct(input); err != nil {
		return core.Record{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	cents, err := core.ParseDecimalToCents(input.Amount)
	if err != nil {
		return core.Record{}, fmt.Errorf("%w: amount: %v", ErrValidation, err)
	}

	day := core.ParseDay(input.OccurredOn)
	if day.IsZero() {
		return core.Record{}, fmt.Errorf("%w: occurred_on is not a valid date", ErrValidation)
	}

	return core.Record{
		OwnerID:    ownerID,
		Amount:     core.Money{Cents: cents},
		CategoryID: input.CategoryID,
		Note:       input.Note,
		OccurredOn: day,
		Paid:       input.Paid,
	}, nil
}

func (s *RecordService) Create(ctx context.Context, ownerID string, input RecordInput) (core.Record, error) {
	rec, err := s.toRecord(ownerID, input)
	if err != nil {
		return core.Record{}, err
	}

	created, err := s.store.CreateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, fmt.Errorf("create record: %w", err)
	}

	s.publishSync(ctx, created.ID, ownerID, amqp.OperationSync)
	return created, nil
}

func (s *RecordService) Update(ctx context.Context, ownerID, id string, input RecordInput) (core.Record, error) {
	rec, err := s.toRecord(ownerID, input)
	if err != nil {
		return core.Record{}, err
	}
	rec.ID = id

	updated, err := s.store.UpdateRecord(ctx, rec)
	if err != nil {
		return core.Record{}, err
	}

	s.publishSync(ctx, id, ownerID, amqp.OperationSync)
	return updated, nil
}

func (s *RecordService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteRecord(ctx, ownerID, id); err != nil {
		return err
	}

	s.publishSync(ctx, id, ownerID, amqp.OperationDelete)
	return nil
}

func (s *RecordService) Get(ctx context.Context, ownerID, id string) (core.Record, error) {
	return s.store.RecordByID(ctx, ownerID, id)
}

// ListRange returns the owner's records with dates in [start, end).
func (s *RecordService) ListRange(ctx context.Context, ownerID string, start, end time.Time) ([]core.Record, error) {
	return s.store.RecordsInRange(ctx, ownerID, start, end)
}

// ListMonth returns the owner's records for one calendar month.
func (s *RecordService) ListMonth(ctx context.Context, ownerID string, month core.Month) ([]core.Record, error) {
	if !month.Valid() {
		return nil, fmt.Errorf("%w: invalid month", ErrValidation)
	}
	start, end := month.Bounds()
	return s.store.RecordsInRange(ctx, ownerID, start, end)
}

// publishSync is best effort: the write already landed in the store, and
// the worker also polls the queue, so a failed publish only delays sync.
func (s *RecordService) publishSync(ctx context.Context, recordID, ownerID, operation string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRecordSync(ctx, recordID, ownerID, operation); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"record_id", recordID, "operation", operation, "error", err)
	}
}
