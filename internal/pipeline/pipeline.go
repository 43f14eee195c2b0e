// Package pipeline validates, deduplicates, normalizes and persists job records.
// Each stage may drop the record; drops are returned as *DropError and never
// stop the surrounding run.
package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/jobingest/internal/record"
)

// Options configures a Pipeline.
type Options struct {
	// Required lists the fields that must be present and truthy.
	Required []string
	// Types declares the fields the normalizer coerces.
	Types FieldTypes
	// ReleaseOnFailure removes the dedup mark when a record is dropped after
	// admission but before any row was committed (conversion and relational
	// failures), so a later submission can retry it.
	ReleaseOnFailure bool
	Logger           *zap.Logger
}

// Pipeline runs one record at a time through Validate, Gate, Normalize, Encode
// and the DualSinkWriter. A single Pipeline may be shared by many workers.
type Pipeline struct {
	gate   *Gate
	writer *DualSinkWriter
	opts   Options
	logger *zap.Logger
}

// New wires a Pipeline.
func New(gate *Gate, writer *DualSinkWriter, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Types == nil {
		opts.Types = FieldTypes{}
	}
	return &Pipeline{gate: gate, writer: writer, opts: opts, logger: logger}
}

// Process handles one record. A nil error means both sinks committed. Any
// other result is a *DropError whose kind identifies the failing stage; the
// PersistResult still reports which sinks were written.
func (p *Pipeline) Process(ctx context.Context, rec record.Record) (PersistResult, error) {
	result := PersistResult{Relational: SinkSkipped, Document: SinkSkipped}
	reqID := Identity(rec)

	if err := Validate(rec, p.opts.Required); err != nil {
		return result, p.drop(err)
	}
	if err := p.gate.Admit(ctx, reqID); err != nil {
		return result, p.drop(&DropError{ReqID: reqID, Kind: kindOf(err), Err: causeOf(err)})
	}

	normalized, err := Normalize(rec, p.opts.Types)
	if err != nil {
		p.release(ctx, reqID)
		return result, p.drop(err)
	}
	flat := Encode(normalized)

	result, err = p.writer.Persist(ctx, flat, normalized)
	if err != nil {
		if errors.Is(err, ErrPersistRelational) {
			p.release(ctx, reqID)
		}
		return result, p.drop(err)
	}
	p.logger.Debug("record persisted", zap.String("req_id", reqID))
	return result, nil
}

func (p *Pipeline) release(ctx context.Context, reqID string) {
	if !p.opts.ReleaseOnFailure {
		return
	}
	if err := p.gate.Release(ctx, reqID); err != nil {
		p.logger.Error("release dedup mark failed", zap.String("req_id", reqID), zap.Error(err))
	}
}

func (p *Pipeline) drop(err error) error {
	var de *DropError
	reqID := ""
	field := ""
	if errors.As(err, &de) {
		reqID = de.ReqID
		field = de.Field
	}
	fields := []zap.Field{
		zap.String("req_id", reqID),
		zap.String("kind", KindName(err)),
		zap.Error(err),
	}
	if field != "" {
		fields = append(fields, zap.String("field", field))
	}
	if ce := p.logger.Check(dropLevel(err), "record dropped"); ce != nil {
		ce.Write(fields...)
	}
	return err
}

func dropLevel(err error) zapcore.Level {
	switch {
	case errors.Is(err, ErrDuplicate):
		return zapcore.InfoLevel
	case errors.Is(err, ErrMissingField), errors.Is(err, ErrConversion):
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// kindOf and causeOf split a gate error into the DropError kind and the store
// error behind it.
func kindOf(err error) error {
	if errors.Is(err, ErrDuplicate) {
		return ErrDuplicate
	}
	return ErrGateUnavailable
}

func causeOf(err error) error {
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}
