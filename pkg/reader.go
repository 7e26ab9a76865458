package reaction

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
)

const maxLineSize = 64 * 1024 * 1024

// RecordReader decodes event records from a JSON-lines stream: one JSON
// object per line, keyed by raw column name. Only columns declared as graph
// inputs are decoded, with their declared types.
type RecordReader struct {
	scanner  *bufio.Scanner
	schema   map[string]reflect.Type
	line     int
	EvtCount int
}

func NewRecordReader(r io.Reader, schema map[string]reflect.Type) *RecordReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), maxLineSize)
	return &RecordReader{scanner: scanner, schema: schema, EvtCount: -1}
}

// RecordError reports a line that could not be decoded. The reader can
// continue with the next line.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record at line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Next returns the next record honouring the configured Skip and MaxEvents.
// It returns io.EOF at the end of the stream or once MaxEvents is reached.
func (f *RecordReader) Next() (EventData, error) {
	for {
		if !f.scanner.Scan() {
			if err := f.scanner.Err(); err != nil {
				return EventData{}, err
			}
			return EventData{}, io.EOF
		}
		f.line++
		line := f.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		f.EvtCount++
		if f.EvtCount >= configuration.MaxEvents {
			if configuration.Verbosity > 0 {
				logger.Info("Max events reached", "recordReader")
			}
			return EventData{}, io.EOF
		}
		if f.EvtCount < configuration.Skip {
			if configuration.Verbosity > 1 {
				logger.Info(fmt.Sprintf("Skipping event %d", f.EvtCount), "recordReader")
			}
			continue
		}
		record, err := f.decode(line)
		if err != nil {
			return EventData{Number: f.EvtCount}, &RecordError{Line: f.line, Err: err}
		}
		if configuration.Verbosity > 1 {
			logger.Info(fmt.Sprintf("Reading event %d", f.EvtCount), "recordReader")
		}
		return EventData{Number: f.EvtCount, Record: record}, nil
	}
}

func (f *RecordReader) decode(line []byte) (Record, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}
	record := make(Record, len(f.schema))
	for name, typ := range f.schema {
		data, ok := raw[name]
		if !ok {
			// reported when the event reads it
			continue
		}
		value := reflect.New(typ)
		if err := json.Unmarshal(data, value.Interface()); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		record[name] = value.Elem().Interface()
	}
	return record, nil
}

// SendRecords feeds jobs until the stream ends or ctx is cancelled, then
// closes jobs. Undecodable records are logged and skipped.
func SendRecords(ctx context.Context, reader *RecordReader, jobs chan<- EventData) error {
	defer close(jobs)
	for {
		data, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var recordErr *RecordError
			if errors.As(err, &recordErr) {
				logger.Error(fmt.Sprintf("discarding event %d: %v", data.Number, err))
				continue
			}
			return fmt.Errorf("error reading records: %w", err)
		}
		select {
		case jobs <- data:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
