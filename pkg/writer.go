package reaction

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	hdf5 "github.com/jmbenlloch/go-hdf5"
)

// RowWriter receives batches of snapshot rows. It must be safe for
// concurrent use and must not keep the slices it is given.
type RowWriter interface {
	WriteRows(numbers []int64, rows [][]float64) error
}

// Snapshot collects the values of selected scalar columns for every accepted
// event. Without a RowWriter rows are kept in memory; with one (StreamTo)
// at most batch rows are buffered and every Merge flushes.
type Snapshot struct {
	columns []string
	numbers []int64
	rows    [][]float64
	sink    RowWriter
	batch   int
	flushed int
}

// NewSnapshot checks that every column exists and holds a numeric or boolean
// scalar.
func NewSnapshot(r *Reaction, columns []string) (*Snapshot, error) {
	for _, c := range columns {
		typ, ok := r.graph.TypeOf(c)
		if !ok {
			return nil, misconfigured(c, "snapshot of undeclared column")
		}
		if !scalarKind(typ) {
			return nil, mismatch(c, "snapshot of non scalar column of type %v", typ)
		}
	}
	return &Snapshot{columns: append([]string(nil), columns...)}, nil
}

// StreamTo sends the rows to w in batches of batch rows. Clones made
// afterwards stream to the same writer.
func (s *Snapshot) StreamTo(w RowWriter, batch int) {
	if batch < 1 {
		batch = 1
	}
	s.sink = w
	s.batch = batch
}

func scalarKind(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool, reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (s *Snapshot) Clone() Aggregator {
	return &Snapshot{columns: s.columns, sink: s.sink, batch: s.batch}
}

func (s *Snapshot) Fill(e *Event) error {
	row := make([]float64, len(s.columns))
	for i, c := range s.columns {
		v, err := e.Get(c)
		if err != nil {
			return err
		}
		x, ok := toFloat(v)
		if !ok {
			return &EventError{Column: c, Err: fmt.Errorf("%w: %T is not a scalar", ErrTypeMismatch, v)}
		}
		row[i] = x
	}
	s.numbers = append(s.numbers, int64(e.Number))
	s.rows = append(s.rows, row)
	if s.sink != nil && len(s.rows) >= s.batch {
		return s.Flush()
	}
	return nil
}

// Flush writes the buffered rows when streaming.
func (s *Snapshot) Flush() error {
	if s.sink == nil || len(s.rows) == 0 {
		return nil
	}
	if err := s.sink.WriteRows(s.numbers, s.rows); err != nil {
		return err
	}
	s.flushed += len(s.rows)
	s.numbers = s.numbers[:0]
	s.rows = s.rows[:0]
	return nil
}

func (s *Snapshot) Merge(other Aggregator) error {
	o, ok := other.(*Snapshot)
	if !ok {
		return fmt.Errorf("cannot merge %T into a snapshot", other)
	}
	if len(o.columns) != len(s.columns) {
		return fmt.Errorf("cannot merge a snapshot of %d columns into one of %d", len(o.columns), len(s.columns))
	}
	if err := o.Flush(); err != nil {
		return err
	}
	s.flushed += o.flushed
	s.numbers = append(s.numbers, o.numbers...)
	s.rows = append(s.rows, o.rows...)
	return s.Flush()
}

func (s *Snapshot) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len counts the rows filled, flushed or not.
func (s *Snapshot) Len() int {
	return s.flushed + len(s.rows)
}

// Sort orders the buffered rows by event number. Partitions finish in any
// order.
func (s *Snapshot) Sort() {
	idx := make([]int, len(s.rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.numbers[idx[a]] < s.numbers[idx[b]]
	})
	numbers := make([]int64, len(idx))
	rows := make([][]float64, len(idx))
	for i, k := range idx {
		numbers[i] = s.numbers[k]
		rows[i] = s.rows[k]
	}
	s.numbers = numbers
	s.rows = rows
}

// Row returns the event number and values of buffered row i.
func (s *Snapshot) Row(i int) (int64, []float64) {
	return s.numbers[i], s.rows[i]
}

// Writer stores a snapshot and its cut flow in an HDF5 file:
//
//	/Run/events         event number of each row
//	/Snapshot/columns   column index and name
//	/Snapshot/values    events x columns matrix of doubles
//	/CutFlow/filters    per filter pass counts
//
// Snapshot rows are appended to extendible datasets as they arrive, so the
// rows follow processing order; /Run/events gives the event of each row.
type Writer struct {
	File          *hdf5.File
	Filename      string
	RunGroup      *hdf5.Group
	SnapshotGroup *hdf5.Group
	CutFlowGroup  *hdf5.Group
	EventsTable   *hdf5.Dataset
	ValuesArray   *hdf5.Dataset
	EvtCounter    int

	mu       sync.Mutex
	nColumns int
}

func NewWriter(filename string) (*Writer, error) {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Creating file: %s", filename), "hdf5writer")
	}
	file, err := openFile(filename)
	if err != nil {
		return nil, err
	}
	writer := &Writer{File: file, Filename: filename}
	if writer.RunGroup, err = createGroup(file, "Run"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.SnapshotGroup, err = createGroup(file, "Snapshot"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	if writer.CutFlowGroup, err = createGroup(file, "CutFlow"); err != nil {
		return nil, errors.Join(err, writer.Close())
	}
	return writer, nil
}

// OpenSnapshot writes the column table and creates the row datasets.
func (w *Writer) OpenSnapshot(columns []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ValuesArray != nil {
		return fmt.Errorf("snapshot already open in %s", w.Filename)
	}
	if len(columns) == 0 {
		return fmt.Errorf("snapshot without columns")
	}
	table := make([]ColumnHDF5, len(columns))
	for i, c := range columns {
		table[i] = ColumnHDF5{Index: int32(i), Name: convertToHdf5String(c)}
	}
	if err := writeArrayToTable(w.SnapshotGroup, "columns", table); err != nil {
		return err
	}
	var err error
	if w.EventsTable, err = createTable(w.RunGroup, "events", EventDataHDF5{}); err != nil {
		return err
	}
	if w.ValuesArray, err = create2dArray(w.SnapshotGroup, "values", len(columns)); err != nil {
		return err
	}
	w.nColumns = len(columns)
	return nil
}

// WriteRows appends rows to an open snapshot. It is safe for concurrent use.
func (w *Writer) WriteRows(numbers []int64, rows [][]float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.ValuesArray == nil {
		return fmt.Errorf("no snapshot open in %s", w.Filename)
	}
	if len(numbers) != len(rows) {
		return fmt.Errorf("%d event numbers for %d rows", len(numbers), len(rows))
	}
	events := make([]EventDataHDF5, len(rows))
	values := make([]float64, 0, len(rows)*w.nColumns)
	for i, row := range rows {
		if len(row) != w.nColumns {
			return fmt.Errorf("row of %d values in a snapshot of %d columns", len(row), w.nColumns)
		}
		events[i] = EventDataHDF5{EvtNumber: numbers[i]}
		values = append(values, row...)
	}
	if err := appendRows(w.EventsTable, "events", &events, w.EvtCounter, len(rows), 0); err != nil {
		return err
	}
	if err := appendRows(w.ValuesArray, "values", &values, w.EvtCounter, len(rows), w.nColumns); err != nil {
		return err
	}
	w.EvtCounter += len(rows)
	if configuration.Verbosity > 1 {
		logger.Info(fmt.Sprintf("%d rows written, %d in total", len(rows), w.EvtCounter), "hdf5writer")
	}
	return nil
}

// WriteSnapshot writes the buffered rows of s sorted by event number.
func (w *Writer) WriteSnapshot(s *Snapshot) error {
	s.Sort()
	if err := w.OpenSnapshot(s.Columns()); err != nil {
		return err
	}
	return w.WriteRows(s.numbers, s.rows)
}

// WriteCutFlow writes one entry per filter with the events reaching it and
// the events passing it.
func (w *Writer) WriteCutFlow(c *CutFlow) error {
	entries := make([]CutFlowHDF5, len(c.Labels))
	reaching := c.Total
	for i, label := range c.Labels {
		entries[i] = CutFlowHDF5{Filter: convertToHdf5String(label), Passed: c.Passed[i], All: reaching}
		reaching = c.Passed[i]
	}
	return writeArrayToTable(w.CutFlowGroup, "filters", entries)
}

func (w *Writer) Close() error {
	if configuration.Verbosity > 0 {
		logger.Info(fmt.Sprintf("Closing file %s, %d events written", w.Filename, w.EvtCounter), "hdf5writer")
	}
	var errs []error

	if w.EventsTable != nil {
		if err := w.EventsTable.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing events table: %w", err))
		}
	}
	if w.ValuesArray != nil {
		if err := w.ValuesArray.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing values array: %w", err))
		}
	}
	if w.RunGroup != nil {
		if err := w.RunGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing run group: %w", err))
		}
	}
	if w.SnapshotGroup != nil {
		if err := w.SnapshotGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing snapshot group: %w", err))
		}
	}
	if w.CutFlowGroup != nil {
		if err := w.CutFlowGroup.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing cut flow group: %w", err))
		}
	}
	if err := w.File.Close(); err != nil {
		errs = append(errs, fmt.Errorf("error closing file: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
