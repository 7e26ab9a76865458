package reaction

import (
	hdf5 "github.com/jmbenlloch/go-hdf5"
)

type EventDataHDF5 struct {
	EvtNumber int64 `hdf5:"evt_number"`
}

type ColumnHDF5 struct {
	Index int32        `hdf5:"index"`
	Name  [STRLEN]byte `hdf5:"name"`
}

type CutFlowHDF5 struct {
	Filter [STRLEN]byte `hdf5:"filter"`
	Passed int64        `hdf5:"passed"`
	All    int64        `hdf5:"all"`
}

// STRLEN is the fixed size of strings stored in compound tables. Longer
// names are truncated.
const STRLEN = 64

const tableChunk = 32768

func convertToHdf5String(s string) [STRLEN]byte {
	var byteArray [STRLEN]byte
	copy(byteArray[:], s)
	return byteArray
}

func openFile(fname string) (*hdf5.File, error) {
	f, err := hdf5.CreateFile(fname, hdf5.F_ACC_TRUNC)
	if err != nil {
		return nil, &ErrOpenFile{Filename: fname, Err: err}
	}
	return f, nil
}

func createGroup(file *hdf5.File, groupName string) (*hdf5.Group, error) {
	g, err := file.CreateGroup(groupName)
	if err != nil {
		return nil, &ErrCreateGroup{GroupName: groupName, Err: err}
	}
	return g, nil
}

// createArray creates an empty chunked dataset whose first dimension grows
// with every append. nCols is 0 for tables, the row width for matrices.
func createArray(group *hdf5.Group, name string, dtype *hdf5.Datatype, nCols int) (*hdf5.Dataset, error) {
	unlimitedDims := -1 // H5S_UNLIMITED is -1L
	dims := []uint{0}
	maxDims := []uint{uint(unlimitedDims)}
	chunks := []uint{tableChunk}
	if nCols > 0 {
		dims = append(dims, uint(nCols))
		maxDims = append(maxDims, uint(nCols))
		chunks = []uint{uint(max(1, tableChunk/nCols)), uint(nCols)}
	}

	fileSpace, err := hdf5.CreateSimpleDataspace(dims, maxDims)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer fileSpace.Close()

	plist, err := hdf5.NewPropList(hdf5.P_DATASET_CREATE)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	defer plist.Close()

	if err := plist.SetChunk(chunks); err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	if configuration.CompressionLevel > 0 {
		if err := plist.SetDeflate(configuration.CompressionLevel); err != nil {
			return nil, &ErrCreateTable{TableName: name, Err: err}
		}
	}

	dset, err := group.CreateDatasetWith(name, dtype, fileSpace, plist)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return dset, nil
}

func create2dArray(group *hdf5.Group, name string, nCols int) (*hdf5.Dataset, error) {
	return createArray(group, name, hdf5.T_NATIVE_DOUBLE, nCols)
}

func createTable(group *hdf5.Group, name string, datatype interface{}) (*hdf5.Dataset, error) {
	dtype, err := hdf5.NewDatatypeFromValue(datatype)
	if err != nil {
		return nil, &ErrCreateTable{TableName: name, Err: err}
	}
	return createArray(group, name, dtype, 0)
}

// appendRows extends dataset by nRows and writes data, nRows x nCols values
// in row-major order (nCols is 0 for tables), after the first offset rows.
func appendRows(dataset *hdf5.Dataset, name string, data interface{}, offset int, nRows int, nCols int) error {
	if nRows == 0 {
		return nil
	}
	newsize := []uint{uint(offset + nRows)}
	start := []uint{uint(offset)}
	count := []uint{uint(nRows)}
	if nCols > 0 {
		newsize = append(newsize, uint(nCols))
		start = append(start, 0)
		count = append(count, uint(nCols))
	}

	// extend
	dataset.Resize(newsize)
	filespace := dataset.Space()
	defer filespace.Close()
	if err := filespace.SelectHyperslab(start, nil, count, nil); err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}

	dataspace, err := hdf5.CreateSimpleDataspace(count, nil)
	if err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}
	defer dataspace.Close()

	if err := dataset.WriteSubset(data, dataspace, filespace); err != nil {
		return &ErrWriteTable{TableName: name, Err: err}
	}
	return nil
}

// writeArrayToTable creates table name holding data.
func writeArrayToTable[T any](group *hdf5.Group, name string, data []T) error {
	var zero T
	dset, err := createTable(group, name, zero)
	if err != nil {
		return err
	}
	if err := appendRows(dset, name, &data, 0, len(data), 0); err != nil {
		dset.Close()
		return err
	}
	return dset.Close()
}
