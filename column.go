package client

import (
	"github.com/lib/pq/oid"
	"github.com/psql-wire/client/message"
)

// Column describes one result column of a query, normalized so that Format
// is always message.BinaryFormat: the client always requests binary in
// Bind, so any text format the backend happened to advertise in
// RowDescription is rewritten before it ever reaches a decoder.
type Column struct {
	Name         string
	TableOID     oid.Oid
	AttrNo       int16
	DataTypeOID  oid.Oid
	DataTypeSize int16
	TypeModifier int32
	Format       message.FormatCode
}

// Columns is the normalized column list of a streaming query, along with a
// name-to-index lookup table built once per stream.
type Columns struct {
	list   []Column
	lookup map[string]int
}

// NewColumns builds a normalized Columns table from a decoded RowDescription.
// Every column's Format is forced to message.BinaryFormat regardless of what
// the backend advertised, per the client's format-normalization contract.
func NewColumns(desc message.RowDescription) Columns {
	list := make([]Column, len(desc.Fields))
	lookup := make(map[string]int, len(desc.Fields))

	for i, f := range desc.Fields {
		list[i] = Column{
			Name:         f.Name,
			TableOID:     oid.Oid(f.TableOID),
			AttrNo:       f.AttrNo,
			DataTypeOID:  oid.Oid(f.DataTypeOID),
			DataTypeSize: f.DataTypeSize,
			TypeModifier: f.TypeModifier,
			Format:       message.BinaryFormat,
		}
		if _, ok := lookup[f.Name]; !ok {
			lookup[f.Name] = i
		}
	}

	return Columns{list: list, lookup: lookup}
}

// List returns the columns in server order.
func (c Columns) List() []Column {
	return c.list
}

// Len returns the number of columns.
func (c Columns) Len() int {
	return len(c.list)
}

// Index returns the position of the named column, or -1 if no column by
// that name exists. When a query projects the same name twice, the first
// occurrence wins, matching PostgreSQL's own column-lookup behavior.
func (c Columns) Index(name string) int {
	if i, ok := c.lookup[name]; ok {
		return i
	}

	return -1
}
