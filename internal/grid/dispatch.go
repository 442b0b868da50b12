package grid

import (
	"context"
	"net/url"
	"strconv"
)

// Sort directions accepted by the row-fetch protocol.
const (
	DirectionAsc  = "ASC"
	DirectionDesc = "DESC"
)

// FetchParams are the request parameters for one row fetch: the shared
// data source and query, the table, and the pane's own pagination and
// sort state. Order is the 1-based column position.
type FetchParams struct {
	DataSource string
	Table      string
	Query      string
	Order      int
	Direction  string
	Length     int
	Start      int
}

// Encode renders the parameters as a url-encoded mapping against the
// table's endpoint template, the wire form of the row-fetch protocol.
func (p FetchParams) Encode(endpoint string) string {
	v := url.Values{}
	v.Set("dataSource", p.DataSource)
	v.Set("tableName", p.Table)
	v.Set("query", p.Query)
	v.Set("order", strconv.Itoa(p.Order))
	v.Set("direction", p.Direction)
	v.Set("length", strconv.Itoa(p.Length))
	v.Set("start", strconv.Itoa(p.Start))
	return endpoint + "?" + v.Encode()
}

// Response is the grid server-side-processing contract.
type Response struct {
	Draw            int              `json:"draw"`
	RecordsTotal    int              `json:"recordsTotal"`
	RecordsFiltered int              `json:"recordsFiltered"`
	Data            []map[string]any `json:"data"`
}

// Fetcher executes one row fetch. Implemented by the search repository;
// the dispatcher never performs I/O itself.
type Fetcher interface {
	Fetch(ctx context.Context, params FetchParams) (Response, error)
}

// FetchRequest is one dispatched load: which table, the parameters to
// fetch with, and the sequence number that guards against stale
// completions.
type FetchRequest struct {
	Table  string
	Seq    uint64
	Params FetchParams
}

// Registration is one table enrolled with the dispatcher: its
// descriptor, its tracker, and the pane-owned pagination/sort state
// merged into every fetch.
type Registration struct {
	Descriptor TableDescriptor
	Tracker    *Tracker

	Order     int // 1-based sort column position
	Direction string
	Length    int
	Start     int

	seq     uint64 // highest sequence issued
	applied uint64 // highest sequence applied
}

// Dispatcher fans a single query-change event out into one independent
// reload per registered table. It is synchronous: callers receive the
// fetch requests to execute and feed completions back through Complete.
// All methods run on the UI goroutine; fetch execution is the only
// suspension point.
type Dispatcher struct {
	dataSource string
	order      []string
	tables     map[string]*Registration
}

// NewDispatcher creates a dispatcher bound to the named data source.
func NewDispatcher(dataSource string) *Dispatcher {
	return &Dispatcher{dataSource: dataSource, tables: map[string]*Registration{}}
}

// DataSource returns the data source the dispatcher fans out against.
func (d *Dispatcher) DataSource() string { return d.dataSource }

// Register enrolls a table. Registration order is preserved by the
// fan-out. The default sort is the first column ascending.
func (d *Dispatcher) Register(desc TableDescriptor, tracker *Tracker, length int) *Registration {
	reg := &Registration{
		Descriptor: desc,
		Tracker:    tracker,
		Order:      1,
		Direction:  DirectionAsc,
		Length:     length,
	}
	d.order = append(d.order, desc.Name)
	d.tables[desc.Name] = reg
	return reg
}

// Registration returns the enrollment for a table, or nil.
func (d *Dispatcher) Registration(table string) *Registration {
	return d.tables[table]
}

// QueryChanged reacts to one query-change event: every registered table
// starts loading and gets one fetch request carrying the same query.
// N registered tables produce exactly N requests. A new query resets
// each pane to its first page.
func (d *Dispatcher) QueryChanged(query string) []FetchRequest {
	out := make([]FetchRequest, 0, len(d.order))
	for _, name := range d.order {
		reg := d.tables[name]
		reg.Start = 0
		out = append(out, d.dispatch(reg, query))
	}
	return out
}

// LengthChanged reacts to a page-size change: every pane adopts the new
// length and the full fan-out re-runs with the current query.
func (d *Dispatcher) LengthChanged(length int, query string) []FetchRequest {
	for _, reg := range d.tables {
		reg.Length = length
		reg.Start = 0
	}
	return d.QueryChanged(query)
}

// Refetch re-issues a single table's fetch with its current pane state,
// used for per-pane pagination and sort changes.
func (d *Dispatcher) Refetch(table, query string) (FetchRequest, bool) {
	reg, ok := d.tables[table]
	if !ok {
		return FetchRequest{}, false
	}
	return d.dispatch(reg, query), true
}

func (d *Dispatcher) dispatch(reg *Registration, query string) FetchRequest {
	reg.Tracker.StartLoad()
	reg.seq++
	return FetchRequest{
		Table: reg.Descriptor.Name,
		Seq:   reg.seq,
		Params: FetchParams{
			DataSource: d.dataSource,
			Table:      reg.Descriptor.Name,
			Query:      query,
			Order:      reg.Order,
			Direction:  reg.Direction,
			Length:     reg.Length,
			Start:      reg.Start,
		},
	}
}

// Complete feeds a fetch completion back into the table's tracker.
// Completions are applied only when they are the freshest seen for the
// table: anything older than the highest issued sequence, or older than
// a completion already applied, is discarded so a slow early response
// cannot overwrite a faster later one. Returns whether the completion
// was applied. Failures stay contained to their own table.
func (d *Dispatcher) Complete(table string, seq uint64, res Response, err error) bool {
	reg, ok := d.tables[table]
	if !ok {
		return false
	}
	if seq < reg.seq || seq <= reg.applied {
		return false
	}
	reg.applied = seq
	if err != nil {
		reg.Tracker.Fail(err.Error())
		return true
	}
	reg.Tracker.Succeed(res.RecordsFiltered)
	return true
}
