package sqlite

import "strconv"

// Status is a SQLite result code as returned by the engine exports.
//
// Values are the engine's own numbering and are stable: callers may store
// and compare them across calls and processes.
type Status int32

// StatusUnknown marks a failure that did not come from the engine.
const StatusUnknown Status = -1

// Primary result codes.
const (
	StatusOK         Status = 0
	StatusError      Status = 1
	StatusInternal   Status = 2
	StatusPerm       Status = 3
	StatusAbort      Status = 4
	StatusBusy       Status = 5
	StatusLocked     Status = 6
	StatusNoMem      Status = 7
	StatusReadOnly   Status = 8
	StatusInterrupt  Status = 9
	StatusIOErr      Status = 10
	StatusCorrupt    Status = 11
	StatusNotFound   Status = 12
	StatusFull       Status = 13
	StatusCantOpen   Status = 14
	StatusProtocol   Status = 15
	StatusEmpty      Status = 16
	StatusSchema     Status = 17
	StatusTooBig     Status = 18
	StatusConstraint Status = 19
	StatusMismatch   Status = 20
	StatusMisuse     Status = 21
	StatusNoLFS      Status = 22
	StatusAuth       Status = 23
	StatusFormat     Status = 24
	StatusRange      Status = 25
	StatusNotADB     Status = 26
	StatusNotice     Status = 27
	StatusWarning    Status = 28
	StatusRow        Status = 100
	StatusDone       Status = 101
)

// statusTable is the closed set of statuses. Every member carries its name
// here, so a status cannot be added without one.
var statusTable = [...]struct {
	status Status
	name   string
}{
	{StatusUnknown, "UNKNOWN"},
	{StatusOK, "SQLITE_OK"},
	{StatusError, "SQLITE_ERROR"},
	{StatusInternal, "SQLITE_INTERNAL"},
	{StatusPerm, "SQLITE_PERM"},
	{StatusAbort, "SQLITE_ABORT"},
	{StatusBusy, "SQLITE_BUSY"},
	{StatusLocked, "SQLITE_LOCKED"},
	{StatusNoMem, "SQLITE_NOMEM"},
	{StatusReadOnly, "SQLITE_READONLY"},
	{StatusInterrupt, "SQLITE_INTERRUPT"},
	{StatusIOErr, "SQLITE_IOERR"},
	{StatusCorrupt, "SQLITE_CORRUPT"},
	{StatusNotFound, "SQLITE_NOTFOUND"},
	{StatusFull, "SQLITE_FULL"},
	{StatusCantOpen, "SQLITE_CANTOPEN"},
	{StatusProtocol, "SQLITE_PROTOCOL"},
	{StatusEmpty, "SQLITE_EMPTY"},
	{StatusSchema, "SQLITE_SCHEMA"},
	{StatusTooBig, "SQLITE_TOOBIG"},
	{StatusConstraint, "SQLITE_CONSTRAINT"},
	{StatusMismatch, "SQLITE_MISMATCH"},
	{StatusMisuse, "SQLITE_MISUSE"},
	{StatusNoLFS, "SQLITE_NOLFS"},
	{StatusAuth, "SQLITE_AUTH"},
	{StatusFormat, "SQLITE_FORMAT"},
	{StatusRange, "SQLITE_RANGE"},
	{StatusNotADB, "SQLITE_NOTADB"},
	{StatusNotice, "SQLITE_NOTICE"},
	{StatusWarning, "SQLITE_WARNING"},
	{StatusRow, "SQLITE_ROW"},
	{StatusDone, "SQLITE_DONE"},
}

var (
	statusNames  = make(map[Status]string, len(statusTable))
	statusByName = make(map[string]Status, len(statusTable))
)

func init() {
	for _, e := range statusTable {
		statusNames[e.status] = e.name
		statusByName[e.name] = e.status
	}
}

// Statuses returns every defined status in table order.
func Statuses() []Status {
	out := make([]Status, len(statusTable))
	for i, e := range statusTable {
		out[i] = e.status
	}
	return out
}

// ParseStatus returns the status with the given symbolic name.
func ParseStatus(name string) (Status, bool) {
	s, ok := statusByName[name]
	return s, ok
}

// String returns the symbolic name, e.g. "SQLITE_CONSTRAINT".
// Codes outside the table render as "Status(n)".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Primary strips the extended-code bits, mapping for example
// SQLITE_CONSTRAINT_UNIQUE (2067) to StatusConstraint.
func (s Status) Primary() Status {
	if s < 0 {
		return s
	}
	return s & 0xff
}

// IsError reports whether the status denotes a failure.
// StatusRow and StatusDone are progress codes, not failures.
func (s Status) IsError() bool {
	switch s.Primary() {
	case StatusOK, StatusRow, StatusDone:
		return false
	}
	return true
}
