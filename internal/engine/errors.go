package engine

import "fmt"

// Load steps reported in LoadError.Op.
const (
	OpProject  = "project"
	OpCreate   = "create"
	OpBegin    = "begin"
	OpTruncate = "truncate"
	OpInsert   = "insert"
	OpIdentity = "identity"
	OpVerify   = "verify"
	OpCommit   = "commit"
	OpDrop     = "drop"
	OpRename   = "rename"
)

// LoadError reports the table and step at which a load failed. The
// transaction has been rolled back by the time it is returned.
type LoadError struct {
	Table string
	Op    string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("load failed during %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("load failed during %s of %s: %v", e.Op, e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
