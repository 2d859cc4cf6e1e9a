package engine

import "golang.org/x/xerrors"

// Sentinel errors for precondition violations, missing resources, and the
// type/version checks Open makes (ErrNotDatabase, ErrVersionMismatch, which
// Open returns wrapped). Other fatal errors (corruption, I/O failure) are
// returned wrapped with xerrors.Errorf and are not sentinels — callers
// distinguish them from these with errors.Is.
var (
	ErrStructureExists     = xerrors.New("structure already exists")
	ErrStructureNotFound   = xerrors.New("no such structure")
	ErrObjectExists        = xerrors.New("object already exists")
	ErrObjectNotFound      = xerrors.New("no such object")
	ErrFieldNotFound       = xerrors.New("no such field")
	ErrFieldNotCached      = xerrors.New("please cache the field before writing")
	ErrReservedFieldName   = xerrors.New(`"list" is a reserved field name`)
	ErrWrongLocation       = xerrors.New("command is not valid at the current location")
	ErrMalformedLinkTarget = xerrors.New("malformed link target")
	ErrUnknownCellType     = xerrors.New("unknown cell type")
	ErrDatabaseExists      = xerrors.New("a database already exists at this path")
	ErrNotDatabase         = xerrors.New("not a msdb database")
	ErrVersionMismatch     = xerrors.New("database version does not match this build")
)
