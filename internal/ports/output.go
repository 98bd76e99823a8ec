package ports

import "capresolve/internal/types"

type OutputPort interface {
	WriteLock(entries []types.LockEntry) error
	WriteResolution(report types.ResolutionReport) error
}
