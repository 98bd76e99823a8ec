package ports

import "capresolve/internal/types"

type OutputReaderPort interface {
	ReadLock(path string) ([]types.LockEntry, error)
	ReadResolution(path string) (types.ResolutionReport, error)
}
