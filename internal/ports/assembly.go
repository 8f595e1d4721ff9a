package ports

import (
	"github.com/Vector-Wangel/lerobot/internal/types"
)

type AssemblyLoaderPort interface {
	LoadAssembly(path string) (types.AssemblyConfig, error)
}
