package app

import (
	"context"

	"github.com/Vector-Wangel/lerobot/internal/adapters"
	"github.com/Vector-Wangel/lerobot/internal/feetech"
	"github.com/Vector-Wangel/lerobot/internal/ports"
)

type Service struct {
	Loader  ports.AssemblyLoaderPort
	Factory ports.BusFactory
}

func NewService() Service {
	return Service{
		Loader:  adapters.NewAssemblyFileAdapter(),
		Factory: feetech.Factory(nil),
	}
}

// load reads and builds an assembly in one step; every service
// operation starts here.
func (s Service) load(ctx context.Context, path string) (*Assembly, error) {
	cfg, err := s.Loader.LoadAssembly(path)
	if err != nil {
		return nil, err
	}
	return BuildAssembly(ctx, cfg, s.Factory)
}
