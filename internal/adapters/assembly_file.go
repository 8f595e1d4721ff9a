package adapters

import (
	"os"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"github.com/Vector-Wangel/lerobot/internal/types"
)

type AssemblyFileAdapter struct{}

func NewAssemblyFileAdapter() AssemblyFileAdapter {
	return AssemblyFileAdapter{}
}

func (a AssemblyFileAdapter) LoadAssembly(path string) (types.AssemblyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.AssemblyConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("assembly file not found").
			WithCause(err)
	}
	var cfg types.AssemblyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return types.AssemblyConfig{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("failed to parse assembly yaml").
			WithCause(err)
	}
	if cfg.Mode == "" {
		cfg.Mode = types.BusModeShared
	}
	return cfg, nil
}
