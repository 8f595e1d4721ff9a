package app

import (
	"context"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/Vector-Wangel/lerobot/internal/shared"
)

// Validate loads an assembly file, checks it, and dry-builds it. No
// hardware is touched; a clean result means the file would assemble.
func (s Service) Validate(ctx context.Context, req ValidateRequest) (ValidateResult, error) {
	path := strings.TrimSpace(req.AssemblyPath)
	if path == "" {
		return ValidateResult{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("assembly file path is required")
	}
	assembly, err := s.load(ctx, path)
	if err != nil {
		return ValidateResult{}, err
	}
	result := ValidateResult{
		Mode:  assembly.Mode,
		Buses: shared.SortedKeys(assembly.Managers),
	}
	for _, binding := range assembly.Bindings {
		result.Components = append(result.Components, binding.Name)
	}
	return result, nil
}
