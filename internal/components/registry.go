package components

import (
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/Vector-Wangel/lerobot/internal/ports"
	"github.com/Vector-Wangel/lerobot/internal/shared"
)

// builders is the fixed component-type registry. Assemblies refer to
// sub-devices by these type names.
var builders = map[string]ports.ComponentBuilder{
	"so101_follower": NewSO101Follower,
	"lekiwi_base":    NewLekiwiBase,
	"xlerobot_mount": NewXLerobotMount,
}

// Lookup resolves a component type to its builder.
func Lookup(componentType string) (ports.ComponentBuilder, error) {
	builder, ok := builders[componentType]
	if !ok {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("unknown component type %q, supported: %s",
				componentType, strings.Join(Types(), ", ")))
	}
	return builder, nil
}

// Types lists the supported component types in stable order.
func Types() []string {
	return shared.SortedKeys(builders)
}
