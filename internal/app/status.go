package app

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Status connects the whole assembly, samples every motor's present
// position, and disconnects again without touching torque.
func (s Service) Status(ctx context.Context, req StatusRequest) ([]ComponentStatus, error) {
	assembly, err := s.load(ctx, req.AssemblyPath)
	if err != nil {
		return nil, err
	}
	if err := assembly.Connect(); err != nil {
		return nil, err
	}
	defer func() {
		if err := assembly.Disconnect(false); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("assembly disconnect failed")
		}
	}()

	statuses := make([]ComponentStatus, 0, len(assembly.Bindings))
	for _, binding := range assembly.Bindings {
		bus := binding.Component.Bus()
		status := ComponentStatus{
			Name:       binding.Name,
			Bus:        bus.Port(),
			Connected:  bus.IsConnected(),
			Calibrated: bus.IsCalibrated(),
		}
		positions, err := bus.SyncRead("Present_Position", nil, true, 1)
		if err != nil {
			return nil, err
		}
		status.Positions = positions
		statuses = append(statuses, status)
	}
	return statuses, nil
}
