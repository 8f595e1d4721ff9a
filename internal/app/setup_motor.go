package app

import (
	"context"

	"github.com/rs/zerolog/log"
)

// SetupMotor programs one factory-fresh servo to the id its motor
// occupies on the component's bus. The connect skips the handshake, a
// fresh servo does not answer at its target id yet.
func (s Service) SetupMotor(ctx context.Context, req SetupMotorRequest) error {
	assembly, err := s.load(ctx, req.AssemblyPath)
	if err != nil {
		return err
	}
	binding, err := assembly.Binding(req.Component)
	if err != nil {
		return err
	}

	bus := binding.Component.Bus()
	if err := bus.Connect(false); err != nil {
		return err
	}
	defer func() {
		if err := bus.Disconnect(false); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("bus disconnect failed after motor setup")
		}
	}()

	if err := bus.SetupMotor(req.Motor, req.InitialBaudrate, req.InitialID); err != nil {
		return err
	}
	log.Ctx(ctx).Info().
		Str("component", binding.Name).
		Str("motor", req.Motor).
		Msg("motor programmed")
	return nil
}
