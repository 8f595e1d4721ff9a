package core

import (
	"fmt"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

func errNameCollision(busName string, motorName string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeAlreadyExists).
		WithMsg(fmt.Sprintf("motor name collision on shared bus %s: %s", busName, motorName))
}

func errIDCollision(busName string, motorName string, id int) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeAlreadyExists).
		WithMsg(fmt.Sprintf("motor id collision on shared bus %s: %s resolves to id %d", busName, motorName, id))
}

func errLateRegistration(busName string, componentName string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("cannot register %s on shared bus %s: bus handle already built", componentName, busName))
}

func errBusUninitialized(busName string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("shared bus %s not initialized", busName))
}

func errUnknownMotor(motorName string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("motor not registered on this view: %s", motorName))
}
