// Package bus coordinates instruments sharing one physical bus.
//
// GPIB is a bus interface: every instrument on it can be reached with
// group commands to perform synchronized tasks, the most useful being
// the group execute trigger. A Group borrows resource handles for the
// duration of each call; it never owns them and never closes them.
package bus

import (
	"errors"

	"github.com/benchkit-project/benchkit-go/pkg/resource"
	"github.com/benchkit-project/benchkit-go/pkg/visa"
)

// Group errors.
var (
	ErrNoTriggerSupport = errors.New("controller transport does not support group triggering")
	ErrNotGPIB          = errors.New("device is not a GPIB resource")
)

// Group issues synchronized commands to a set of resources sharing the
// controller's bus segment.
//
// All devices passed to Trigger must sit on the same physical bus
// segment as the controller. That is a caller obligation: violating it
// is undefined at the bus level and is not detected here.
type Group struct {
	ctrl *resource.Resource
}

// NewGroup returns a coordinator for the bus behind the given
// controller resource.
func NewGroup(controller *resource.Resource) *Group {
	return &Group{ctrl: controller}
}

// Trigger sends the group execute trigger to the given devices in one
// bus transaction. The devices are triggered logically simultaneously;
// no ordering among them is guaranteed beyond what the bus primitive
// provides, and there is no per-device completion acknowledgment.
func (g *Group) Trigger(devices ...*resource.Resource) error {
	trig, ok := g.ctrl.Session().(visa.GroupTriggerer)
	if !ok {
		return ErrNoTriggerSupport
	}

	addrs := make([]int, 0, len(devices))
	for _, dev := range devices {
		addr, err := visa.ParseAddress(dev.Address())
		if err != nil {
			return err
		}
		if addr.Kind != visa.InterfaceGPIB {
			return ErrNotGPIB
		}
		addrs = append(addrs, addr.Primary)
	}

	return trig.GroupExecuteTrigger(addrs...)
}
