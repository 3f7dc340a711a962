package usbtmc

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

// Tektronix vendor ID and the TDS2000 series product ID.
const (
	VendorTektronix = 0x0699
	ProductTDS2000  = 0x0368
)

var errNoEndpoint = errors.New("usbtmc: bulk endpoint not found")

const (
	classApplication = gousb.Class(0xfe)
	subClassTMC      = gousb.Class(0x03)
)

// Open claims the USB-TMC interface of the first device matching vid and
// pid.
func Open(vid, pid uint16, opts ...ConnOption) (*Conn, error) {
	ctx := gousb.NewContext()

	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("usbtmc: open %04x:%04x: %w", vid, pid, err)
	}

	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("usbtmc: device %04x:%04x not found", vid, pid)
	}

	// Not supported on every platform.
	_ = dev.SetAutoDetach(true)

	h := &handle{ctx: ctx, dev: dev}

	out, in, err := h.claim()
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	return NewConn(out, in, append([]ConnOption{WithCloser(h)}, opts...)...), nil
}

type handle struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
}

func (h *handle) claim() (*gousb.OutEndpoint, *gousb.InEndpoint, error) {
	cfg, err := h.dev.Config(1)
	if err != nil {
		return nil, nil, fmt.Errorf("usbtmc: config: %w", err)
	}

	h.cfg = cfg

	num := 0
	for _, desc := range cfg.Desc.Interfaces {
		if len(desc.AltSettings) == 0 {
			continue
		}

		alt := desc.AltSettings[0]
		if alt.Class == classApplication && alt.SubClass == subClassTMC {
			num = desc.Number
			break
		}
	}

	intf, err := cfg.Interface(num, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("usbtmc: claim interface %d: %w", num, err)
	}

	h.intf = intf

	var outNum, inNum int
	for _, ep := range intf.Setting.Endpoints {
		if ep.TransferType != gousb.TransferTypeBulk {
			continue
		}

		switch ep.Direction {
		case gousb.EndpointDirectionOut:
			if outNum == 0 {
				outNum = ep.Number
			}
		case gousb.EndpointDirectionIn:
			if inNum == 0 {
				inNum = ep.Number
			}
		}
	}

	if outNum == 0 || inNum == 0 {
		return nil, nil, errNoEndpoint
	}

	out, err := intf.OutEndpoint(outNum)
	if err != nil {
		return nil, nil, fmt.Errorf("usbtmc: out endpoint: %w", err)
	}

	in, err := intf.InEndpoint(inNum)
	if err != nil {
		return nil, nil, fmt.Errorf("usbtmc: in endpoint: %w", err)
	}

	return out, in, nil
}

func (h *handle) Close() error {
	var errs []error

	if h.intf != nil {
		h.intf.Close()
	}

	if h.cfg != nil {
		errs = append(errs, h.cfg.Close())
	}

	if h.dev != nil {
		errs = append(errs, h.dev.Close())
	}

	if h.ctx != nil {
		errs = append(errs, h.ctx.Close())
	}

	return errors.Join(errs...)
}
