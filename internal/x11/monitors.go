package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
)

// Monitor is an enabled RandR output and the area its CRTC scans out.
type Monitor struct {
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Monitors lists the enabled outputs. Outputs sharing a CRTC (mirroring)
// each get an entry with the same geometry.
func (c *Connection) Monitors() ([]Monitor, error) {
	conn := c.XUtil.Conn()
	resources, err := randr.GetScreenResourcesCurrent(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for _, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 {
			continue
		}
		for _, output := range info.Outputs {
			out, err := randr.GetOutputInfo(conn, output, resources.ConfigTimestamp).Reply()
			if err != nil {
				continue
			}
			monitors = append(monitors, Monitor{
				Name:   string(out.Name),
				X:      int(info.X),
				Y:      int(info.Y),
				Width:  int(info.Width),
				Height: int(info.Height),
			})
		}
	}
	return monitors, nil
}

// MonitorByName returns the active monitor driven by the named output.
func (c *Connection) MonitorByName(name string) (*Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return nil, err
	}
	return findMonitor(monitors, name)
}

// PrimaryMonitorName returns the output name RandR reports as primary.
func (c *Connection) PrimaryMonitorName() (string, error) {
	primary, err := randr.GetOutputPrimary(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return "", fmt.Errorf("failed to get primary output: %w", err)
	}
	if primary.Output == 0 {
		return "", fmt.Errorf("no primary output configured")
	}
	info, err := randr.GetOutputInfo(c.XUtil.Conn(), primary.Output, 0).Reply()
	if err != nil {
		return "", fmt.Errorf("failed to get primary output info: %w", err)
	}
	return string(info.Name), nil
}

func findMonitor(monitors []Monitor, name string) (*Monitor, error) {
	for i := range monitors {
		if monitors[i].Name == name {
			return &monitors[i], nil
		}
	}
	names := make([]string, 0, len(monitors))
	for _, m := range monitors {
		names = append(names, m.Name)
	}
	return nil, fmt.Errorf("monitor %q not found (active: %v)", name, names)
}
