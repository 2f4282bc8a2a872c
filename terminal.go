package portals

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TerminalOutput is the response to one terminal line.
type TerminalOutput struct {
	Text string
	// Clear asks the host to clear the terminal screen.
	Clear bool
	// Exit asks the host to close the terminal.
	Exit bool
}

const terminalHelp = `Commands:
  gunconfig              show the gun configuration
  coords                 show your coordinates
  save <name>            save your position as a location
  showlocs               list saved locations
  delloc <name>|-all     delete saved locations
  mode <mode>            fifo, lifo, multi, root or custom
  scale <size>           0.5, 1, 1.5 or 2
  set <option> <on|off>  autoclose, highpressure, safeplacement, fastchange
  reset                  close all portals and restore defaults
  clear                  clear the screen
  exit                   close the terminal`

// Terminal runs one line typed into the gun terminal by user.
func (e *Engine) Terminal(user Entity, gunID int, line string) (TerminalOutput, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return TerminalOutput{}, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "help":
		return TerminalOutput{Text: terminalHelp}, nil
	case "clear":
		return TerminalOutput{Clear: true}, nil
	case "exit":
		return TerminalOutput{Exit: true}, nil
	case "coords":
		l := LocationAt("", user.Dimension, user.Position)
		return TerminalOutput{Text: fmt.Sprintf("X: %d Y: %d Z: %d (%s)", l.X, l.Y, l.Z, user.Dimension)}, nil
	}

	g, err := e.Gun(gunID)
	if err != nil {
		return TerminalOutput{}, err
	}

	switch cmd {
	case "gunconfig":
		return TerminalOutput{Text: describeGun(g, e.Config().MaxCharge)}, nil
	case "showlocs":
		if len(g.SavedLocations) == 0 {
			return TerminalOutput{Text: "No saved locations."}, nil
		}
		var b strings.Builder
		for i, l := range g.SavedLocations {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%d. %s", i+1, l)
		}
		return TerminalOutput{Text: b.String()}, nil
	case "save":
		name := strings.Join(args, " ")
		if name == "" {
			return TerminalOutput{}, errors.New("usage: save <name>")
		}
		l, err := e.SaveLocation(g.ID, user, name)
		if err != nil {
			return TerminalOutput{}, err
		}
		return TerminalOutput{Text: "Saved " + l.String()}, nil
	case "delloc":
		if len(args) == 0 {
			return TerminalOutput{}, errors.New("usage: delloc <name>|-all")
		}
		name := strings.Join(args, " ")
		var n int
		_, err := e.updateGun(g.ID, func(g *Gun) error {
			if name == "-all" {
				n = len(g.SavedLocations)
				g.ClearLocations()
				return nil
			}
			if n = g.DeleteLocationNamed(name); n == 0 {
				return fmt.Errorf("no saved location named %q", name)
			}
			return nil
		})
		if err != nil {
			return TerminalOutput{}, err
		}
		return TerminalOutput{Text: fmt.Sprintf("Deleted %d location(s).", n)}, nil
	case "mode":
		if len(args) != 1 {
			return TerminalOutput{}, errors.New("usage: mode <fifo|lifo|multi|root|custom>")
		}
		m, err := ParseMode(args[0])
		if err != nil {
			return TerminalOutput{}, err
		}
		if _, err := e.ChangeMode(g.ID, m); err != nil {
			return TerminalOutput{}, err
		}
		return TerminalOutput{Text: "Mode: " + m.String()}, nil
	case "scale":
		if len(args) != 1 {
			return TerminalOutput{}, errors.New("usage: scale <0.5|1|1.5|2>")
		}
		s, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return TerminalOutput{}, fmt.Errorf("scale: %w", err)
		}
		if _, err := e.SetScale(g.ID, s); err != nil {
			return TerminalOutput{}, err
		}
		return TerminalOutput{Text: "Scale: " + args[0]}, nil
	case "set":
		if len(args) != 2 {
			return TerminalOutput{}, errors.New("usage: set <option> <on|off>")
		}
		s, err := ParseSetting(strings.ToLower(args[0]))
		if err != nil {
			return TerminalOutput{}, err
		}
		var on bool
		switch strings.ToLower(args[1]) {
		case "on", "true":
			on = true
		case "off", "false":
		default:
			return TerminalOutput{}, fmt.Errorf("expected on or off, got %q", args[1])
		}
		if _, err := e.SetSetting(g.ID, s, on); err != nil {
			return TerminalOutput{}, err
		}
		return TerminalOutput{Text: fmt.Sprintf("%s: %s", s, onOff(on))}, nil
	case "reset":
		if _, err := e.ResetGun(g.ID); err != nil {
			return TerminalOutput{}, err
		}
		return TerminalOutput{Text: "Portal gun reset."}, nil
	}
	return TerminalOutput{}, fmt.Errorf("unknown command %q, type help", cmd)
}

// describeGun formats the configuration of g.
func describeGun(g Gun, maxCharge int) string {
	return fmt.Sprintf(`Portal Gun #%d
Last user: %s
Mode: %s
Charge: %s
Auto close: %s
High pressure: %s
Safe placement: %s
Fast location change: %s
Scale: %s
Portals: %d
Saved locations: %d
Bootleg Fluid: %t`,
		g.ID, g.LastUser, g.Mode, ChargeLabel(g, maxCharge),
		onOff(g.AutoClose), onOff(g.HighPressure), onOff(g.SafePlacement), onOff(g.FastLocationChange),
		strconv.FormatFloat(g.Scale, 'f', -1, 64), len(g.ActivePortals), len(g.SavedLocations), g.Bootlegged)
}

// DescribeGun formats the configuration of gun id.
func (e *Engine) DescribeGun(id int) (string, error) {
	g, err := e.Gun(id)
	if err != nil {
		return "", err
	}
	return describeGun(g, e.Config().MaxCharge), nil
}

// ChargeLabel formats the charge of g as current/max.
func ChargeLabel(g Gun, maxCharge int) string {
	if g.InfiniteCharge {
		return "infinite"
	}
	return fmt.Sprintf("%d/%d", g.Charge, maxCharge)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
