package dfhost

import (
	"strings"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/portals"
)

// NewCommand returns the /portalgun command.
func NewCommand() cmd.Command {
	return cmd.New("portalgun", "Portal gun tools.", []string{"pg"},
		giveCommand{}, terminalCommand{}, rechargeCommand{})
}

// giveCommand gives the source a new portal gun.
type giveCommand struct {
	Give    cmd.SubCommand     `cmd:"give"`
	Charged cmd.Optional[bool] `cmd:"charged"`
}

// Run implements cmd.Runnable.
func (c giveCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, h := Command(src)
	if p == nil || h == nil {
		o.Error("Player-only command")
		return
	}
	charged, ok := c.Charged.Load()
	if !ok {
		charged = true
	}
	if _, err := p.Inventory().AddItem(NewGunItem(charged)); err != nil {
		o.Errorf("No room for a portal gun: %v", err)
		return
	}
	o.Print("§aGave a portal gun.")
}

// terminalCommand runs a line in the terminal of the held gun.
type terminalCommand struct {
	Term cmd.SubCommand `cmd:"term"`
	Line cmd.Varargs    `cmd:"command"`
}

// Run implements cmd.Runnable.
func (c terminalCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, h := Command(src)
	if p == nil || h == nil {
		o.Error("Player-only command")
		return
	}
	gunID, _, ok := heldGun(p)
	if !ok || gunID == 0 {
		o.Error("Hold a portal gun that has been used at least once.")
		return
	}
	user := h.user(p)
	line := string(c.Line)

	h.host.post(func() {
		out, err := h.host.engine.Terminal(user, gunID, line)
		if err != nil {
			h.host.world.Message(h.id, "§c"+err.Error())
			return
		}
		if out.Text != "" {
			h.host.world.Message(h.id, out.Text)
		}
	})
}

// rechargeCommand applies a fluid tube to the held gun.
type rechargeCommand struct {
	Recharge cmd.SubCommand       `cmd:"recharge"`
	Tube     cmd.Optional[string] `cmd:"tube"`
}

// Run implements cmd.Runnable.
func (c rechargeCommand) Run(src cmd.Source, o *cmd.Output, tx *world.Tx) {
	p, h := Command(src)
	if p == nil || h == nil {
		o.Error("Player-only command")
		return
	}
	gunID, _, ok := heldGun(p)
	if !ok || gunID == 0 {
		o.Error("Hold a portal gun that has been used at least once.")
		return
	}
	name, _ := c.Tube.Load()
	tube, ok := parseTube(name)
	if !ok {
		o.Errorf("Unknown tube %q, use charged, empty or bootleg.", name)
		return
	}

	h.host.post(func() {
		e := h.host.engine
		g, err := e.RechargeGun(gunID, tube, e.Config().MaxCharge)
		if err != nil {
			h.host.world.Message(h.id, "§c"+err.Error())
			return
		}
		h.host.world.Message(h.id, "Charge: §a"+portals.ChargeLabel(g, e.Config().MaxCharge))
	})
}

func parseTube(s string) (portals.Tube, bool) {
	switch strings.ToLower(s) {
	case "", "charged":
		return portals.TubeCharged, true
	case "empty":
		return portals.TubeEmpty, true
	case "bootleg":
		return portals.TubeBootleg, true
	}
	return 0, false
}
