package listener

import (
	"fmt"
	"strconv"
	"strings"

	"flyto/internal/geo"
)

type Command struct {
	Name string
	Args []string
}

var known = map[string]bool{
	"fly": true, "check": true, "status": true, "cancel": true,
	"targets": true, "vehicle": true, "help": true, "exit": true,
}

// ParseCommand splits an operator line into a command and its arguments.
// "quit" is accepted for "exit".
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	name := strings.ToLower(fields[0])
	if name == "quit" {
		name = "exit"
	}
	if !known[name] {
		return Command{}, fmt.Errorf("unknown command %q, try 'help'", fields[0])
	}
	return Command{Name: name, Args: fields[1:]}, nil
}

// TargetArg resolves the arguments of fly and check. No arguments selects
// the default target, one is a catalog name, three are lat lon alt.
func (c Command) TargetArg() (name string, point *geo.GeoPoint, err error) {
	switch len(c.Args) {
	case 0:
		return "", nil, nil
	case 1:
		return c.Args[0], nil, nil
	case 3:
		var vals [3]float64
		for i, a := range c.Args {
			v, err := strconv.ParseFloat(a, 64)
			if err != nil {
				return "", nil, fmt.Errorf("invalid coordinate %q", a)
			}
			vals[i] = v
		}
		p := geo.GeoPoint{Lat: vals[0], Lon: vals[1], Alt: vals[2]}
		if err := p.ValidateTarget(); err != nil {
			return "", nil, err
		}
		return "", &p, nil
	}
	return "", nil, fmt.Errorf("usage: %s [name | lat lon alt]", c.Name)
}

const Help = `Commands:
  fly [name | lat lon alt]    queue a mission (asks for confirmation)
  check [name | lat lon alt]  run pre-flight checks only
  status                      list missions
  cancel [id]                 cancel a mission, or the running one
  targets                     list catalog targets
  vehicle                     show current vehicle telemetry
  exit                        quit`
