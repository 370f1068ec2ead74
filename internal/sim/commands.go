package sim

type CommandType string

const (
	CmdSetMode CommandType = "mode"
	CmdArm     CommandType = "arm"
	CmdTakeoff CommandType = "takeoff"
	CmdGoTo    CommandType = "goto"
)

type Command interface {
	Type() CommandType
}

type SetModeCommand struct {
	Mode Mode `json:"mode"`
}

func (c SetModeCommand) Type() CommandType { return CmdSetMode }

type ArmCommand struct{}

func (c ArmCommand) Type() CommandType { return CmdArm }

type TakeoffCommand struct {
	Alt float64 `json:"alt"`
}

func (c TakeoffCommand) Type() CommandType { return CmdTakeoff }

type GoToCommand struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

func (c GoToCommand) Type() CommandType { return CmdGoTo }
