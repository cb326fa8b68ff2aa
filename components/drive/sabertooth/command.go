package sabertooth

// https://www.dimensionengineering.com/datasheets/Sabertooth2x60.pdf
type opCode byte

const (
	opMotor1Forward   opCode = 0
	opMotor1Backwards opCode = 1
	opMotor2Forward   opCode = 4
	opMotor2Backwards opCode = 5
	opSerialTimeout   opCode = 14
	opRamping         opCode = 16
)

const maxSpeed = 127

type command struct {
	Address  byte
	Op       byte
	Data     byte
	Checksum byte
}

func newCommand(controllerAddress int, op opCode, data byte) *command {
	sum := byte(controllerAddress) + byte(op) + data
	return &command{
		Address:  byte(controllerAddress),
		Op:       byte(op),
		Data:     data,
		Checksum: sum & 0x7F,
	}
}

func (c *command) toPacket() []byte {
	return []byte{c.Address, c.Op, c.Data, c.Checksum}
}
