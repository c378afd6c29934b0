package cpu

import "fmt"

var (
	cbOpcodes     [256]Opcode
	cbOpcodeNames [256]string
)

// CBOpcodeName returns the mnemonic for a CB-prefixed opcode.
func CBOpcodeName(op uint8) string {
	return cbOpcodeNames[op]
}

func defCB(op int, name string, fn Opcode) {
	cbOpcodes[op] = fn
	cbOpcodeNames[op] = name
}

// buildCBTable fills the CB-prefixed space. The whole page is regular:
// eight rotate/shift rows, then bit test, reset and set against every
// register index. Cycle counts include the prefix fetch.
func buildCBTable() {
	shiftOps := []struct {
		name  string
		apply func(*CPU, uint8) uint8
	}{
		{"RLC", (*CPU).rlc},
		{"RRC", (*CPU).rrc},
		{"RL", (*CPU).rl},
		{"RR", (*CPU).rr},
		{"SLA", (*CPU).sla},
		{"SRA", (*CPU).sra},
		{"SWAP", (*CPU).swap},
		{"SRL", (*CPU).srl},
	}
	for i, shift := range shiftOps {
		apply := shift.apply
		for reg := 0; reg < 8; reg++ {
			r := reg
			cost := 8
			if r == 6 {
				cost = 16
			}
			defCB(i*8+reg, shift.name+" "+r8Names[r], func(c *CPU) int {
				c.writeR8(r, apply(c, c.readR8(r)))
				return cost
			})
		}
	}

	for b := 0; b < 8; b++ {
		for reg := 0; reg < 8; reg++ {
			index, r := b, reg
			mask := uint8(1) << index

			bitCost, rwCost := 8, 8
			if r == 6 {
				bitCost, rwCost = 12, 16
			}
			defCB(0x40+b*8+reg, fmt.Sprintf("BIT %d,%s", b, r8Names[r]), func(c *CPU) int {
				c.bitTest(index, c.readR8(r))
				return bitCost
			})
			defCB(0x80+b*8+reg, fmt.Sprintf("RES %d,%s", b, r8Names[r]), func(c *CPU) int {
				c.writeR8(r, c.readR8(r)&^mask)
				return rwCost
			})
			defCB(0xC0+b*8+reg, fmt.Sprintf("SET %d,%s", b, r8Names[r]), func(c *CPU) int {
				c.writeR8(r, c.readR8(r)|mask)
				return rwCost
			})
		}
	}
}
