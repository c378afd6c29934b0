package cpu

import "fmt"

// Opcode executes one instruction and returns the cycles it consumed.
type Opcode func(*CPU) int

var (
	opcodes     [256]Opcode
	opcodeNames [256]string
)

var r8Names = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
var r16Names = [4]string{"BC", "DE", "HL", "SP"}

// OpcodeName returns the mnemonic for an unprefixed opcode, or "??" for
// an undefined one.
func OpcodeName(op uint8) string {
	if n := opcodeNames[op]; n != "" {
		return n
	}
	return "??"
}

func def(op int, name string, fn Opcode) {
	opcodes[op] = fn
	opcodeNames[op] = name
}

func init() {
	buildRegularBlocks()
	buildIrregulars()
	buildCBTable()
}

// buildRegularBlocks fills the opcode ranges that follow the encoding
// grid: loads and ALU operations addressed by the three-bit register
// index (B, C, D, E, H, L, (HL), A).
func buildRegularBlocks() {
	// LD r,r' (0x40-0x7F, 0x76 is HALT)
	for dst := 0; dst < 8; dst++ {
		for src := 0; src < 8; src++ {
			op := 0x40 + dst*8 + src
			if op == 0x76 {
				continue
			}
			d, s := dst, src
			cost := 4
			if d == 6 || s == 6 {
				cost = 8
			}
			def(op, "LD "+r8Names[d]+","+r8Names[s], func(c *CPU) int {
				c.writeR8(d, c.readR8(s))
				return cost
			})
		}
	}

	// arithmetic/logic on A (0x80-0xBF) plus the immediate forms
	aluOps := []struct {
		name  string
		apply func(*CPU, uint8)
	}{
		{"ADD A,", func(c *CPU, v uint8) { c.add(v, false) }},
		{"ADC A,", func(c *CPU, v uint8) { c.add(v, true) }},
		{"SUB ", func(c *CPU, v uint8) { c.sub(v, false, true) }},
		{"SBC A,", func(c *CPU, v uint8) { c.sub(v, true, true) }},
		{"AND ", func(c *CPU, v uint8) { c.and(v) }},
		{"XOR ", func(c *CPU, v uint8) { c.xor(v) }},
		{"OR ", func(c *CPU, v uint8) { c.or(v) }},
		{"CP ", func(c *CPU, v uint8) { c.sub(v, false, false) }},
	}
	for i, alu := range aluOps {
		apply := alu.apply
		for src := 0; src < 8; src++ {
			s := src
			cost := 4
			if s == 6 {
				cost = 8
			}
			def(0x80+i*8+src, alu.name+r8Names[s], func(c *CPU) int {
				apply(c, c.readR8(s))
				return cost
			})
		}
		def(0xC6+i*8, alu.name+"d8", func(c *CPU) int {
			apply(c, c.readImmediate())
			return 8
		})
	}

	// INC r / DEC r / LD r,d8 (column patterns 0b00rrr100/101/110)
	for reg := 0; reg < 8; reg++ {
		r := reg
		cost, memCost := 4, 12
		rwCost := cost
		if r == 6 {
			rwCost = memCost
		}
		def(0x04+reg*8, "INC "+r8Names[r], func(c *CPU) int {
			c.writeR8(r, c.inc8(c.readR8(r)))
			return rwCost
		})
		def(0x05+reg*8, "DEC "+r8Names[r], func(c *CPU) int {
			c.writeR8(r, c.dec8(c.readR8(r)))
			return rwCost
		})
		ldCost := 8
		if r == 6 {
			ldCost = 12
		}
		def(0x06+reg*8, "LD "+r8Names[r]+",d8", func(c *CPU) int {
			c.writeR8(r, c.readImmediate())
			return ldCost
		})
	}

	// 16-bit register pair column (BC, DE, HL, SP)
	rpGet := [4]func(*CPU) uint16{
		(*CPU).bc, (*CPU).de, (*CPU).hl,
		func(c *CPU) uint16 { return c.sp },
	}
	rpSet := [4]func(*CPU, uint16){
		(*CPU).setBC, (*CPU).setDE, (*CPU).setHL,
		func(c *CPU, v uint16) { c.sp = v },
	}
	for pair := 0; pair < 4; pair++ {
		get, set, name := rpGet[pair], rpSet[pair], r16Names[pair]
		def(0x01+pair*16, "LD "+name+",d16", func(c *CPU) int {
			set(c, c.readImmediateWord())
			return 12
		})
		def(0x03+pair*16, "INC "+name, func(c *CPU) int {
			set(c, get(c)+1)
			return 8
		})
		def(0x09+pair*16, "ADD HL,"+name, func(c *CPU) int {
			c.addHL(get(c))
			return 8
		})
		def(0x0B+pair*16, "DEC "+name, func(c *CPU) int {
			set(c, get(c)-1)
			return 8
		})
	}
}

func buildIrregulars() {
	def(0x00, "NOP", func(c *CPU) int { return 4 })
	def(0x10, "STOP", stop)
	def(0x76, "HALT", halt)

	// accumulator loads through pointer registers
	def(0x02, "LD (BC),A", func(c *CPU) int { c.bus.Write(c.bc(), c.a); return 8 })
	def(0x12, "LD (DE),A", func(c *CPU) int { c.bus.Write(c.de(), c.a); return 8 })
	def(0x22, "LD (HL+),A", func(c *CPU) int {
		c.bus.Write(c.hl(), c.a)
		c.setHL(c.hl() + 1)
		return 8
	})
	def(0x32, "LD (HL-),A", func(c *CPU) int {
		c.bus.Write(c.hl(), c.a)
		c.setHL(c.hl() - 1)
		return 8
	})
	def(0x0A, "LD A,(BC)", func(c *CPU) int { c.a = c.bus.Read(c.bc()); return 8 })
	def(0x1A, "LD A,(DE)", func(c *CPU) int { c.a = c.bus.Read(c.de()); return 8 })
	def(0x2A, "LD A,(HL+)", func(c *CPU) int {
		c.a = c.bus.Read(c.hl())
		c.setHL(c.hl() + 1)
		return 8
	})
	def(0x3A, "LD A,(HL-)", func(c *CPU) int {
		c.a = c.bus.Read(c.hl())
		c.setHL(c.hl() - 1)
		return 8
	})

	// accumulator rotates: unlike the CB forms these always clear Z
	def(0x07, "RLCA", func(c *CPU) int {
		c.a = c.rlc(c.a)
		c.setFlag(zeroFlag, false)
		return 4
	})
	def(0x0F, "RRCA", func(c *CPU) int {
		c.a = c.rrc(c.a)
		c.setFlag(zeroFlag, false)
		return 4
	})
	def(0x17, "RLA", func(c *CPU) int {
		c.a = c.rl(c.a)
		c.setFlag(zeroFlag, false)
		return 4
	})
	def(0x1F, "RRA", func(c *CPU) int {
		c.a = c.rr(c.a)
		c.setFlag(zeroFlag, false)
		return 4
	})

	def(0x08, "LD (a16),SP", func(c *CPU) int {
		address := c.readImmediateWord()
		c.bus.Write(address, uint8(c.sp))
		c.bus.Write(address+1, uint8(c.sp>>8))
		return 20
	})

	// relative jumps
	def(0x18, "JR r8", func(c *CPU) int { return c.jumpRelative(true) })
	def(0x20, "JR NZ,r8", func(c *CPU) int { return c.jumpRelative(!c.flag(zeroFlag)) })
	def(0x28, "JR Z,r8", func(c *CPU) int { return c.jumpRelative(c.flag(zeroFlag)) })
	def(0x30, "JR NC,r8", func(c *CPU) int { return c.jumpRelative(!c.flag(carryFlag)) })
	def(0x38, "JR C,r8", func(c *CPU) int { return c.jumpRelative(c.flag(carryFlag)) })

	def(0x27, "DAA", func(c *CPU) int { c.daa(); return 4 })
	def(0x2F, "CPL", func(c *CPU) int {
		c.a = ^c.a
		c.setFlag(subFlag, true)
		c.setFlag(halfCarryFlag, true)
		return 4
	})
	def(0x37, "SCF", func(c *CPU) int {
		c.setFlag(subFlag, false)
		c.setFlag(halfCarryFlag, false)
		c.setFlag(carryFlag, true)
		return 4
	})
	def(0x3F, "CCF", func(c *CPU) int {
		c.setFlag(subFlag, false)
		c.setFlag(halfCarryFlag, false)
		c.setFlag(carryFlag, !c.flag(carryFlag))
		return 4
	})

	// returns
	def(0xC0, "RET NZ", func(c *CPU) int { return c.ret(true, !c.flag(zeroFlag)) })
	def(0xC8, "RET Z", func(c *CPU) int { return c.ret(true, c.flag(zeroFlag)) })
	def(0xD0, "RET NC", func(c *CPU) int { return c.ret(true, !c.flag(carryFlag)) })
	def(0xD8, "RET C", func(c *CPU) int { return c.ret(true, c.flag(carryFlag)) })
	def(0xC9, "RET", func(c *CPU) int { return c.ret(false, true) })
	def(0xD9, "RETI", func(c *CPU) int {
		c.pc = c.popStack()
		c.interruptsEnabled = true
		return 16
	})

	// stack
	def(0xC1, "POP BC", func(c *CPU) int { c.setBC(c.popStack()); return 12 })
	def(0xD1, "POP DE", func(c *CPU) int { c.setDE(c.popStack()); return 12 })
	def(0xE1, "POP HL", func(c *CPU) int { c.setHL(c.popStack()); return 12 })
	def(0xF1, "POP AF", func(c *CPU) int { c.setAF(c.popStack()); return 12 })
	def(0xC5, "PUSH BC", func(c *CPU) int { c.pushStack(c.bc()); return 16 })
	def(0xD5, "PUSH DE", func(c *CPU) int { c.pushStack(c.de()); return 16 })
	def(0xE5, "PUSH HL", func(c *CPU) int { c.pushStack(c.hl()); return 16 })
	def(0xF5, "PUSH AF", func(c *CPU) int { c.pushStack(c.af()); return 16 })

	// absolute jumps and calls
	def(0xC3, "JP a16", func(c *CPU) int { return c.jumpAbsolute(true) })
	def(0xC2, "JP NZ,a16", func(c *CPU) int { return c.jumpAbsolute(!c.flag(zeroFlag)) })
	def(0xCA, "JP Z,a16", func(c *CPU) int { return c.jumpAbsolute(c.flag(zeroFlag)) })
	def(0xD2, "JP NC,a16", func(c *CPU) int { return c.jumpAbsolute(!c.flag(carryFlag)) })
	def(0xDA, "JP C,a16", func(c *CPU) int { return c.jumpAbsolute(c.flag(carryFlag)) })
	def(0xE9, "JP (HL)", func(c *CPU) int { c.pc = c.hl(); return 4 })
	def(0xCD, "CALL a16", func(c *CPU) int { return c.call(true) })
	def(0xC4, "CALL NZ,a16", func(c *CPU) int { return c.call(!c.flag(zeroFlag)) })
	def(0xCC, "CALL Z,a16", func(c *CPU) int { return c.call(c.flag(zeroFlag)) })
	def(0xD4, "CALL NC,a16", func(c *CPU) int { return c.call(!c.flag(carryFlag)) })
	def(0xDC, "CALL C,a16", func(c *CPU) int { return c.call(c.flag(carryFlag)) })

	for i := 0; i < 8; i++ {
		vector := uint16(i * 8)
		def(0xC7+i*8, fmt.Sprintf("RST %02XH", vector), func(c *CPU) int {
			return c.rst(vector)
		})
	}

	// high-page loads
	def(0xE0, "LDH (a8),A", func(c *CPU) int {
		c.bus.Write(0xFF00+uint16(c.readImmediate()), c.a)
		return 12
	})
	def(0xF0, "LDH A,(a8)", func(c *CPU) int {
		c.a = c.bus.Read(0xFF00 + uint16(c.readImmediate()))
		return 12
	})
	def(0xE2, "LD (C),A", func(c *CPU) int {
		c.bus.Write(0xFF00+uint16(c.c), c.a)
		return 8
	})
	def(0xF2, "LD A,(C)", func(c *CPU) int {
		c.a = c.bus.Read(0xFF00 + uint16(c.c))
		return 8
	})
	def(0xEA, "LD (a16),A", func(c *CPU) int {
		c.bus.Write(c.readImmediateWord(), c.a)
		return 16
	})
	def(0xFA, "LD A,(a16)", func(c *CPU) int {
		c.a = c.bus.Read(c.readImmediateWord())
		return 16
	})

	// stack pointer arithmetic
	def(0xE8, "ADD SP,r8", func(c *CPU) int {
		c.sp = c.addSPSigned(c.readImmediate())
		return 16
	})
	def(0xF8, "LD HL,SP+r8", func(c *CPU) int {
		c.setHL(c.addSPSigned(c.readImmediate()))
		return 12
	})
	def(0xF9, "LD SP,HL", func(c *CPU) int { c.sp = c.hl(); return 8 })

	// interrupt master enable
	def(0xF3, "DI", func(c *CPU) int {
		c.interruptsEnabled = false
		c.eiPending = false
		return 4
	})
	def(0xFB, "EI", func(c *CPU) int {
		c.eiPending = true
		return 4
	})

	def(0xCB, "PREFIX CB", func(c *CPU) int {
		return cbOpcodes[c.readImmediate()](c)
	})

	// 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB-0xED, 0xF4, 0xFC, 0xFD have no
	// instruction; their table entries stay nil and fetching one is fatal.
}
