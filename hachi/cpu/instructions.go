package cpu

import "github.com/hachiemu/hachi/hachi/addr"

// --- 8-bit arithmetic -----------------------------------------------------

func (c *CPU) add(value uint8, withCarry bool) {
	carry := uint8(0)
	if withCarry {
		carry = c.carryValue()
	}
	result := uint16(c.a) + uint16(value) + uint16(carry)
	halfResult := c.a&0x0F + value&0x0F + carry

	c.setFlag(zeroFlag, uint8(result) == 0)
	c.setFlag(subFlag, false)
	c.setFlag(halfCarryFlag, halfResult > 0x0F)
	c.setFlag(carryFlag, result > 0xFF)
	c.a = uint8(result)
}

// sub computes A - value - carry, updating flags. The result is stored
// back into A unless store is false (compare).
func (c *CPU) sub(value uint8, withCarry, store bool) {
	carry := uint8(0)
	if withCarry {
		carry = c.carryValue()
	}
	result := int16(c.a) - int16(value) - int16(carry)
	halfResult := int16(c.a&0x0F) - int16(value&0x0F) - int16(carry)

	c.setFlag(zeroFlag, uint8(result) == 0)
	c.setFlag(subFlag, true)
	c.setFlag(halfCarryFlag, halfResult < 0)
	c.setFlag(carryFlag, result < 0)
	if store {
		c.a = uint8(result)
	}
}

func (c *CPU) and(value uint8) {
	c.a &= value
	c.f = 0
	c.setFlag(zeroFlag, c.a == 0)
	c.setFlag(halfCarryFlag, true)
}

func (c *CPU) or(value uint8) {
	c.a |= value
	c.f = 0
	c.setFlag(zeroFlag, c.a == 0)
}

func (c *CPU) xor(value uint8) {
	c.a ^= value
	c.f = 0
	c.setFlag(zeroFlag, c.a == 0)
}

// inc8 increments a byte value, updating every flag except carry.
func (c *CPU) inc8(value uint8) uint8 {
	result := value + 1
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(subFlag, false)
	c.setFlag(halfCarryFlag, value&0x0F == 0x0F)
	return result
}

func (c *CPU) dec8(value uint8) uint8 {
	result := value - 1
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(subFlag, true)
	c.setFlag(halfCarryFlag, value&0x0F == 0)
	return result
}

// daa adjusts A to binary-coded decimal after an addition or
// subtraction, using the sub/half-carry/carry flags left by it.
func (c *CPU) daa() {
	a := c.a
	if c.flag(subFlag) {
		if c.flag(halfCarryFlag) {
			a -= 0x06
		}
		if c.flag(carryFlag) {
			a -= 0x60
		}
	} else {
		if c.flag(halfCarryFlag) || c.a&0x0F > 0x09 {
			a += 0x06
		}
		if c.flag(carryFlag) || c.a > 0x99 {
			a += 0x60
			c.setFlag(carryFlag, true)
		}
	}
	c.a = a
	c.setFlag(zeroFlag, a == 0)
	c.setFlag(halfCarryFlag, false)
}

// --- 16-bit arithmetic ----------------------------------------------------

func (c *CPU) addHL(value uint16) {
	hl := c.hl()
	result := uint32(hl) + uint32(value)
	c.setFlag(subFlag, false)
	c.setFlag(halfCarryFlag, hl&0x0FFF+value&0x0FFF > 0x0FFF)
	c.setFlag(carryFlag, result > 0xFFFF)
	c.setHL(uint16(result))
}

// addSPSigned computes SP plus a signed immediate. Flags come from the
// low-byte addition; zero and sub are always cleared.
func (c *CPU) addSPSigned(offset uint8) uint16 {
	result := c.sp + uint16(int8(offset))
	c.f = 0
	c.setFlag(halfCarryFlag, c.sp&0x0F+uint16(offset)&0x0F > 0x0F)
	c.setFlag(carryFlag, c.sp&0xFF+uint16(offset)&0xFF > 0xFF)
	return result
}

// --- rotates and shifts ---------------------------------------------------
//
// The CB-prefixed variants set the zero flag from the result; the four
// accumulator rotates (RLCA, RLA, RRCA, RRA) always clear it.

func (c *CPU) rlc(value uint8) uint8 {
	result := value<<1 | value>>7
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x80 != 0)
	return result
}

func (c *CPU) rl(value uint8) uint8 {
	result := value<<1 | c.carryValue()
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x80 != 0)
	return result
}

func (c *CPU) rrc(value uint8) uint8 {
	result := value>>1 | value<<7
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) rr(value uint8) uint8 {
	result := value>>1 | c.carryValue()<<7
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) sla(value uint8) uint8 {
	result := value << 1
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x80 != 0)
	return result
}

// sra shifts right keeping the sign bit.
func (c *CPU) sra(value uint8) uint8 {
	result := value>>1 | value&0x80
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) srl(value uint8) uint8 {
	result := value >> 1
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	c.setFlag(carryFlag, value&0x01 != 0)
	return result
}

func (c *CPU) swap(value uint8) uint8 {
	result := value<<4 | value>>4
	c.f = 0
	c.setFlag(zeroFlag, result == 0)
	return result
}

func (c *CPU) bitTest(index int, value uint8) {
	c.setFlag(zeroFlag, value&(1<<index) == 0)
	c.setFlag(subFlag, false)
	c.setFlag(halfCarryFlag, true)
}

// --- control flow ---------------------------------------------------------

func (c *CPU) jumpRelative(taken bool) int {
	offset := int8(c.readImmediate())
	if !taken {
		return 8
	}
	c.pc = uint16(int32(c.pc) + int32(offset))
	return 12
}

func (c *CPU) jumpAbsolute(taken bool) int {
	target := c.readImmediateWord()
	if !taken {
		return 12
	}
	c.pc = target
	return 16
}

func (c *CPU) call(taken bool) int {
	target := c.readImmediateWord()
	if !taken {
		return 12
	}
	c.pushStack(c.pc)
	c.pc = target
	return 24
}

func (c *CPU) ret(conditional, taken bool) int {
	if !taken {
		return 8
	}
	c.pc = c.popStack()
	if conditional {
		return 20
	}
	return 16
}

func (c *CPU) rst(vector uint16) int {
	c.pushStack(c.pc)
	c.pc = vector
	return 16
}

// --- halt and stop --------------------------------------------------------

func halt(c *CPU) int {
	pending := c.bus.Read(addr.IF)&c.bus.Read(addr.IE)&0x1F != 0
	if !c.interruptsEnabled && pending {
		// halt bug: the CPU fails to halt and the next fetch does not
		// advance PC, so the following byte executes twice
		c.haltBug = true
	} else {
		c.halted = true
	}
	return 4
}

func stop(c *CPU) int {
	c.pc++ // stop is encoded with a padding byte
	if !c.bus.TrySpeedSwitch() {
		c.stopped = true
	}
	return 4
}
