package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hachiemu/hachi/hachi/bit"
)

// Load-time fatal conditions. All are detected before any machine state
// is constructed.
var (
	ErrROMTooSmall    = errors.New("image too small")
	ErrUnsupportedMBC = errors.New("unsupported cartridge controller")
	ErrBadROMSize     = errors.New("unknown ROM size code")
	ErrBadRAMSize     = errors.New("unknown RAM size code")
)

// header field offsets
const (
	titleAddress          = 0x0134
	titleLength           = 16
	cgbFlagAddress        = 0x0143
	cartridgeTypeAddress  = 0x0147
	romSizeAddress        = 0x0148
	ramSizeAddress        = 0x0149
	versionNumberAddress  = 0x014C
	headerChecksumAddress = 0x014D
	headerEnd             = 0x0150
)

const (
	romBankSize = 0x4000 // 16KB
	ramBankSize = 0x2000 // 8KB
)

// MBCType identifies the cartridge's bank controller variant. The set is
// closed: an unknown type byte is a load error, not a fallback.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC2Type
	MBC3Type
	MBC5Type
)

func (t MBCType) String() string {
	switch t {
	case NoMBCType:
		return "ROM only"
	case MBC1Type:
		return "MBC1"
	case MBC2Type:
		return "MBC2"
	case MBC3Type:
		return "MBC3"
	case MBC5Type:
		return "MBC5"
	}
	return "unknown"
}

// Cartridge holds a loaded ROM image and its decoded header fields.
type Cartridge struct {
	data []byte

	title        string
	version      uint8
	cgb          bool
	mbcType      MBCType
	romBankCount int
	ramBankCount int
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
}

// NewCartridge creates an empty cartridge, equivalent to powering the
// machine on with nothing inserted. Reads return open-bus 0xFF.
func NewCartridge() *Cartridge {
	data := make([]byte, 2*romBankSize)
	for i := range data {
		data[i] = 0xFF
	}
	return &Cartridge{data: data, romBankCount: 2}
}

// NewCartridgeWithData decodes the image header and validates it.
// Malformed headers and unsupported controller variants are fatal here,
// before any execution begins.
func NewCartridgeWithData(data []byte) (*Cartridge, error) {
	if len(data) < headerEnd {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrROMTooSmall, len(data), headerEnd)
	}

	cart := &Cartridge{
		data:    data,
		title:   cleanTitle(data[titleAddress : titleAddress+titleLength]),
		version: data[versionNumberAddress],
		cgb:     data[cgbFlagAddress]&0x80 != 0,
	}

	if err := cart.decodeType(data[cartridgeTypeAddress]); err != nil {
		return nil, err
	}

	romCode := data[romSizeAddress]
	if romCode > 0x08 {
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadROMSize, romCode)
	}
	cart.romBankCount = 2 << romCode

	if len(data) < cart.romBankCount*romBankSize {
		return nil, fmt.Errorf("%w: %d bytes, header declares %d",
			ErrROMTooSmall, len(data), cart.romBankCount*romBankSize)
	}

	switch data[ramSizeAddress] {
	case 0x00, 0x01:
		cart.ramBankCount = 0
	case 0x02:
		cart.ramBankCount = 1
	case 0x03:
		cart.ramBankCount = 4
	case 0x04:
		cart.ramBankCount = 16
	case 0x05:
		cart.ramBankCount = 8
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadRAMSize, data[ramSizeAddress])
	}

	return cart, nil
}

func (c *Cartridge) decodeType(code byte) error {
	switch code {
	case 0x00:
		c.mbcType = NoMBCType
	case 0x01:
		c.mbcType = MBC1Type
	case 0x02:
		c.mbcType = MBC1Type
	case 0x03:
		c.mbcType = MBC1Type
		c.hasBattery = true
	case 0x05:
		c.mbcType = MBC2Type
	case 0x06:
		c.mbcType = MBC2Type
		c.hasBattery = true
	case 0x0F, 0x10:
		c.mbcType = MBC3Type
		c.hasBattery = true
		c.hasRTC = true
	case 0x11, 0x12:
		c.mbcType = MBC3Type
	case 0x13:
		c.mbcType = MBC3Type
		c.hasBattery = true
	case 0x19, 0x1A:
		c.mbcType = MBC5Type
	case 0x1B:
		c.mbcType = MBC5Type
		c.hasBattery = true
	case 0x1C, 0x1D:
		c.mbcType = MBC5Type
		c.hasRumble = true
	case 0x1E:
		c.mbcType = MBC5Type
		c.hasBattery = true
		c.hasRumble = true
	default:
		return fmt.Errorf("%w: type byte 0x%02X", ErrUnsupportedMBC, code)
	}
	return nil
}

// Title returns the cleaned cartridge title.
func (c *Cartridge) Title() string { return c.title }

// CGB reports whether the header requests color-model hardware.
func (c *Cartridge) CGB() bool { return c.cgb }

// Type returns the decoded bank controller variant.
func (c *Cartridge) Type() MBCType { return c.mbcType }

// ROMBanks returns the number of physical 16KB ROM banks.
func (c *Cartridge) ROMBanks() int { return c.romBankCount }

// RAMBanks returns the number of physical 8KB RAM banks.
func (c *Cartridge) RAMBanks() int { return c.ramBankCount }

// HasBattery reports whether external RAM is battery backed.
func (c *Cartridge) HasBattery() bool { return c.hasBattery }

// HeaderChecksumOK recomputes the header checksum over 0x0134-0x014C.
func (c *Cartridge) HeaderChecksumOK() bool {
	var sum byte
	for a := titleAddress; a < headerChecksumAddress; a++ {
		sum = sum - c.data[a] - 1
	}
	return sum == c.data[headerChecksumAddress]
}

// GlobalChecksum returns the declared 16-bit checksum of the whole image.
func (c *Cartridge) GlobalChecksum() uint16 {
	return bit.Combine(c.data[0x014E], c.data[0x014F])
}

// cleanTitle trims trailing NULs and drops non-printable bytes from the
// raw title field.
func cleanTitle(raw []byte) string {
	var b strings.Builder
	for _, ch := range raw {
		if ch == 0 {
			break
		}
		if ch < 0x20 || ch > 0x7E {
			continue
		}
		b.WriteByte(ch)
	}
	return strings.TrimSpace(b.String())
}
