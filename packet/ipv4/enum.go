package ipv4

const (
	IPICMPv4Protocol IPProtocol = 0x01
	IPTCPProtocol    IPProtocol = 0x06
	IPUDPProtocol    IPProtocol = 0x11
)

const (
	FlagDontFragment  FlagsFragmentOffset = 0x4000
	FlagMoreFragments FlagsFragmentOffset = 0x2000
)

// VHLNoOptions is version 4 with a 20 byte header.
const VHLNoOptions VerIHL = 0x45
