package tcp

// Connections are only opened passively from an inbound SYN, so there is no
// LISTEN or SYN_SENT state.
const (
	CLOSED      state = 0
	SYN_RECVD   state = 3
	ESTABLISHED state = 4
	FIN_WAIT1   state = 5
	FIN_WAIT2   state = 6
	CLOSING     state = 7
	TIME_WAIT   state = 8
	CLOSE_WAIT  state = 9
	LAST_ACK    state = 10
)

const (
	// defaultIPv4MSS is used when a SYN carries no MSS option.
	defaultIPv4MSS int    = 536
	maxWindow      uint32 = 0xFFFF
)
