package tcp

import "strings"

type ControlFlag uint8

func (f ControlFlag) String() string {
	var flags []string
	if f.Syn() {
		flags = append(flags, "syn")
	}
	if f.Ack() {
		flags = append(flags, "ack")
	}
	if f.Fin() {
		flags = append(flags, "fin")
	}
	if f.Rst() {
		flags = append(flags, "rst")
	}
	if f.Psh() {
		flags = append(flags, "psh")
	}
	if f.Urg() {
		flags = append(flags, "urg")
	}
	if f.Ecn() {
		flags = append(flags, "ecn")
	}
	if f.Cwr() {
		flags = append(flags, "cwr")
	}
	return strings.Join(flags, "|")
}

func (f ControlFlag) Fin() bool {
	return FIN&f != 0
}

func (f ControlFlag) Syn() bool {
	return SYN&f != 0
}

func (f ControlFlag) Rst() bool {
	return RST&f != 0
}

func (f ControlFlag) Psh() bool {
	return PSH&f != 0
}

func (f ControlFlag) Ack() bool {
	return ACK&f != 0
}

func (f ControlFlag) Urg() bool {
	return URG&f != 0
}

func (f ControlFlag) Ecn() bool {
	return ECN&f != 0
}

func (f ControlFlag) Cwr() bool {
	return CWR&f != 0
}
