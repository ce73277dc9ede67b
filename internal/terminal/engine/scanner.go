package engine

import (
	"bytes"
	"strconv"
)

type scanState uint8

const (
	stGround scanState = iota
	stEsc
	stCSI
	stOSC
	stOSCEsc
	stString
	stStringEsc
)

// maxControlLen caps the bytes buffered for one control sequence.
const maxControlLen = 4096

// scanner follows just enough of the escape grammar to spot the sequences the
// emulation library leaves unhandled. Its state survives across feeds.
type scanner struct {
	state scanState
	buf   []byte
}

func (s *scanner) enter(st scanState) {
	s.state = st
	s.buf = s.buf[:0]
}

func (s *scanner) add(b byte) {
	if len(s.buf) < maxControlLen {
		s.buf = append(s.buf, b)
	}
}

// csiArgs splits CSI parameter bytes into a private-marker flag and numeric args.
// Missing arguments are returned as -1.
func csiArgs(params []byte) (private bool, args []int) {
	if len(params) > 0 && params[0] == '?' {
		private = true
		params = params[1:]
	}
	if len(params) == 0 {
		return private, nil
	}
	for _, p := range bytes.Split(params, []byte{';'}) {
		n, err := strconv.Atoi(string(p))
		if err != nil {
			n = -1
		}
		args = append(args, n)
	}
	return private, args
}

func argOr(args []int, i, def int) int {
	if i >= len(args) || args[i] <= 0 {
		return def
	}
	return args[i]
}

// oscHyperlink extracts the URI of an OSC 8 payload ("8;params;uri").
func oscHyperlink(payload []byte) (uri string, ok bool) {
	if !bytes.HasPrefix(payload, []byte("8;")) {
		return "", false
	}
	rest := payload[2:]
	i := bytes.IndexByte(rest, ';')
	if i < 0 {
		return "", true
	}
	return string(rest[i+1:]), true
}

// incompleteUTF8Tail returns how many trailing bytes form a truncated UTF-8 sequence.
func incompleteUTF8Tail(b []byte) int {
	for i := 1; i <= 3 && i <= len(b); i++ {
		c := b[len(b)-i]
		if c&0xC0 == 0x80 {
			continue
		}
		var need int
		switch {
		case c&0xE0 == 0xC0:
			need = 2
		case c&0xF0 == 0xE0:
			need = 3
		case c&0xF8 == 0xF0:
			need = 4
		default:
			return 0
		}
		if need > i {
			return i
		}
		return 0
	}
	return 0
}
