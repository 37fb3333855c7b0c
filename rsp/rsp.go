/*
 * or1ksim-go - GDB Remote Serial Protocol server
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package rsp implements a GDB Remote Serial Protocol server: a TCP
// accept loop (grounded on the teacher's telnet.Server accept/handle
// goroutine pair) feeding an explicit packet-framing state machine
// ($<payload>#<checksum>, with "}"-escaping) into a command dispatcher
// that reads and writes the simulator's registers and memory.
package rsp

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/openrisc/or1ksim-go/internal/logutil"
)

var rspLog = logutil.ForModule(slog.Default(), "rsp")

// Target is the narrow interface the RSP server needs from the
// simulator core: register/memory access and run control. The core
// package implements it; the server never reaches into cpu.CPU
// directly, keeping the dependency one-directional.
type Target interface {
	ReadReg(n int) uint32
	WriteReg(n int, v uint32)
	ReadMem(addr uint32, n int) ([]byte, bool)
	WriteMem(addr uint32, data []byte) bool
	Continue()
	Step()
	Stop()
	SetBreakpoint(addr uint32) error
	ClearBreakpoint(addr uint32) error
	LastSignal() int
}

// Server listens for a single GDB connection at a time, as or1ksim's
// own RSP server does.
type Server struct {
	listener net.Listener
	target   Target
	wg       sync.WaitGroup
	shutdown chan struct{}
}

// Listen starts the RSP server on addr (host:port).
func Listen(addr string, target Target) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{listener: l, target: target, shutdown: make(chan struct{})}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Stop closes the listener and waits for the accept loop to exit.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()
	s.wg.Wait()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				rspLog.Warn("accept failed", "error", err)
				return
			}
		}
		s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	fsm := &packetFSM{}
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		pkt, ack, ok := fsm.feed(b)
		if ack != 0 {
			conn.Write([]byte{ack})
		}
		if !ok {
			continue
		}
		reply := dispatch(s.target, pkt)
		writePacket(conn, reply)
	}
}

func writePacket(w interface{ Write([]byte) (int, error) }, payload string) {
	w.Write([]byte(frame(payload)))
}

func frame(payload string) string {
	csum := 0
	var escaped []byte
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		if c == '$' || c == '#' || c == '}' || c == '*' {
			escaped = append(escaped, '}', c^0x20)
			csum += int('}') + int(c^0x20)
		} else {
			escaped = append(escaped, c)
			csum += int(c)
		}
	}
	return fmt.Sprintf("$%s#%02x", escaped, csum&0xff)
}
