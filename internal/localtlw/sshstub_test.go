// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package localtlw

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"sync"
	"testing"

	"golang.org/x/crypto/ssh"
)

// stubResult is the response of sshStub for a command.
type stubResult struct {
	output     string
	exitStatus uint32
	// hang keeps the session open without a response until the client
	// closes it.
	hang bool
	// noStatus closes the session without an exit status.
	noStatus bool
}

// sshStub is a stub implementation of an SSH server for testing.
type sshStub struct {
	t        *testing.T
	commands map[string]stubResult
	listener net.Listener
	done     chan struct{}

	mu       sync.Mutex
	received []string
	conns    int
	released int
}

// startSSHStub starts the server on a local port.
func startSSHStub(t *testing.T, commands map[string]stubResult) *sshStub {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Start ssh stub: %s", err)
	}
	s := &sshStub{
		t:        t,
		commands: commands,
		listener: l,
		done:     make(chan struct{}),
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("Start ssh stub: %s", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("Start ssh stub: %s", err)
	}
	config := &ssh.ServerConfig{NoClientAuth: true}
	config.AddHostKey(signer)
	go s.serve(config)
	t.Cleanup(s.close)
	return s
}

func (s *sshStub) port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *sshStub) close() {
	close(s.done)
	s.listener.Close()
}

func (s *sshStub) commandsReceived() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *sshStub) connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// hangsReleased reports how many hung sessions were closed by the client.
func (s *sshStub) hangsReleased() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *sshStub) serve(config *ssh.ServerConfig) {
	for {
		c, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()
		go s.handleConn(c, config)
	}
}

type execMsg struct {
	Command string
}

type exitStatusMsg struct {
	Status uint32
}

func (s *sshStub) handleConn(c net.Conn, config *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(c, config)
	if err != nil {
		return
	}
	go ssh.DiscardRequests(reqs)
	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			return
		}
		go s.handleSession(channel, requests)
	}
}

func (s *sshStub) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()
	for req := range requests {
		if req.Type != "exec" {
			req.Reply(false, nil)
			continue
		}
		var m execMsg
		if err := ssh.Unmarshal(req.Payload, &m); err != nil {
			req.Reply(false, nil)
			return
		}
		req.Reply(true, nil)
		s.mu.Lock()
		s.received = append(s.received, m.Command)
		s.mu.Unlock()
		r, ok := s.commands[m.Command]
		if !ok {
			r = stubResult{output: "", exitStatus: 127}
		}
		if r.hang {
			for {
				select {
				case <-s.done:
					return
				case _, ok := <-requests:
					if !ok {
						s.mu.Lock()
						s.released++
						s.mu.Unlock()
						return
					}
				}
			}
		}
		channel.Write([]byte(r.output))
		if !r.noStatus {
			channel.SendRequest("exit-status", false, ssh.Marshal(exitStatusMsg{r.exitStatus}))
		}
		return
	}
}
