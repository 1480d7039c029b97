// Copyright 2022 The Chromium OS Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package localtlw

import (
	"bytes"
	"context"
	"io/ioutil"
	"sync"
	"time"

	"go.chromium.org/luci/common/errors"
	"golang.org/x/crypto/ssh"

	"infra/cros/hostrepair/internal/log"
	"infra/cros/hostrepair/tlw"
)

// client is used by sshClientPool to help users close connections.
type client struct {
	*ssh.Client
	// knownGood is used in deciding if the client can be Put back
	// into the pool.
	knownGood bool
}

func (c *client) close() {
	if c.Client == nil {
		return
	}
	c.Close()
	c.Client = nil
}

// sshClientPool is a pool of SSH clients to reuse.
// Clients are pooled by the address they are connected to.
//
// Get returns a client from the pool if available, or creates a new one.
// The user should Put the client back into the pool after use and set
// client.knownGood to true before that if the client is still usable.
// The user should not close the client as sshClientPool will close it.
type sshClientPool struct {
	mu     sync.Mutex
	pool   map[string][]*client
	config *ssh.ClientConfig
}

func newSSHClientPool(c *ssh.ClientConfig) *sshClientPool {
	return &sshClientPool{
		pool:   make(map[string][]*client),
		config: c,
	}
}

// Get returns a client with knownGood as false.
func (p *sshClientPool) Get(addr string) (*client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for n := len(p.pool[addr]) - 1; n >= 0; n-- {
		c := p.pool[addr][n]
		p.pool[addr] = p.pool[addr][:n]
		s, err := c.NewSession()
		if err != nil {
			// This client is probably bad, so close and stop using it.
			go c.close()
			continue
		}
		s.Close()
		c.knownGood = false
		return c, nil
	}
	c, err := ssh.Dial("tcp", addr, p.config)
	if err != nil {
		return nil, errors.Annotate(err, "get ssh client %q", addr).Err()
	}
	return &client{Client: c}, nil
}

// Put puts the client back into the pool if client.knownGood is true.
// Otherwise, the client is closed.
func (p *sshClientPool) Put(addr string, c *client) {
	if c == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.knownGood {
		p.pool[addr] = append(p.pool[addr], c)
	} else {
		c.close()
	}
}

// Close closes every client kept in the pool.
func (p *sshClientPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for addr, cs := range p.pool {
		for _, c := range cs {
			go c.close()
		}
		delete(p.pool, addr)
	}
	return nil
}

// sshConfig creates the client config.
// Without a key file only the "none" auth method is tried.
func sshConfig(user, keyFile string, timeout time.Duration) (*ssh.ClientConfig, error) {
	config := &ssh.ClientConfig{
		User:            user,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}
	if keyFile == "" {
		return config, nil
	}
	b, err := ioutil.ReadFile(keyFile)
	if err != nil {
		return nil, errors.Annotate(err, "ssh config").Err()
	}
	signer, err := ssh.ParsePrivateKey(b)
	if err != nil {
		return nil, errors.Annotate(err, "ssh config: parse key %q", keyFile).Err()
	}
	config.Auth = []ssh.AuthMethod{ssh.PublicKeys(signer)}
	return config, nil
}

// runSSH executes the command line on the host behind the address.
//
// Exit codes below zero report problems of the transport:
//
//	-1 - fail to get a client or create a session.
//	-2 - session finished without exit status.
//	-3 - other errors.
func runSSH(ctx context.Context, pool *sshClientPool, addr, cmd string) *tlw.RunResult {
	r := &tlw.RunResult{Command: cmd, ExitCode: -1}
	c, err := pool.Get(addr)
	if err != nil {
		r.Stderr = err.Error()
		return r
	}
	defer pool.Put(addr, c)
	s, err := c.NewSession()
	if err != nil {
		r.Stderr = errors.Annotate(err, "run ssh %q: create session", addr).Err().Error()
		return r
	}
	defer s.Close()
	var stdout, stderr bytes.Buffer
	s.Stdout = &stdout
	s.Stderr = &stderr
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			// Unblocks Run of a hung command.
			s.Close()
		case <-done:
		}
	}()
	err = s.Run(cmd)
	r.Stdout = stdout.String()
	r.Stderr = stderr.String()
	if ctx.Err() != nil {
		// The session was abandoned, so the client is dropped too.
		r.ExitCode = 124
		r.Stderr = errors.Annotate(ctx.Err(), "run ssh %q", addr).Err().Error()
		log.Debugf(ctx, "Run ssh %q: %q interrupted: %s", addr, cmd, ctx.Err())
		return r
	}
	switch e := err.(type) {
	case nil:
		r.ExitCode = 0
		c.knownGood = true
	case *ssh.ExitError:
		r.ExitCode = e.ExitStatus()
		c.knownGood = true
	case *ssh.ExitMissingError:
		r.ExitCode = -2
		r.Stderr = e.Error()
	default:
		r.ExitCode = -3
		r.Stderr = e.Error()
	}
	log.Debugf(ctx, "Run ssh %q: %q finished with exit code %d", addr, cmd, r.ExitCode)
	return r
}
