// Copyright (c) 2023 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sgasync implements the engine's channel capability on the
// Linux sg driver's asynchronous interface: write(2) of an sg_io_hdr
// submits a tagged command, read(2) retrieves a completion, and
// SG_GET_NUM_WAITING reports readiness. One Channel per worker; the fd
// is opened non-blocking and deliberately kept out of the Go runtime
// poller so EAGAIN stays visible to the engine.
package sgasync

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/dswarbrick/smart/ioctl"
	"golang.org/x/sys/unix"

	"github.com/open-storage-tools/go-sg-tools/pkg/engine"
	"github.com/open-storage-tools/go-sg-tools/pkg/sgio"
)

// pending pins the memory one in-flight command needs: the sg driver
// holds the CDB and sense pointers from submission until the
// completion is read back.
type pending struct {
	cdb   []byte
	sense []byte
	buf   []byte
	hdr   sgio.Hdr
}

// Channel is one open sg device connection.
type Channel struct {
	fd      int
	device  string
	forced  bool // SG_SET_FORCE_PACK_ID currently enabled
	pending map[int]*pending
}

var _ engine.Channel = (*Channel)(nil)

// Open opens an sg device node for asynchronous use. reserve, when
// positive, sizes the driver's reserved transfer buffer; the driver's
// current reserve is the channel's acceptance limit.
func Open(device string, reserve int) (*Channel, error) {
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	c := &Channel{fd: fd, device: device, pending: make(map[int]*pending)}
	if _, err := sgio.Version(uintptr(fd)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%s: %w", device, err)
	}
	if reserve > 0 {
		r := int32(reserve)
		if err := ioctl.Ioctl(uintptr(fd), sgio.SG_SET_RESERVED_SIZE, uintptr(unsafe.Pointer(&r))); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("%s: set reserved size: %w", device, err)
		}
	}
	return c, nil
}

// Opener returns an engine.OpenFunc binding the reserve size.
func Opener(reserve int) engine.OpenFunc {
	return func(device string) (engine.Channel, error) {
		return Open(device, reserve)
	}
}

// Submit hands one tagged command to the driver.
func (c *Channel) Submit(cmd *engine.Command) error {
	p := &pending{sense: make([]byte, sgio.SENSE_BUF_LEN), buf: cmd.Buf}

	dir := sgio.DirNone
	switch cmd.Op {
	case engine.OpRead:
		cdb := sgio.Read16(cmd.LBA, uint32(cmd.Blocks))
		p.cdb = cdb[:]
		dir = sgio.DirFromDevice
	case engine.OpWrite:
		cdb := sgio.Write16(cmd.LBA, uint32(cmd.Blocks))
		p.cdb = cdb[:]
		dir = sgio.DirToDevice
	default:
		cdb := sgio.TestUnitReady()
		p.cdb = cdb[:]
	}

	timeoutMs := uint32(sgio.DEFAULT_TIMEOUT)
	if cmd.Timeout > 0 {
		timeoutMs = uint32(cmd.Timeout / time.Millisecond)
	}
	p.hdr = sgio.NewHdr(p.cdb, dir, cmd.Buf, p.sense, timeoutMs)
	p.hdr.PackID = int32(cmd.PackID)
	if cmd.NoXfer {
		p.hdr.Flags |= sgio.SG_FLAG_NO_DXFER
	}

	n, err := unix.Write(c.fd, p.hdr.Bytes())
	if err != nil {
		return mapSubmitErrno(err)
	}
	if n != len(p.hdr.Bytes()) {
		return fmt.Errorf("short sg write: %d bytes", n)
	}
	c.pending[cmd.PackID] = p
	return nil
}

// Complete retrieves one finished command. expectID > 0 forces the
// driver to hand back that pack id and nothing else.
func (c *Channel) Complete(expectID int) (engine.Completion, error) {
	if err := c.setForced(expectID > 0); err != nil {
		return engine.Completion{}, err
	}
	var hdr sgio.Hdr
	hdr.PackID = -1
	if expectID > 0 {
		hdr.PackID = int32(expectID)
	}
	n, err := unix.Read(c.fd, hdr.Bytes())
	if err != nil {
		if err == unix.EAGAIN {
			return engine.Completion{}, engine.ErrNotReady
		}
		return engine.Completion{}, fmt.Errorf("sg read: %w", err)
	}
	if n != len(hdr.Bytes()) {
		return engine.Completion{}, fmt.Errorf("short sg read: %d bytes", n)
	}

	id := int(hdr.PackID)
	p, ok := c.pending[id]
	if !ok {
		return engine.Completion{}, fmt.Errorf("completion for unknown pack id %d", id)
	}
	delete(c.pending, id)

	comp := engine.Completion{
		PackID:   id,
		Duration: time.Duration(hdr.Duration) * time.Millisecond,
	}
	comp.Outcome, comp.Detail = classify(&hdr, p.sense)
	return comp, nil
}

// Waiting reports how many completions the driver has ready.
func (c *Channel) Waiting() (int, error) {
	var n int32
	if err := ioctl.Ioctl(uintptr(c.fd), sgio.SG_GET_NUM_WAITING, uintptr(unsafe.Pointer(&n))); err != nil {
		return 0, err
	}
	return int(n), nil
}

// MaxTransfer reports the driver's reserved buffer size, the per-fd
// acceptance limit for one command's transfer.
func (c *Channel) MaxTransfer() (int, error) {
	return sgio.ReservedSize(uintptr(c.fd))
}

// Wait blocks in poll(2) until a completion is readable or the timeout
// elapses. A timeout is not an error; the caller simply retries.
func (c *Channel) Wait(timeout time.Duration) error {
	fds := []unix.PollFd{{Fd: int32(c.fd), Events: unix.POLLIN}}
	_, err := unix.Poll(fds, int(timeout/time.Millisecond))
	if err == unix.EINTR {
		return nil
	}
	return err
}

func (c *Channel) Close() error {
	return unix.Close(c.fd)
}

func (c *Channel) setForced(want bool) error {
	if c.forced == want {
		return nil
	}
	v := int32(0)
	if want {
		v = 1
	}
	if err := ioctl.Ioctl(uintptr(c.fd), sgio.SG_SET_FORCE_PACK_ID, uintptr(unsafe.Pointer(&v))); err != nil {
		return fmt.Errorf("force pack id: %w", err)
	}
	c.forced = want
	return nil
}

func mapSubmitErrno(err error) error {
	switch err {
	case unix.EAGAIN:
		return engine.ErrAgain
	case unix.EBUSY:
		return engine.ErrBusy
	case unix.E2BIG:
		return engine.ErrTooLarge
	case unix.EDOM:
		return engine.ErrDomain
	}
	return fmt.Errorf("sg write: %w", err)
}

// classify maps a completed header onto the engine's outcome taxonomy.
func classify(hdr *sgio.Hdr, sense []byte) (engine.Outcome, string) {
	if hdr.Ok() {
		return engine.OutcomeClean, ""
	}
	if hdr.SbLenWr > 0 {
		s := sgio.ParseSense(sense[:hdr.SbLenWr])
		switch {
		case s.Benign():
			return engine.OutcomeRecovered, ""
		case s.Key == sgio.KeyUnitAttention:
			return engine.OutcomeUnitAttention,
				fmt.Sprintf("unit attention asc=%#02x ascq=%#02x", s.ASC, s.ASCQ)
		default:
			return engine.OutcomeError,
				fmt.Sprintf("sense key=%#02x asc=%#02x ascq=%#02x", s.Key, s.ASC, s.ASCQ)
		}
	}
	return engine.OutcomeError, fmt.Sprintf("status=%#02x host=%#02x driver=%#02x",
		hdr.Status, hdr.HostStatus, hdr.DriverStatus)
}
