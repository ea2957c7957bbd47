// Package handoff carries the start stamp of a tracked command from the child
// process back to its supervisor. The channel is a pipe used for exactly one
// delivery: the child writes, exits or execs, and the parent reads until EOF.
package handoff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/srodi/track/pkg/types"
)

const (
	frameStart   byte = 'S'
	frameFailure byte = 'F'

	// maxField keeps a failure frame well under PIPE_BUF so it is written atomically.
	maxField = 1024
)

var (
	// ErrUnsupported is returned on platforms without pipe2/CLOCK_MONOTONIC.
	ErrUnsupported = errors.New("start channel requires linux")
	// ErrNoStart means the child never delivered its start stamp.
	ErrNoStart = errors.New("no start stamp received from child")
	// ErrMalformed means the wire held bytes that do not form a frame.
	ErrMalformed = errors.New("malformed handoff frame")
)

// SetupFailure is what the child reports when it could not become the target.
type SetupFailure struct {
	Executable string
	Errno      syscall.Errno
	Reason     string
}

// Delivery is everything the child sent.
type Delivery struct {
	Start   *types.Stamp
	Failure *SetupFailure
}

// Channel is the parent's handle on the pipe. Both ends are owned by the parent
// and released by Close.
type Channel struct {
	mu sync.Mutex
	r  *os.File
	w  *os.File

	once     sync.Once
	delivery Delivery
	err      error
}

func newChannel(r, w *os.File) *Channel {
	return &Channel{r: r, w: w}
}

// ChildEnd returns the write end to hand to the child, nil once released.
func (c *Channel) ChildEnd() *os.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w
}

// ReleaseChildEnd closes the parent's copy of the write end. After the child
// exits nothing holds the write end, so Receive sees EOF.
func (c *Channel) ReleaseChildEnd() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.w == nil {
		return nil
	}
	err := c.w.Close()
	c.w = nil
	return err
}

// Receive reads the delivery. Only the first call touches the pipe; later calls
// return the same result.
func (c *Channel) Receive() (Delivery, error) {
	c.once.Do(func() {
		if err := c.ReleaseChildEnd(); err != nil {
			c.err = fmt.Errorf("releasing write end: %w", err)
			return
		}
		c.mu.Lock()
		r := c.r
		c.mu.Unlock()
		if r == nil {
			c.err = os.ErrClosed
			return
		}
		data, err := io.ReadAll(r)
		if err != nil {
			c.err = fmt.Errorf("reading start channel: %w", err)
			return
		}
		c.delivery, c.err = decode(data)
	})
	return c.delivery, c.err
}

// Close releases both ends. It is safe to call more than once.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.w != nil {
		err = errors.Join(err, c.w.Close())
		c.w = nil
	}
	if c.r != nil {
		err = errors.Join(err, c.r.Close())
		c.r = nil
	}
	return err
}

// Sender is the child's side of the channel.
type Sender struct {
	w io.Writer
}

// NewSender wraps the inherited write end.
func NewSender(w io.Writer) *Sender {
	return &Sender{w: w}
}

// SendStart writes the start stamp as a single frame.
func (s *Sender) SendStart(stamp types.Stamp) error {
	var frame [9]byte
	frame[0] = frameStart
	binary.LittleEndian.PutUint64(frame[1:], uint64(stamp))
	return s.write(frame[:])
}

// SendFailure reports that the target could not be launched.
func (s *Sender) SendFailure(f SetupFailure) error {
	exe := clip(f.Executable)
	reason := clip(f.Reason)

	var buf bytes.Buffer
	buf.WriteByte(frameFailure)
	_ = binary.Write(&buf, binary.LittleEndian, int32(f.Errno))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(exe)))
	buf.WriteString(exe)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(reason)))
	buf.WriteString(reason)
	return s.write(buf.Bytes())
}

func (s *Sender) write(frame []byte) error {
	n, err := s.w.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

func clip(s string) string {
	if len(s) > maxField {
		return s[:maxField]
	}
	return s
}

func decode(data []byte) (Delivery, error) {
	var d Delivery
	r := bytes.NewReader(data)
	for {
		kind, err := r.ReadByte()
		if err == io.EOF {
			return d, nil
		}
		switch kind {
		case frameStart:
			var v uint64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return d, fmt.Errorf("%w: start frame: %w", ErrMalformed, err)
			}
			stamp := types.Stamp(int64(v))
			d.Start = &stamp
		case frameFailure:
			f, err := decodeFailure(r)
			if err != nil {
				return d, fmt.Errorf("%w: failure frame: %w", ErrMalformed, err)
			}
			d.Failure = &f
		default:
			return d, fmt.Errorf("%w: unknown frame type %q", ErrMalformed, kind)
		}
	}
}

func decodeFailure(r *bytes.Reader) (SetupFailure, error) {
	var f SetupFailure
	var errno int32
	if err := binary.Read(r, binary.LittleEndian, &errno); err != nil {
		return f, err
	}
	f.Errno = syscall.Errno(errno)

	exe, err := readField(r)
	if err != nil {
		return f, err
	}
	reason, err := readField(r)
	if err != nil {
		return f, err
	}
	f.Executable = exe
	f.Reason = reason
	return f, nil
}

func readField(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
