// Package transport implements the wire framing and message envelopes
// used between the coordinator and participants: a 4-byte little-endian
// length prefix followed by a CBOR-encoded Frame. CBOR was chosen as the
// self-describing, arity-preserving object codec because it lets a Frame
// carry points as plain (x, y) byte strings without a hand-rolled
// length-tagged tuple format.
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// MaxFrameSize bounds the length prefix to guard against a corrupt or
// hostile peer claiming an unbounded allocation.
const MaxFrameSize = 16 << 20 // 16 MiB

// PointBytes is the wire form of a curve point: the full uncompressed
// affine encoding produced by curve.SerializePoint, carried here as a
// plain byte string so this package does not import curve.
type PointBytes []byte

// ScalarBytes is the wire form of a scalar mod q: its big-endian bytes.
type ScalarBytes []byte

// FromScalar encodes x as ScalarBytes.
func FromScalar(x *big.Int) ScalarBytes {
	if x == nil {
		return nil
	}
	return ScalarBytes(x.Bytes())
}

// ToScalar decodes ScalarBytes back to a *big.Int, or nil if b is empty
// (the wire encoding of s_i = bottom).
func (b ScalarBytes) ToScalar() *big.Int {
	if len(b) == 0 {
		return nil
	}
	return new(big.Int).SetBytes(b)
}

// Kind discriminates the three frame kinds. KindNonceSubmission carries
// both participant -> coordinator messages (initial nonce and sign
// response), so the three kinds cover four message shapes.
type Kind uint8

const (
	KindInit Kind = iota
	KindSignRequest
	KindNonceSubmission
)

// InitBody is the coordinator -> participant init message: body =
// (X_point, i, sk_i).
type InitBody struct {
	X  PointBytes `cbor:"x"`
	I  uint64     `cbor:"i"`
	Sk ScalarBytes `cbor:"sk"`
}

// SignRequestBody is the coordinator -> participant sign request: body =
// (msg, T, pre=(D,E), is_malicious). IsMalicious is a benchmark
// simulation input only; a production deployment omits it.
type SignRequestBody struct {
	Msg         []byte     `cbor:"msg"`
	T           []uint64   `cbor:"t"`
	PreD        PointBytes `cbor:"pre_d"`
	PreE        PointBytes `cbor:"pre_e"`
	IsMalicious bool       `cbor:"is_malicious"`
}

// NonceSubmissionBody covers both participant -> coordinator messages:
// the initial nonce post-init (S is nil) and the sign response (S set).
type NonceSubmissionBody struct {
	I    uint64      `cbor:"i"`
	S    ScalarBytes `cbor:"s,omitempty"`
	PreD PointBytes  `cbor:"pre_d"`
	PreE PointBytes  `cbor:"pre_e"`
}

// Frame is the envelope every message is wrapped in: (run_id, body).
// Exactly one of the body fields is populated, selected by Kind.
type Frame struct {
	RunID           uint64               `cbor:"run_id"`
	Kind            Kind                 `cbor:"kind"`
	Init            *InitBody            `cbor:"init,omitempty"`
	SignRequest     *SignRequestBody     `cbor:"sign_request,omitempty"`
	NonceSubmission *NonceSubmissionBody `cbor:"nonce_submission,omitempty"`
}

// WriteFrame encodes f as CBOR and writes it to w prefixed by its
// 4-byte little-endian length.
func WriteFrame(w io.Writer, f Frame) error {
	payload, err := cbor.Marshal(f)
	if err != nil {
		return fmt.Errorf("transport: encoding frame: %w", err)
	}
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("transport: frame of %d bytes exceeds max %d", len(payload), MaxFrameSize)
	}

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(payload)))

	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("transport: writing length prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("transport: writing payload: %w", err)
	}
	return nil
}

// Conn wraps a raw byte stream (a net.Conn, or a net.Pipe half in tests)
// with framed Frame send/receive, the one suspension point spec.md §5
// identifies for "reading an object from a connection".
type Conn struct {
	rwc io.ReadWriteCloser
	r   *bufio.Reader
}

// NewConn wraps rwc for framed Frame exchange.
func NewConn(rwc io.ReadWriteCloser) *Conn {
	return &Conn{rwc: rwc, r: bufio.NewReader(rwc)}
}

// Send writes one frame, blocking until fully written.
func (c *Conn) Send(f Frame) error {
	return WriteFrame(c.rwc, f)
}

// Recv blocks until one full frame has been read.
func (c *Conn) Recv() (Frame, error) {
	return ReadFrame(c.r)
}

// Close closes the underlying stream.
func (c *Conn) Close() error {
	return c.rwc.Close()
}

// ReadFrame reads one length-prefixed CBOR frame from r. A zero-length
// prefix signals a clean close and is reported as io.EOF.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Frame{}, err
	}
	n := binary.LittleEndian.Uint32(lenPrefix[:])
	if n == 0 {
		return Frame{}, io.EOF
	}
	if n > MaxFrameSize {
		return Frame{}, fmt.Errorf("transport: frame length %d exceeds max %d", n, MaxFrameSize)
	}

	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, fmt.Errorf("transport: reading payload: %w", err)
	}

	var f Frame
	if err := cbor.Unmarshal(payload, &f); err != nil {
		return Frame{}, fmt.Errorf("transport: decoding frame: %w", err)
	}
	return f, nil
}
