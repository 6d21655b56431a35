package transport

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sourcegraph/jsonrpc2"
)

// Codec names a wire framing.
type Codec string

const (
	// CodecLine sends one JSON object per line.
	CodecLine Codec = "line"
	// CodecFrame prefixes each JSON object with its 4-byte little-endian length.
	CodecFrame Codec = "frame"
)

// maxFrameSize bounds a single framed message.
const maxFrameSize = 4 << 20

// ParseCodec validates a codec name. Empty selects CodecLine.
func ParseCodec(name string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(name))) {
	case "", CodecLine:
		return CodecLine, nil
	case CodecFrame:
		return CodecFrame, nil
	}
	return "", fmt.Errorf("unknown codec %q", name)
}

// objectCodec returns the codec for c. PlainObjectCodec must be passed by
// value: jsonrpc2 only then keeps one decoder per stream, and a fresh decoder
// per read would drop requests buffered behind the current one.
func (c Codec) objectCodec() jsonrpc2.ObjectCodec {
	if c == CodecFrame {
		return FrameCodec{}
	}
	return jsonrpc2.PlainObjectCodec{}
}

// FrameCodec is a jsonrpc2.ObjectCodec using length-prefixed frames.
type FrameCodec struct{}

func (FrameCodec) WriteObject(stream io.Writer, obj interface{}) error {
	payload, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return WriteFrame(stream, payload)
}

func (FrameCodec) ReadObject(stream *bufio.Reader, v interface{}) error {
	payload, err := ReadFrame(stream)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

// ReadFrame reads a length-prefixed payload from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFrame writes payload to w with a 4-byte little-endian length prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(payload))); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
