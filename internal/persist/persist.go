// Package persist wraps a dictionary's bit-exact body bytes in a small
// envelope — magic, format version, and a farm checksum — so a corrupt
// or truncated stream is caught at load time instead of surfacing as a
// confusing downstream panic.
package persist

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	farm "github.com/dgryski/go-farm"
)

const (
	magic         = uint32(0xDA7A0001)
	formatVersion = uint32(1)
)

// ErrBadMagic is returned when a stream doesn't start with the expected
// magic number.
var ErrBadMagic = errors.New("persist: bad magic number")

// ErrVersionMismatch is returned when a stream's format version isn't
// one this build knows how to read.
var ErrVersionMismatch = errors.New("persist: unsupported format version")

// ErrChecksumMismatch is returned when the payload's checksum doesn't
// match the envelope header, indicating a corrupt or truncated stream.
var ErrChecksumMismatch = errors.New("persist: checksum mismatch")

// Body is anything that can serialize/deserialize its own bit-exact
// byte layout, matching trie.Trie's WriteTo/ReadFrom shape.
type Body interface {
	WriteTo(w io.Writer) (int64, error)
	ReadFrom(r io.Reader) (int64, error)
}

// Write serializes body into w behind a checksummed envelope.
func Write(w io.Writer, body Body) error {
	var buf bytes.Buffer
	if _, err := body.WriteTo(&buf); err != nil {
		return fmt.Errorf("persist: serialize body: %w", err)
	}
	payload := buf.Bytes()
	sum := farm.Hash64(payload)

	var header [16]byte
	binary.LittleEndian.PutUint32(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], formatVersion)
	binary.LittleEndian.PutUint64(header[8:16], sum)
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("persist: write header: %w", err)
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("persist: write payload length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("persist: write payload: %w", err)
	}
	return nil
}

// Read deserializes a stream written by Write into body, verifying the
// envelope's magic, version, and checksum before handing the payload to
// body.ReadFrom.
func Read(r io.Reader, body Body) error {
	var header [16]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("persist: read header: %w", err)
	}
	gotMagic := binary.LittleEndian.Uint32(header[0:4])
	if gotMagic != magic {
		return ErrBadMagic
	}
	gotVersion := binary.LittleEndian.Uint32(header[4:8])
	if gotVersion != formatVersion {
		return ErrVersionMismatch
	}
	wantSum := binary.LittleEndian.Uint64(header[8:16])

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return fmt.Errorf("persist: read payload length: %w", err)
	}
	payloadLen := binary.LittleEndian.Uint32(lenBuf[:])

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return fmt.Errorf("persist: read payload: %w", err)
	}
	if farm.Hash64(payload) != wantSum {
		return ErrChecksumMismatch
	}
	if _, err := body.ReadFrom(bytes.NewReader(payload)); err != nil {
		return fmt.Errorf("persist: deserialize body: %w", err)
	}
	return nil
}
