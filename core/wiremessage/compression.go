// Copyright (C) MongoDB, Inc. 2017-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package wiremessage

import (
	"bytes"
	"compress/zlib"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// CompressorID is the ID for each type of Compressor.
type CompressorID uint8

// These constants represent the individual compressor IDs for an OP_COMPRESSED.
const (
	CompressorNoOp CompressorID = iota
	CompressorSnappy
	CompressorZLib
	CompressorZstd
)

// String implements the fmt.Stringer interface.
func (id CompressorID) String() string {
	switch id {
	case CompressorNoOp:
		return "noop"
	case CompressorSnappy:
		return "snappy"
	case CompressorZLib:
		return "zlib"
	case CompressorZstd:
		return "zstd"
	default:
		return "invalid"
	}
}

const (
	// DefaultZlibLevel is the default level for zlib compression
	DefaultZlibLevel = 6
	// DefaultZstdLevel is the default level for zstd compression.
	DefaultZstdLevel = 6
)

// Compressor is the interface implemented by types that can compress and decompress wire messages. This is used
// when sending and receiving messages to and from the server.
type Compressor interface {
	Compress(dst, src []byte) ([]byte, error)
	Decompress(dst, src []byte, size int) ([]byte, error)
	ID() CompressorID
}

// NewCompressor returns the compressor registered under name.
func NewCompressor(name string) (Compressor, error) {
	switch name {
	case "snappy":
		return snappyCompressor{}, nil
	case "zlib":
		return zlibCompressor{level: DefaultZlibLevel}, nil
	case "zstd":
		return zstdCompressor{level: zstd.EncoderLevelFromZstd(DefaultZstdLevel)}, nil
	default:
		return nil, errors.Errorf("unknown compressor %q", name)
	}
}

// CompressorFor returns the compressor that decodes messages tagged with id.
func CompressorFor(id CompressorID) (Compressor, error) {
	if id == CompressorNoOp || id > CompressorZstd {
		return nil, errors.Errorf("unsupported compressor id %d", id)
	}
	return NewCompressor(id.String())
}

type snappyCompressor struct{}

func (snappyCompressor) Compress(dst, src []byte) ([]byte, error) {
	return append(dst, snappy.Encode(nil, src)...), nil
}

func (snappyCompressor) Decompress(dst, src []byte, _ int) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return dst, errors.Wrap(err, "snappy")
	}
	return append(dst, out...), nil
}

func (snappyCompressor) ID() CompressorID { return CompressorSnappy }

type zlibCompressor struct {
	level int
}

func (z zlibCompressor) Compress(dst, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, z.level)
	if err != nil {
		return dst, errors.Wrap(err, "zlib")
	}
	if _, err = w.Write(src); err != nil {
		_ = w.Close()
		return dst, errors.Wrap(err, "zlib")
	}
	if err = w.Close(); err != nil {
		return dst, errors.Wrap(err, "zlib")
	}
	return append(dst, buf.Bytes()...), nil
}

// assume size is the exact size that needs to be read
func (zlibCompressor) Decompress(dst, src []byte, size int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return dst, errors.Wrap(err, "zlib")
	}
	defer func() {
		_ = r.Close()
	}()

	start := len(dst)
	dst = append(dst, make([]byte, size)...)
	if _, err = io.ReadFull(r, dst[start:]); err != nil {
		return dst[:start], errors.Wrap(err, "zlib")
	}
	return dst, nil
}

func (zlibCompressor) ID() CompressorID { return CompressorZLib }

var zstdEncoders sync.Map // zstd.EncoderLevel -> *zstd.Encoder

var zstdDecoder = func() *zstd.Decoder {
	d, _ := zstd.NewReader(nil)
	return d
}()

type zstdCompressor struct {
	level zstd.EncoderLevel
}

func (z zstdCompressor) Compress(dst, src []byte) ([]byte, error) {
	if enc, ok := zstdEncoders.Load(z.level); ok {
		return enc.(*zstd.Encoder).EncodeAll(src, dst), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	if err != nil {
		return dst, errors.Wrap(err, "zstd")
	}
	zstdEncoders.Store(z.level, enc)
	return enc.EncodeAll(src, dst), nil
}

func (zstdCompressor) Decompress(dst, src []byte, _ int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(src, dst)
	if err != nil {
		return dst, errors.Wrap(err, "zstd")
	}
	return out, nil
}

func (zstdCompressor) ID() CompressorID { return CompressorZstd }

// AppendCompressed wraps the complete message wm in an OP_COMPRESSED message.
func AppendCompressed(dst []byte, c Compressor, wm []byte) ([]byte, error) {
	_, reqid, respto, opcode, ok := ParseHeader(wm)
	if !ok {
		return dst, errors.Wrap(ErrMalformed, "cannot compress message without header")
	}
	idx, dst := AppendHeaderStart(dst, reqid, respto, OpCompressed)
	dst = appendi32(dst, int32(opcode))
	dst = appendi32(dst, int32(len(wm)-HeaderLength))
	dst = append(dst, byte(c.ID()))
	dst, err := c.Compress(dst, wm[HeaderLength:])
	if err != nil {
		return dst, err
	}
	return UpdateLength(dst, idx), nil
}

// Decompress unwraps an OP_COMPRESSED message into the message it carries.
// Messages with any other opcode are returned unchanged.
func Decompress(wm []byte) ([]byte, error) {
	_, reqid, respto, opcode, ok := ParseHeader(wm)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "missing header")
	}
	if opcode != OpCompressed {
		return wm, nil
	}
	src := wm[HeaderLength:]
	original, src, ok := readi32(src)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "missing original opcode")
	}
	size, src, ok := readi32(src)
	if !ok || len(src) < 1 {
		return nil, errors.Wrap(ErrMalformed, "missing uncompressed size")
	}
	c, err := CompressorFor(CompressorID(src[0]))
	if err != nil {
		return nil, err
	}

	out := AppendHeader(make([]byte, 0, HeaderLength+int(size)), HeaderLength+size, reqid, respto, OpCode(original))
	out, err = c.Decompress(out, src[1:], int(size))
	if err != nil {
		return nil, err
	}
	if len(out) != HeaderLength+int(size) {
		return nil, errors.Wrapf(ErrMalformed, "decompressed %d bytes, expected %d", len(out)-HeaderLength, size)
	}
	return out, nil
}
