// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package parser

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/B1NARY-GR0UP/redolith/metrics"
	"github.com/B1NARY-GR0UP/redolith/oerr"
	"github.com/B1NARY-GR0UP/redolith/pkg/logger"
	"github.com/B1NARY-GR0UP/redolith/pool"
)

const (
	readRetries      = 5
	readRetryBackoff = 100 * time.Millisecond
)

type MessageKind uint8

const (
	_ MessageKind = iota
	// MessageStart is emitted exactly once after successful header validation.
	MessageStart
	// MessageRead carries a chunk filled with Len bytes, Len % block size == 0.
	// Ownership of the chunk moves to the receiver.
	MessageRead
	// MessageEof is emitted exactly once when the file is fully consumed.
	MessageEof
)

// ReaderMessage is the unit of the reader-to-parser channel.
type ReaderMessage struct {
	Kind MessageKind

	// Start
	BlockSize int
	FileSize  int64
	Order     binary.ByteOrder

	// Read
	Chunk pool.Chunk
	Len   int
}

// FsReader streams one redo file into block-aligned chunks. It tolerates
// partial reads and a concurrent producer: only block-multiple prefixes are
// confirmed, the remainder is re-read after a backwards seek.
type FsReader struct {
	logger logger.Logger
	pool   *pool.Pool

	path string
	out  chan<- ReaderMessage
}

func NewFsReader(p *pool.Pool, path string, out chan<- ReaderMessage) *FsReader {
	return &FsReader{
		logger: logger.GetLogger(),
		pool:   p,
		path:   path,
		out:    out,
	}
}

// Run reads the whole file and closes over the channel protocol:
// Start, Read*, Eof. It retries transient I/O with a short constant backoff
// and never rewinds the confirmed offset.
func (r *FsReader) Run(ctx context.Context) error {
	var (
		confirmed int64
		blockSize int
		order     binary.ByteOrder
	)

	// Opening and header validation retry as one unit: a rotating producer
	// may expose a half-written header.
	err := backoff.Retry(func() error {
		file, err := os.Open(r.path)
		if err != nil {
			r.logger.Warnf("can not open redo file %s: %v, retry", r.path, err)
			return err
		}
		defer file.Close()

		blockSize, order, err = r.validateHeader(file)
		if err != nil {
			if oerr.IsParse(err) {
				return backoff.Permanent(err)
			}
			r.logger.Warnf("can not validate redo file header %s: %v, retry", r.path, err)
		}
		return err
	}, newReadBackOff(ctx))
	if err != nil {
		if oerr.IsParse(err) {
			return err
		}
		return oerr.Wrap(err, oerr.FileReading, "can not read redo file %s after %d tries", r.path, readRetries)
	}

	info, err := os.Stat(r.path)
	if err != nil {
		return oerr.Wrap(err, oerr.GetFileMetadata, "can not stat redo file %s", r.path)
	}

	if err = r.send(ctx, ReaderMessage{
		Kind:      MessageStart,
		BlockSize: blockSize,
		FileSize:  info.Size(),
		Order:     order,
	}); err != nil {
		return err
	}

	retry := readRetries
	for {
		progressed, err := r.readPartial(ctx, blockSize, &confirmed)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			retry--
			if retry == 0 {
				return oerr.Wrap(err, oerr.FileReading, "can not read redo file %s after %d tries", r.path, readRetries)
			}
			r.logger.Warnf("error while reading %s: %v, confirmed: %d, retry", r.path, err, confirmed)
			time.Sleep(readRetryBackoff)
			continue
		}
		if progressed {
			retry = readRetries
			continue
		}
		// file exhausted
		r.logger.Debugf("end of redo file %s, confirmed: %d", r.path, confirmed)
		return r.send(ctx, ReaderMessage{Kind: MessageEof})
	}
}

// readPartial opens the file at the confirmed offset and streams full blocks
// until a read yields no whole block. It reports whether any bytes were
// confirmed.
func (r *FsReader) readPartial(ctx context.Context, blockSize int, confirmed *int64) (bool, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return false, oerr.Wrap(err, oerr.FileReading, "can not open redo file %s", r.path)
	}
	defer file.Close()

	if _, err = file.Seek(*confirmed, io.SeekStart); err != nil {
		return false, oerr.Wrap(err, oerr.FileReading, "can not seek redo file %s", r.path)
	}

	var progressed bool
	for {
		chunk := r.pool.Acquire()

		n, err := file.Read(chunk)
		if err != nil && err != io.EOF {
			r.pool.Release(chunk)
			return progressed, oerr.Wrap(err, oerr.FileReading, "can not read redo file %s", r.path)
		}

		if rem := n % blockSize; rem > 0 {
			if _, err = file.Seek(int64(-rem), io.SeekCurrent); err != nil {
				r.pool.Release(chunk)
				return progressed, oerr.Wrap(err, oerr.FileReading, "can not seek redo file %s", r.path)
			}
			n -= rem
		}

		if n == 0 {
			r.pool.Release(chunk)
			return progressed, nil
		}

		if err = r.send(ctx, ReaderMessage{Kind: MessageRead, Chunk: chunk, Len: n}); err != nil {
			r.pool.Release(chunk)
			return progressed, err
		}
		*confirmed += int64(n)
		metrics.BytesRead.Add(float64(n))
		progressed = true
	}
}

// validateHeader reads the 512-byte file descriptor block: endianness from
// the magic at offset 28, block size at offset 20, and the declared block
// count against the physical file size.
func (r *FsReader) validateHeader(file *os.File) (int, binary.ByteOrder, error) {
	buf := make([]byte, 512)
	if _, err := io.ReadFull(file, buf); err != nil {
		return 0, nil, oerr.Wrap(err, oerr.FileReading, "can not read file header of %s", r.path)
	}

	reader := NewByteReader(buf)
	reader.Skip(28)
	magic, _ := reader.ReadU32()
	switch magic {
	case 0x7A7B7C7D:
	case 0x7D7C7B7A:
		reader.SetOrder(binary.BigEndian)
	default:
		return 0, nil, oerr.Parse("unknown magic number in file header, dump:%s", reader.ErrorHexDump(28, 4))
	}

	reader.ResetCursor()
	blockFlag, _ := reader.ReadU8()
	fileType, _ := reader.ReadU8()
	reader.Skip(18)
	blockSize, _ := reader.ReadU32()
	numberOfBlocks, _ := reader.ReadU32()

	if blockFlag != 0 {
		return 0, nil, oerr.Parse("invalid block flag: %d, dump:%s", blockFlag, reader.ErrorHexDump(0, 1))
	}

	valid := (fileType == 0x22 && (blockSize == 512 || blockSize == 1024)) ||
		(fileType == 0x82 && blockSize == 4096)
	if !valid {
		return 0, nil, oerr.Parse("invalid block size: %d for file type 0x%02X, dump:%s", blockSize, fileType, reader.ErrorHexDump(20, 4))
	}

	info, err := file.Stat()
	if err != nil {
		return 0, nil, oerr.Wrap(err, oerr.GetFileMetadata, "can not stat redo file %s", r.path)
	}
	if info.Size() != int64(numberOfBlocks+1)*int64(blockSize) {
		return 0, nil, oerr.Parse("invalid file size: (%d + 1) * %d != %d, dump:%s",
			numberOfBlocks, blockSize, info.Size(), reader.ErrorHexDump(24, 4))
	}

	return int(blockSize), reader.Order(), nil
}

func (r *FsReader) send(ctx context.Context, msg ReaderMessage) error {
	select {
	case r.out <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newReadBackOff(ctx context.Context) backoff.BackOff {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(readRetryBackoff), readRetries-1),
		ctx)
}
