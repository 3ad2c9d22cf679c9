/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package transfer

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"sync/atomic"
)

// ChecksumWriter wraps an io.Writer and computes a SHA-256 checksum
// of all data written through it.
type ChecksumWriter struct {
	writer       io.Writer
	hash         hash.Hash
	bytesWritten int64
}

// NewChecksumWriter creates a new ChecksumWriter that writes to the given writer
// while computing a SHA-256 checksum.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		writer: w,
		hash:   sha256.New(),
	}
}

// Write writes data to the underlying writer and updates the checksum.
func (cw *ChecksumWriter) Write(p []byte) (n int, err error) {
	n, err = cw.writer.Write(p)
	if n > 0 {
		// Only the bytes that reached the writer count.
		cw.hash.Write(p[:n])
		atomic.AddInt64(&cw.bytesWritten, int64(n))
	}
	return n, err
}

// SumHex returns the SHA-256 checksum as a hexadecimal string.
func (cw *ChecksumWriter) SumHex() string {
	return hex.EncodeToString(cw.hash.Sum(nil))
}

// BytesWritten returns the total number of bytes written.
func (cw *ChecksumWriter) BytesWritten() int64 {
	return atomic.LoadInt64(&cw.bytesWritten)
}

// ChecksumReader wraps an io.Reader and computes a SHA-256 checksum
// of all data read through it.
type ChecksumReader struct {
	reader    io.Reader
	hash      hash.Hash
	bytesRead int64
}

// NewChecksumReader creates a new ChecksumReader that reads from the given reader
// while computing a SHA-256 checksum.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		reader: r,
		hash:   sha256.New(),
	}
}

// Read reads data from the underlying reader and updates the checksum.
func (cr *ChecksumReader) Read(p []byte) (n int, err error) {
	n, err = cr.reader.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
		atomic.AddInt64(&cr.bytesRead, int64(n))
	}
	return n, err
}

// SumHex returns the SHA-256 checksum as a hexadecimal string.
func (cr *ChecksumReader) SumHex() string {
	return hex.EncodeToString(cr.hash.Sum(nil))
}

// BytesRead returns the total number of bytes read.
func (cr *ChecksumReader) BytesRead() int64 {
	return atomic.LoadInt64(&cr.bytesRead)
}

// ChecksumHex returns the SHA-256 checksum of data in hex.
func ChecksumHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
