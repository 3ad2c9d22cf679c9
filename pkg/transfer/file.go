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

// Package transfer shares classroom files over the session's data channel.
// A file travels as one "file" control message whose payload is a base64
// data URL.
package transfer

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/abrekhov/edunet/pkg/signal"
	log "github.com/sirupsen/logrus"
)

// DefaultMaxFileSize caps shared files. SCTP messages stay reliable well
// above this but the whole file is held in memory on both sides.
const DefaultMaxFileSize int64 = 16 * 1000 * 1000

var (
	// ErrTooLarge is returned for files above the configured cap.
	ErrTooLarge = errors.New("file too large")
	// ErrNotDataURL is returned for a payload that is not a base64 data URL.
	ErrNotDataURL = errors.New("payload is not a base64 data URL")
	// ErrSizeMismatch is returned when the decoded payload disagrees with
	// the announced size.
	ErrSizeMismatch = errors.New("payload size does not match")
)

// Metadata describes a shared file.
type Metadata struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

// Validate checks that the Metadata is valid.
func (m *Metadata) Validate() error {
	if m.Filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}
	if m.Size < 0 {
		return fmt.Errorf("size cannot be negative")
	}

	// filepath.IsAbs is OS-dependent, so Unix-style absolute paths are
	// checked explicitly.
	clean := filepath.Clean(m.Filename)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) || strings.Contains(m.Filename, "..") || strings.HasPrefix(m.Filename, "/") {
		return fmt.Errorf("invalid filename: path traversal not allowed")
	}
	if len(m.Filename) >= 2 && m.Filename[1] == ':' {
		return fmt.Errorf("invalid filename: absolute path not allowed")
	}
	if strings.Contains(m.Filename, "\\") {
		return fmt.Errorf("invalid filename: backslashes not allowed")
	}
	return nil
}

// SafeFilename returns the filename reduced to a plain base name.
func (m *Metadata) SafeFilename() string {
	clean := filepath.Clean(m.Filename)
	clean = strings.ReplaceAll(clean, "\\", "/")
	if len(clean) >= 2 && clean[1] == ':' {
		clean = clean[2:]
	}
	clean = filepath.Base(clean)
	if clean == "" || clean == "." || clean == ".." || clean == "/" {
		return "unnamed"
	}
	return clean
}

// File is a shared file held in memory.
type File struct {
	Metadata
	Data []byte
}

// ReadFile loads path for sharing, refusing directories and files above
// maxSize. A maxSize of zero means DefaultMaxFileSize.
func ReadFile(path string, maxSize int64) (*File, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file")
	}
	if info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %s, limit is %s", ErrTooLarge, info.Name(), FormatSize(info.Size()), FormatSize(maxSize))
	}

	f, err := os.Open(path) // #nosec G304 -- path comes from the local user
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	cr := NewChecksumReader(io.LimitReader(f, maxSize+1))
	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: %s grew past %s", ErrTooLarge, info.Name(), FormatSize(maxSize))
	}

	return &File{
		Metadata: Metadata{
			Filename: filepath.Base(path),
			MimeType: detectMimeType(path, data),
			Checksum: cr.SumHex(),
			Size:     int64(len(data)),
		},
		Data: data,
	}, nil
}

func detectMimeType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

// DataURL renders the content as data:<mime>;base64,<payload>.
func (f *File) DataURL() string {
	mimeType := f.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Message wraps the file in a "file" control message.
func (f *File) Message() signal.ControlMessage {
	return signal.FileMessage(f.Filename, f.Size, f.DataURL())
}

// FromMessage decodes a received "file" control message.
func FromMessage(m signal.ControlMessage, maxSize int64) (*File, error) {
	if m.Type != signal.TypeFile {
		return nil, fmt.Errorf("not a file message: %s", m.Type)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if m.Size > maxSize {
		return nil, fmt.Errorf("%w: %s announced %s", ErrTooLarge, m.Name, FormatSize(m.Size))
	}
	mimeType, data, err := parseDataURL(m.Data)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != m.Size {
		return nil, fmt.Errorf("%w: announced %d bytes, got %d", ErrSizeMismatch, m.Size, len(data))
	}

	f := &File{
		Metadata: Metadata{
			Filename: m.Name,
			MimeType: mimeType,
			Checksum: ChecksumHex(data),
			Size:     m.Size,
		},
		Data: data,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

func parseDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrNotDataURL, err)
	}
	if mimeType == "" {
		mimeType = "text/plain"
	}
	return mimeType, data, nil
}

// Save writes the file into dir under its safe name. An existing file is
// never overwritten; a numeric suffix is added instead. It returns the
// path written.
func (f *File) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}

	name := f.SafeFilename()
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 0; ; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, candidate)
		out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- name is sanitized
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}

		cw := NewChecksumWriter(out)
		_, err = io.Copy(cw, bytes.NewReader(f.Data))
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return "", fmt.Errorf("failed to write file: %w", err)
		}
		if f.Checksum != "" && cw.SumHex() != f.Checksum {
			return "", fmt.Errorf("checksum mismatch writing %s", path)
		}
		log.WithFields(log.Fields{
			"path":     path,
			"size":     cw.BytesWritten(),
			"checksum": cw.SumHex(),
		}).Infoln("Saved shared file")
		return path, nil
	}
}
