// Package archive sniffs and extracts the containers retailers publish
// price files in. A downloaded file may be raw XML, gzip-compressed XML,
// or a ZIP containing one or more XML members, and retailers are not
// reliable about labeling which: a ".gz" extension sometimes hides a ZIP,
// and vice versa. Extraction sniffs the actual bytes rather than trusting
// the filename.
package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path"
	"strings"
)

// Kind is the detected container format of a downloaded file.
type Kind string

const (
	KindRaw  Kind = "raw"
	KindGzip Kind = "gzip"
	KindZip  Kind = "zip"
)

var (
	gzipMagic = []byte{0x1F, 0x8B}
	zipMagic  = []byte{'P', 'K'}
)

// Sniff inspects the leading bytes of data and reports its container Kind,
// independent of any filename extension. Files that match neither magic
// number are treated as raw XML.
func Sniff(data []byte) Kind {
	if len(data) >= 2 && bytes.Equal(data[:2], gzipMagic) {
		return KindGzip
	}
	if len(data) >= 2 && bytes.Equal(data[:2], zipMagic) {
		return KindZip
	}
	return KindRaw
}

// Member is one named XML payload pulled out of a container.
type Member struct {
	InnerName string
	XML       []byte
}

// Extract sniffs data's container format and returns every XML member it
// holds. A gzip stream yields exactly one member named after filename with
// any .gz suffix stripped. A ZIP yields one member per non-directory entry
// whose name ends in .xml (case-insensitive); other entries are skipped.
// Raw content yields a single member using filename verbatim.
//
// Extraction tolerates mislabeling: the Kind used for extraction always
// comes from Sniff, never from filename's extension.
func Extract(data []byte, filename string) ([]Member, error) {
	switch Sniff(data) {
	case KindGzip:
		return extractGzip(data, filename)
	case KindZip:
		return extractZip(data)
	default:
		return []Member{{InnerName: filename, XML: data}}, nil
	}
}

func extractGzip(data []byte, filename string) ([]Member, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("archive: opening gzip stream: %w", err)
	}
	defer zr.Close()

	xmlBytes, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("archive: reading gzip stream: %w", err)
	}

	name := strings.TrimSuffix(filename, ".gz")
	name = strings.TrimSuffix(name, ".GZ")
	return []Member{{InnerName: name, XML: xmlBytes}}, nil
}

func extractZip(data []byte) ([]Member, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("archive: opening zip: %w", err)
	}

	var members []Member
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if !strings.EqualFold(path.Ext(f.Name), ".xml") {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("archive: opening zip entry %s: %w", f.Name, err)
		}
		xmlBytes, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("archive: reading zip entry %s: %w", f.Name, err)
		}

		members = append(members, Member{InnerName: path.Base(f.Name), XML: xmlBytes})
	}

	return members, nil
}

// MD5Hex returns the hex-encoded MD5 digest of data, used as the
// content-hash half of the orchestrator's dedup key.
func MD5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
