package archive

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{"gzip magic", []byte{0x1F, 0x8B, 0x08, 0x00}, KindGzip},
		{"zip magic", []byte("PK\x03\x04rest"), KindZip},
		{"plain xml", []byte("<?xml version=\"1.0\"?><Root/>"), KindRaw},
		{"too short", []byte{0x1F}, KindRaw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sniff(tt.data))
		})
	}
}

func TestExtractRaw(t *testing.T) {
	members, err := Extract([]byte("<Root/>"), "PriceFull.xml")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "PriceFull.xml", members[0].InnerName)
	assert.Equal(t, "<Root/>", string(members[0].XML))
}

func TestExtractGzipStripsSuffixRegardlessOfFilenameCase(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("<Root/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	members, err := Extract(buf.Bytes(), "PriceFull.xml.GZ")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "PriceFull.xml", members[0].InnerName)
}

func TestExtractGzipIgnoresMislabeledExtension(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("<Root/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	// Filename claims .zip but bytes are gzip; Sniff must win.
	members, err := Extract(buf.Bytes(), "PriceFull.zip")
	require.NoError(t, err)
	require.Len(t, members, 1)
}

func TestExtractZipSkipsNonXMLAndDirectories(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("Price1.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<Root>one</Root>"))
	require.NoError(t, err)

	w, err = zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("not xml"))
	require.NoError(t, err)

	w, err = zw.Create("nested/Price2.XML")
	require.NoError(t, err)
	_, err = w.Write([]byte("<Root>two</Root>"))
	require.NoError(t, err)

	require.NoError(t, zw.Close())

	members, err := Extract(buf.Bytes(), "ignored.zip")
	require.NoError(t, err)
	require.Len(t, members, 2)

	names := map[string]bool{}
	for _, m := range members {
		names[m.InnerName] = true
	}
	assert.True(t, names["Price1.xml"])
	assert.True(t, names["Price2.XML"])
}

func TestMD5HexIsStableAndContentSensitive(t *testing.T) {
	a := MD5Hex([]byte("hello"))
	b := MD5Hex([]byte("hello"))
	c := MD5Hex([]byte("world"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}
