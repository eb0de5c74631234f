//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFromName(t *testing.T) {
	cases := map[string]string{
		"slip.pdf":       "application/pdf",
		"SLIP.PDF":       "application/pdf",
		"scan.jpg":       "image/jpeg",
		"scan.jpeg":      "image/jpeg",
		"scan.png":       "image/png",
		"scan.tif":       "image/tiff",
		"scan.tiff":      "image/tiff",
		"archive.tar.gz": "application/octet-stream",
		"noext":          "application/octet-stream",
		"":               "application/octet-stream",
	}
	for name, want := range cases {
		assert.Equal(t, want, contentTypeFromName(name), "name=%s", name)
	}
}
