package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"path"
	"strings"

	_ "image/gif"
	_ "image/png"

	"github.com/dmitrijs2005/inventaire/internal/client/client"
)

const (
	DefaultQuality = 70
	MimeJPEG       = "image/jpeg"
)

// Compressor turns image URIs into upload-ready JPEG payloads.
type Compressor struct {
	src     Source
	quality int
}

func NewCompressor(src Source, quality int) *Compressor {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Compressor{src: src, quality: quality}
}

func (c *Compressor) Compress(ctx context.Context, uri string) (client.ImageData, error) {
	rc, err := c.src.Open(ctx, uri)
	if err != nil {
		return client.ImageData{}, fmt.Errorf("%w: open %s: %v", ErrImageProcessing, uri, err)
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return client.ImageData{}, fmt.Errorf("%w: decode %s: %v", ErrImageProcessing, uri, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.quality}); err != nil {
		return client.ImageData{}, fmt.Errorf("%w: encode %s: %v", ErrImageProcessing, uri, err)
	}

	return client.ImageData{
		Data:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType: MimeJPEG,
		Filename: jpegName(uri),
	}, nil
}

// CompressAll compresses uris in order and stops at the first failure.
func (c *Compressor) CompressAll(ctx context.Context, uris []string) ([]client.ImageData, error) {
	res := make([]client.ImageData, 0, len(uris))
	for _, uri := range uris {
		img, err := c.Compress(ctx, uri)
		if err != nil {
			return nil, err
		}
		res = append(res, img)
	}
	return res, nil
}

func jpegName(uri string) string {
	name := path.Base(strings.ReplaceAll(uri, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	if ext := path.Ext(name); ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return name + ".jpg"
}
