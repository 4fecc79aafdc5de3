package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
)

const MAX_IMAGE_SIZE = 10 << 20

var ErrUnsupportedImageType = errors.New("only jpeg & png images are supported")

// Store persists incident images and returns a url the image can be fetched from
type Store interface {
	Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
}

// ImageExtension returns the file extension for a supported image 'contentType'
func ImageExtension(contentType string) (string, error) {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return "jpg", nil
	case "image/png":
		return "png", nil
	}

	return "", ErrUnsupportedImageType
}

// DetectContentType sniffs the type of the image in 'r' from its leading bytes,
// leaving 'r' rewound to the start. The type a client declares is not trusted.
func DetectContentType(r io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("unable to read image: %v", err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("unable to read image: %v", err)
	}

	return http.DetectContentType(head[:n]), nil
}

// ObjectName returns where the image for the incident with 'incidentID' is stored
// e.g. incident_images/42.jpg
func ObjectName(prefix string, incidentID uint, extension string) string {
	if prefix == "" {
		prefix = "incident_images"
	}

	return path.Join(prefix, fmt.Sprintf("%v.%v", incidentID, extension))
}
