package dataset

import (
	"encoding/binary"
	"fmt"
	"io"
)

// IDX magic numbers. The first two bytes are zero, the third is the element
// type (0x08 for unsigned bytes) and the fourth the number of dimensions.
const (
	idxImagesMagic = 0x00000803 // 2051, u8 x 3 dims
	idxLabelsMagic = 0x00000801 // 2049, u8 x 1 dim
)

// maxIDXBytes bounds the payload a header may announce.
const maxIDXBytes = 1 << 30

// ReadIDXImages reads an IDX image file.
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes (28)
//	number of cols: 4 bytes (28)
//	pixel data: unsigned bytes (0-255)
//
// At most limit images are read when limit > 0.
func ReadIDXImages(r io.Reader, limit int) (images [][]byte, rows, cols int, err error) {
	var header [4]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: header: %w", ErrInvalidIDX, err)
	}
	if header[0] != idxImagesMagic {
		return nil, 0, 0, fmt.Errorf("%w: magic number %#08x, want %#08x", ErrInvalidIDX, header[0], idxImagesMagic)
	}

	count, rows, cols := int(header[1]), int(header[2]), int(header[3])
	if rows == 0 || cols == 0 {
		return nil, 0, 0, fmt.Errorf("%w: %dx%d images", ErrInvalidIDX, rows, cols)
	}
	if limit > 0 && count > limit {
		count = limit
	}
	imageSize := rows * cols
	if uint64(count)*uint64(imageSize) > maxIDXBytes {
		return nil, 0, 0, fmt.Errorf("%w: %d images of %d bytes", ErrTooLarge, count, imageSize)
	}

	images = make([][]byte, count)
	for i := range images {
		images[i] = make([]byte, imageSize)
		if _, err := io.ReadFull(r, images[i]); err != nil {
			return nil, 0, 0, fmt.Errorf("failed to read image %d: %w", i, err)
		}
	}
	return images, rows, cols, nil
}

// ReadIDXLabels reads an IDX label file.
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes (0-9)
//
// At most limit labels are read when limit > 0.
func ReadIDXLabels(r io.Reader, limit int) ([]byte, error) {
	var header [2]uint32
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrInvalidIDX, err)
	}
	if header[0] != idxLabelsMagic {
		return nil, fmt.Errorf("%w: magic number %#08x, want %#08x", ErrInvalidIDX, header[0], idxLabelsMagic)
	}

	count := int(header[1])
	if limit > 0 && count > limit {
		count = limit
	}
	if count > maxIDXBytes {
		return nil, fmt.Errorf("%w: %d labels", ErrTooLarge, count)
	}

	labels := make([]byte, count)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}
