package meta

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// A Picture metadata block is for storing pictures associated with the file,
// most commonly cover art from CDs. There may be more than one Picture block in
// a file.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
type Picture struct {
	// The picture type according to the ID3v2 APIC frame; 3 is the front
	// cover. Types above 20 are reserved.
	Type uint32
	// The MIME type string, in printable ASCII characters 0x20-0x7E. The MIME
	// type may also be "-->" to signify that the data part is a URL of the
	// picture instead of the picture data itself.
	MIME string
	// The description of the picture, in UTF-8.
	Desc string
	// The width of the picture in pixels.
	Width uint32
	// The height of the picture in pixels.
	Height uint32
	// The color depth of the picture in bits-per-pixel.
	Depth uint32
	// For indexed-color pictures (e.g. GIF), the number of colors used, or 0 for
	// non-indexed pictures.
	NPalColors uint32
	// The binary picture data.
	Data []byte
}

// parsePicture reads and parses the body of a Picture metadata block.
//
// Picture format (pseudo code):
//
//	type METADATA_BLOCK_PICTURE struct {
//	   type         uint32
//	   mime_length  uint32
//	   mime_string  [mime_length]byte
//	   desc_length  uint32
//	   desc_string  [desc_length]byte
//	   width        uint32
//	   height       uint32
//	   depth        uint32
//	   n_pal_colors uint32
//	   data_length  uint32
//	   data         [data_length]byte
//	}
func (block *Block) parsePicture() error {
	pic := new(Picture)
	if err := binary.Read(block.lr, binary.BigEndian, &pic.Type); err != nil {
		return err
	}
	if pic.Type > 20 {
		return errors.Errorf("meta: reserved picture type %d", pic.Type)
	}
	mime, err := block.readLengthPrefixed(binary.BigEndian)
	if err != nil {
		return err
	}
	pic.MIME = string(mime)
	for _, c := range []byte(pic.MIME) {
		if c < 0x20 || c > 0x7E {
			return errors.Errorf("meta: invalid character in MIME type; expected >= 0x20 and <= 0x7E, got 0x%02X", c)
		}
	}
	desc, err := block.readLengthPrefixed(binary.BigEndian)
	if err != nil {
		return err
	}
	pic.Desc = string(desc)
	dims := []*uint32{&pic.Width, &pic.Height, &pic.Depth, &pic.NPalColors}
	for _, dim := range dims {
		if err := binary.Read(block.lr, binary.BigEndian, dim); err != nil {
			return err
		}
	}
	if pic.Data, err = block.readLengthPrefixed(binary.BigEndian); err != nil {
		return err
	}
	block.Body = pic
	return nil
}
