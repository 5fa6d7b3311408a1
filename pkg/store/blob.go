package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// blobMagic prefixes every stored blob. Changing it invalidates existing
// stores.
var blobMagic = []byte("xsb1")

const digestSize = 32

var errCorrupt = errors.New("blob corrupt")

// zstd.Encoder and zstd.Decoder are safe for concurrent use with EncodeAll and
// DecodeAll, so one of each is shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("store: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("store: zstd decoder initialization failed: " + err.Error())
	}
}

// seal returns magic | blake3(data) | zstd(data).
func seal(data []byte) []byte {
	digest := blake3.Sum256(data)
	out := make([]byte, 0, len(blobMagic)+digestSize+len(data)/2)
	out = append(out, blobMagic...)
	out = append(out, digest[:]...)
	return zstdEncoder.EncodeAll(data, out)
}

// unseal reverses seal, verifying the digest.
func unseal(blob []byte) ([]byte, error) {
	header := len(blobMagic) + digestSize
	if len(blob) < header || !bytes.Equal(blob[:len(blobMagic)], blobMagic) {
		return nil, fmt.Errorf("%w: bad header", errCorrupt)
	}

	data := []byte{}
	if len(blob) > header {
		var err error
		data, err = zstdDecoder.DecodeAll(blob[header:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd decompress: %w", errCorrupt, err)
		}
	}

	digest := blake3.Sum256(data)
	if !bytes.Equal(digest[:], blob[len(blobMagic):header]) {
		return nil, fmt.Errorf("%w: digest mismatch", errCorrupt)
	}
	return data, nil
}
