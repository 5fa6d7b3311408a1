package artifact

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/willbeason/crosssell/pkg/errs"
	"github.com/willbeason/crosssell/pkg/scale"
)

// pipelineFormat is bumped whenever the encoded layout of a fitted pipeline
// changes incompatibly.
const pipelineFormat = 1

// Core Deterministic Encoding: the same fitted pipeline always produces the
// same bytes, so its digest identifies it.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("artifact: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("artifact: CBOR decoder initialization failed: " + err.Error())
	}
}

type pipelineFile struct {
	Format int          `cbor:"format"`
	RunID  uuid.UUID    `cbor:"run_id"`
	Steps  []scale.Step `cbor:"steps"`
}

// EncodePipeline serialises a fitted pipeline.
func EncodePipeline(runID uuid.UUID, p *scale.Pipeline) ([]byte, error) {
	data, err := encMode.Marshal(pipelineFile{Format: pipelineFormat, RunID: runID, Steps: p.Steps})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding pipeline: %w", errs.ErrPersistence, err)
	}
	return data, nil
}

// DecodePipeline reverses EncodePipeline.
func DecodePipeline(data []byte) (uuid.UUID, *scale.Pipeline, error) {
	var f pipelineFile
	err := decMode.Unmarshal(data, &f)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: decoding pipeline: %w", errs.ErrPersistence, err)
	}
	if f.Format != pipelineFormat {
		return uuid.Nil, nil, fmt.Errorf("%w: pipeline format %d, want %d", errs.ErrPersistence, f.Format, pipelineFormat)
	}
	if len(f.Steps) == 0 {
		return uuid.Nil, nil, fmt.Errorf("%w: pipeline has no steps", errs.ErrPersistence)
	}
	return f.RunID, &scale.Pipeline{Steps: f.Steps}, nil
}
