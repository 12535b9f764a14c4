package mirror

import (
	"bytes"
	"context"
	"image"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/agentstation/metalayer/pkg/constants"
	"github.com/agentstation/metalayer/pkg/errors"
)

// ImageScaler makes PNG thumbnails.
type ImageScaler struct{}

var _ Scaler = ImageScaler{}

// Scale fits the image inside the bounds, never enlarging it.
func (ImageScaler) Scale(_ context.Context, content []byte, maxWidth, maxHeight int) (*Thumbnail, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.NewValidationError("image", nil, "cannot decode image: "+err.Error())
	}
	original := img.Bounds()
	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, errors.WrapIO("encode", "thumbnail", err)
	}
	bounds := thumb.Bounds()
	return &Thumbnail{
		Content:   buf.Bytes(),
		MediaType: constants.MediaPNG,
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Resized:   bounds.Dx() != original.Dx() || bounds.Dy() != original.Dy(),
	}, nil
}
