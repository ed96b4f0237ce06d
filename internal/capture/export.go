package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	// cssPixelsPerInch converts capture pixels to physical page units.
	cssPixelsPerInch = 96.0
	mmPerInch        = 25.4
	// maxPageMM is the largest page edge the PDF format allows (14400pt);
	// bigger captures are scaled down to fit rather than truncated.
	maxPageMM = 5080.0
)

// EncodePNG writes the capture as PNG.
func EncodePNG(img image.Image, w io.Writer) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("capture: encode png: %w", err)
	}
	return nil
}

// DataURL encodes the capture as a PNG data URL for the bridge protocol.
func DataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(img, &buf); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ExportPDF writes the capture as a single-page PDF sized to the image.
// Captures exceeding the format's page-size ceiling are scaled down
// uniformly. Errors are returned as-is; the caller must surface them and
// never swap in a different output format unannounced.
func ExportPDF(img image.Image, w io.Writer) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("capture: encode pdf image: %w", err)
	}

	wMM := float64(img.Bounds().Dx()) * mmPerInch / cssPixelsPerInch
	hMM := float64(img.Bounds().Dy()) * mmPerInch / cssPixelsPerInch
	if wMM <= 0 || hMM <= 0 {
		return fmt.Errorf("capture: empty image")
	}
	scale := 1.0
	if wMM > maxPageMM {
		scale = maxPageMM / wMM
	}
	if hMM*scale > maxPageMM {
		scale = maxPageMM / hMM
	}
	wMM *= scale
	hMM *= scale

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: wMM, Ht: hMM},
	})
	pdf.AddPage()
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("capture", opts, &buf)
	pdf.ImageOptions("capture", 0, 0, wMM, hMM, false, opts, 0, "")
	if pdf.Err() {
		return fmt.Errorf("capture: build pdf: %w", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("capture: write pdf: %w", err)
	}
	return nil
}
