// Package pdfmerge combines PDF byte streams for envelope assembly.
package pdfmerge

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"signbridge/internal/errs"
)

func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	// Generated PDFs from the host print service are not always strictly
	// spec-conformant; relaxed validation matches what viewers accept.
	c.ValidationMode = model.ValidationRelaxed
	return c
}

// Merge appends all pages of first, then all pages of second, into a single
// document. The output page count is the sum of the input page counts.
func Merge(first, second []byte) ([]byte, error) {
	var out bytes.Buffer
	inputs := []io.ReadSeeker{bytes.NewReader(first), bytes.NewReader(second)}
	if err := api.MergeRaw(inputs, &out, false, conf()); err != nil {
		return nil, fmt.Errorf("merge inputs: %v: %w", err, errs.ErrMerge)
	}
	return out.Bytes(), nil
}

// PageCount parses b as a PDF and returns its page count.
func PageCount(b []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(b), conf())
	if err != nil {
		return 0, fmt.Errorf("page count: %v: %w", err, errs.ErrMerge)
	}
	return n, nil
}
