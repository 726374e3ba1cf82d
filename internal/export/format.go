// Package export encodes reports and menus as JSON, XML or PDF.
package export

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatPDF  Format = "pdf"
)

// Root element names of the XML documents.
const (
	RootMenu   = "MenuExport"
	RootDishes = "DishesExport"
	RootDaily  = "DailyRevenueReport"
	RootWeekly = "WeeklyRevenueReport"
)

var ErrUnsupportedFormat = errors.New("unsupported format")

// ParseFormat accepts json, xml and pdf in any case; empty means json.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatXML, FormatPDF:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXML:
		return "application/xml; charset=UTF-8"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/json; charset=UTF-8"
}

// Encode writes v as indented JSON or as an XML document whose root element
// is named root.
func Encode(w io.Writer, f Format, root string, v any) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatXML:
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.EncodeElement(v, xml.StartElement{Name: xml.Name{Local: root}}); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Decode reads a document written by Encode. XML input must use root as its
// top-level element.
func Decode(r io.Reader, f Format, root string, v any) error {
	switch f {
	case FormatJSON:
		return json.NewDecoder(r).Decode(v)
	case FormatXML:
		dec := xml.NewDecoder(r)
		for {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("xml: %w", err)
			}
			se, ok := tok.(xml.StartElement)
			if !ok {
				continue
			}
			if se.Name.Local != root {
				return fmt.Errorf("xml: expected <%s>, got <%s>", root, se.Name.Local)
			}
			return dec.DecodeElement(v, &se)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}
