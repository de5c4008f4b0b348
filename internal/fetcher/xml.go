package fetcher

import (
	"context"
	"encoding/xml"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// charsetReader decodes non-UTF-8 documents. ArcGIS Server on Windows emits
// manifests and metadata declared as windows-1252 or utf-16.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(input), nil
}

// NewXMLDecoder returns an xml.Decoder that understands the charsets
// ArcGIS emits.
func NewXMLDecoder(r io.Reader) *xml.Decoder {
	d := xml.NewDecoder(r)
	d.CharsetReader = charsetReader
	return d
}

// StreamXML decodes every element with the given local name into T and sends
// it to a channel. Matching ignores namespaces. Both channels are closed when
// processing completes.
func StreamXML[T any](ctx context.Context, r io.Reader, elementName string) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := NewXMLDecoder(r)
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "xml: read token")
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			var item T
			if err := decoder.DecodeElement(&item, &se); err != nil {
				errCh <- eris.Wrapf(err, "xml: decode %s", elementName)
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}
		}
	}()

	return outCh, errCh
}

// FindText returns the text of the first element with the given local name
// nested under an element named parent, or "" when either is missing. Used
// for single-value lookups such as Esri/CreaDate in item metadata.
func FindText(r io.Reader, parent, name string) (string, error) {
	decoder := NewXMLDecoder(r)
	depth := 0
	parentDepth := -1
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return "", nil
		}
		if err != nil {
			return "", eris.Wrap(err, "xml: read token")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if parentDepth < 0 && t.Name.Local == parent {
				parentDepth = depth
				continue
			}
			if parentDepth >= 0 && depth == parentDepth+1 && t.Name.Local == name {
				var text string
				if err := decoder.DecodeElement(&text, &t); err != nil {
					return "", eris.Wrapf(err, "xml: decode %s", name)
				}
				return text, nil
			}
		case xml.EndElement:
			if depth == parentDepth {
				parentDepth = -1
			}
			depth--
		}
	}
}
