// Package xbrl extracts financial-statement facts from XBRL instance documents
// filed on EDINET.
package xbrl

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

const xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"

// Document is a parsed XBRL instance. It is immutable once ParseDocument
// returns and may be shared between goroutines.
type Document struct {
	// Namespaces maps prefixes declared on the root element to their URIs.
	Namespaces map[string]string

	contexts []rawContext
	units    []rawUnit
	elements []Element
	byLocal  map[string][]int
}

// Element is one fact element: anything carrying a contextRef attribute.
type Element struct {
	Namespace  string
	Local      string
	ContextRef string
	UnitRef    string
	Text       string
	HasText    bool
	Nil        bool
}

// Amount parses the element text. Missing or nil text is a ValueParseError.
func (e Element) Amount() (int64, error) {
	if e.Nil || !e.HasText {
		return 0, &ValueParseError{Text: e.Text}
	}
	return ParseAmount(e.Text)
}

type explicitMember struct {
	Dimension string `xml:"dimension,attr"`
	Value     string `xml:",chardata"`
}

type rawPeriod struct {
	Instant   *string `xml:"instant"`
	StartDate *string `xml:"startDate"`
	EndDate   *string `xml:"endDate"`
}

type rawContext struct {
	ID       string           `xml:"id,attr"`
	Period   *rawPeriod       `xml:"period"`
	Scenario []explicitMember `xml:"scenario>explicitMember"`
	Segment  []explicitMember `xml:"entity>segment>explicitMember"`
}

type rawUnit struct {
	ID           string   `xml:"id,attr"`
	Measures     []string `xml:"measure"`
	Numerators   []string `xml:"divide>unitNumerator>measure"`
	Denominators []string `xml:"divide>unitDenominator>measure"`
}

type rawText struct {
	Text string `xml:",chardata"`
}

// ParseDocumentBytes parses an in-memory XBRL instance.
func ParseDocumentBytes(data []byte) (*Document, error) {
	return ParseDocument(bytes.NewReader(data))
}

// ParseDocument reads an XBRL instance. Malformed XML yields a
// *DocumentParseError.
func ParseDocument(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "xbrl: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}

	doc := &Document{
		Namespaces: make(map[string]string),
		byLocal:    make(map[string][]int),
	}

	sawRoot := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &DocumentParseError{Err: err}
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !sawRoot {
			sawRoot = true
			for _, a := range se.Attr {
				if a.Name.Space == "xmlns" {
					doc.Namespaces[a.Name.Local] = a.Value
				}
			}
			continue
		}

		if contextRef, ok := attr(se, "", "contextRef"); ok {
			if err := doc.decodeFact(decoder, se, contextRef); err != nil {
				return nil, &DocumentParseError{Err: err}
			}
			continue
		}

		switch se.Name.Local {
		case "context":
			var c rawContext
			if err := decoder.DecodeElement(&c, &se); err != nil {
				return nil, &DocumentParseError{Err: err}
			}
			doc.contexts = append(doc.contexts, c)
		case "unit":
			var u rawUnit
			if err := decoder.DecodeElement(&u, &se); err != nil {
				return nil, &DocumentParseError{Err: err}
			}
			doc.units = append(doc.units, u)
		}
	}

	if !sawRoot {
		return nil, &DocumentParseError{Err: eris.New("no root element")}
	}
	return doc, nil
}

func (d *Document) decodeFact(decoder *xml.Decoder, se xml.StartElement, contextRef string) error {
	var body rawText
	if err := decoder.DecodeElement(&body, &se); err != nil {
		return err
	}

	unitRef, _ := attr(se, "", "unitRef")
	nilValue, ok := attr(se, xsiNamespace, "nil")
	if !ok {
		nilValue, _ = attr(se, "xsi", "nil")
	}
	text := strings.TrimSpace(body.Text)

	d.byLocal[se.Name.Local] = append(d.byLocal[se.Name.Local], len(d.elements))
	d.elements = append(d.elements, Element{
		Namespace:  se.Name.Space,
		Local:      se.Name.Local,
		ContextRef: strings.TrimSpace(contextRef),
		UnitRef:    strings.TrimSpace(unitRef),
		Text:       text,
		HasText:    text != "",
		Nil:        strings.EqualFold(nilValue, "true"),
	})
	return nil
}

// Elements returns the fact elements with the given local name in document
// order.
func (d *Document) Elements(local string) []Element {
	idx := d.byLocal[local]
	out := make([]Element, len(idx))
	for i, n := range idx {
		out[i] = d.elements[n]
	}
	return out
}

// AccountingStandard returns the text of the AccountingStandardsDEI fact,
// "N/A" when the document has none, or "Error" when it carries no readable
// value.
func (d *Document) AccountingStandard() string {
	els := d.Elements("AccountingStandardsDEI")
	if len(els) == 0 {
		return AccountingStandardNA
	}
	if els[0].Nil || !els[0].HasText {
		return AccountingStandardError
	}
	return els[0].Text
}

// Markers returned by Document.AccountingStandard.
const (
	AccountingStandardNA    = "N/A"
	AccountingStandardError = "Error"
)

func attr(se xml.StartElement, space, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == local && a.Name.Space == space {
			return a.Value, true
		}
	}
	return "", false
}
