package testtree

import (
	"encoding/xml"
	"html"
	"regexp"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="utf-8"?>`

var backgroundPrefixRe = regexp.MustCompile(`(?i)^(Background:|پیش‌زمینه:)\s*`)

type stepsDoc struct {
	XMLName xml.Name  `xml:"steps"`
	ID      int       `xml:"id,attr"`
	Last    int       `xml:"last,attr"`
	Steps   []stepDoc `xml:"step"`
}

type stepDoc struct {
	ID      int           `xml:"id,attr"`
	Type    string        `xml:"type,attr"`
	Strings []paramString `xml:"parameterizedString"`
}

type paramString struct {
	IsFormatted bool   `xml:"isformatted,attr"`
	Text        string `xml:",chardata"`
}

// StepsXML renders step lines as a Microsoft.VSTS.TCM.Steps document. Each
// line becomes an action step with an empty expected result.
func StepsXML(lines []string) (string, error) {
	doc := stepsDoc{ID: 0, Last: len(lines)}
	for i, l := range lines {
		clean := strings.TrimSpace(backgroundPrefixRe.ReplaceAllString(l, ""))
		doc.Steps = append(doc.Steps, stepDoc{
			ID:   i + 1,
			Type: "ActionStep",
			Strings: []paramString{
				{IsFormatted: true, Text: clean},
				{IsFormatted: true},
			},
		})
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return xmlHeader + string(out), nil
}

type parametersDoc struct {
	XMLName xml.Name   `xml:"parameters"`
	Params  []paramDef `xml:"parametr"`
	Rows    []dataRow  `xml:"data>row"`
}

type paramDef struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

type dataRow struct {
	Items []dataItem `xml:"item"`
}

type dataItem struct {
	Param int    `xml:"param,attr"`
	Value string `xml:",chardata"`
}

// ParametersXML renders an example table as a Microsoft.VSTS.TCM.LocalDataSource
// document. The element is spelled "parametr", which is what the service expects.
func ParametersXML(t *ExampleTable) (string, error) {
	if t == nil {
		return "", nil
	}
	doc := parametersDoc{}
	for i, h := range t.Headers {
		doc.Params = append(doc.Params, paramDef{ID: i + 1, Name: h})
	}
	for _, row := range t.Rows {
		r := dataRow{}
		for i, v := range row {
			r.Items = append(r.Items, dataItem{Param: i + 1, Value: v})
		}
		doc.Rows = append(doc.Rows, r)
	}
	out, err := xml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

const (
	thStyle = "padding: 8px; text-align: left; border: 1px solid #ddd;"
	tdStyle = thStyle
)

// ExamplesHTML renders an example table as the HTML block appended to an
// outline's description.
func ExamplesHTML(t *ExampleTable) string {
	if t == nil || len(t.Headers) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<h3>Examples Table:</h3>\n")
	b.WriteString("<table border='1' style='border-collapse: collapse; width: 100%;'>\n")
	b.WriteString("<tr style='background-color: #f2f2f2;'>\n")
	for _, h := range t.Headers {
		b.WriteString("<th style='" + thStyle + "'>" + html.EscapeString(h) + "</th>\n")
	}
	b.WriteString("</tr>\n")
	for _, row := range t.Rows {
		b.WriteString("<tr>\n")
		for _, v := range row {
			b.WriteString("<td style='" + tdStyle + "'>" + html.EscapeString(v) + "</td>\n")
		}
		b.WriteString("</tr>\n")
	}
	b.WriteString("</table>\n")
	return b.String()
}
