// internal/service/chart/vegalite.go

package chart

import (
	"fmt"
	"strings"

	"legisdash/internal/domain/dataset"
)

// SchemaURL is the Vega-Lite schema the generated documents conform to
const SchemaURL = "https://vega.github.io/schema/vega-lite/v5.json"

// Spec is a Vega-Lite bar chart document
type Spec struct {
	Schema   string   `json:"$schema"`
	Title    string   `json:"title"`
	Width    string   `json:"width,omitempty"`
	Data     Data     `json:"data"`
	Mark     Mark     `json:"mark"`
	Encoding Encoding `json:"encoding"`
	Params   []Param  `json:"params,omitempty"`
}

type Data struct {
	Values []map[string]interface{} `json:"values"`
}

type Mark struct {
	Type    string `json:"type"`
	Tooltip bool   `json:"tooltip,omitempty"`
}

type Encoding struct {
	X       Channel   `json:"x"`
	Y       Channel   `json:"y"`
	Tooltip []Channel `json:"tooltip,omitempty"`
}

type Channel struct {
	Field string `json:"field"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
	Sort  string `json:"sort,omitempty"`
}

type Param struct {
	Name   string                 `json:"name"`
	Select map[string]interface{} `json:"select"`
	Bind   string                 `json:"bind,omitempty"`
}

var platformTitles = map[dataset.Column]string{
	dataset.ColumnFollowersTwitter: "Seguidores no X",
	dataset.ColumnLikesInstagram:   "Curtidas no Instagram",
	dataset.ColumnViewsTiktok:      "Visualizações no TikTok",
	dataset.ColumnTotalEngagement:  "Engajamento Total",
}

// Title returns the chart title for the top n records by column
func Title(column dataset.Column, n int) string {
	name, ok := platformTitles[column]
	if !ok {
		name = string(column)
	}
	return fmt.Sprintf("Top %d por %s", n, name)
}

// labelTitles are axis titles for the label fields
var labelTitles = map[string]string{
	"name":    "Nome do Deputado",
	"message": "Mensagem",
}

// Bar builds a horizontal bar chart of column per label, bars sorted by value.
// The x axis title is the part of title after "por ", or the column name.
func Bar(t dataset.Table, column dataset.Column, label, title string) Spec {
	xTitle := string(column)
	if _, after, found := strings.Cut(title, "por "); found {
		xTitle = after
	}
	yTitle := labelTitles[label]
	if yTitle == "" {
		yTitle = label
	}

	values := make([]map[string]interface{}, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rec := t.At(i)
		v, _ := rec.Metric(column)
		row := map[string]interface{}{
			label:          labelValue(rec, label, i),
			string(column): v,
			"party":        rec.Party,
			"region":       rec.Region,
		}
		if label == "message" {
			row["full_message"] = rec.Message
			row["post_link"] = rec.PostLink
		}
		values = append(values, row)
	}

	tooltip := []Channel{
		{Field: label, Type: "nominal"},
		{Field: string(column), Type: "quantitative"},
		{Field: "party", Type: "nominal"},
		{Field: "region", Type: "nominal"},
	}
	if label == "message" {
		tooltip[0] = Channel{Field: "full_message", Type: "nominal", Title: labelTitles[label]}
		tooltip = append(tooltip, Channel{Field: "post_link", Type: "nominal"})
	}

	return Spec{
		Schema: SchemaURL,
		Title:  title,
		Width:  "container",
		Data:   Data{Values: values},
		Mark:   Mark{Type: "bar", Tooltip: true},
		Encoding: Encoding{
			X:       Channel{Field: string(column), Type: "quantitative", Title: xTitle},
			Y:       Channel{Field: label, Type: "nominal", Title: yTitle, Sort: "-x"},
			Tooltip: tooltip,
		},
		Params: []Param{{
			Name:   "grid",
			Select: map[string]interface{}{"type": "interval"},
			Bind:   "scales",
		}},
	}
}

// labelValue returns the y axis value of rec at position i. Message labels
// carry the position since posts often share a message prefix.
func labelValue(rec dataset.Record, label string, i int) string {
	switch label {
	case "message":
		msg := truncate(rec.Message, 60)
		if msg == "" {
			msg = "(sem mensagem)"
		}
		return fmt.Sprintf("%d. %s", i+1, msg)
	case "post_link":
		return rec.PostLink
	}
	return rec.Name
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
