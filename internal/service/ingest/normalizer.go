// internal/service/ingest/normalizer.go

package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"legisdash/internal/domain/dataset"
)

const (
	CharsetUTF8        = "utf-8"
	CharsetWindows1252 = "windows-1252"
	CharsetLatin1      = "iso-8859-1"
)

// Options controls how a raw upload is decoded
type Options struct {
	Kind      dataset.Kind
	Delimiter rune
	Charset   string
}

// withDefaults fills the delimiter and charset for the kind
func (o Options) withDefaults() Options {
	if o.Kind == "" {
		o.Kind = dataset.KindLegislators
	}
	if o.Delimiter == 0 {
		if o.Kind == dataset.KindPosts {
			o.Delimiter = ';'
		} else {
			o.Delimiter = ','
		}
	}
	o.Charset = strings.ToLower(strings.TrimSpace(o.Charset))
	if o.Charset == "" || o.Charset == "utf8" {
		o.Charset = CharsetUTF8
	}
	return o
}

// Result is the outcome of a successful normalization
type Result struct {
	Table    dataset.Table
	Warnings []dataset.ParseError
}

type field string

const (
	fieldName      field = "name"
	fieldParty     field = "party"
	fieldRegion    field = "region"
	fieldHandle    field = "handle"
	fieldFollowers field = "followers_twitter"
	fieldLikes     field = "likes_instagram"
	fieldViews     field = "views_tiktok"
	fieldDate      field = "timestamp"
	fieldNetwork   field = "network"
	fieldTotal     field = "total_engagement"
	fieldLink      field = "post_link"
	fieldMessage   field = "message"
)

var headerAliases = map[string]field{
	"nome_deputado":        fieldName,
	"nome":                 fieldName,
	"name":                 fieldName,
	"partido":              fieldParty,
	"party":                fieldParty,
	"uf":                   fieldRegion,
	"region":               fieldRegion,
	"usuario_x":            fieldHandle,
	"perfil_x":             fieldHandle,
	"twitter_handle":       fieldHandle,
	"seguidores_twitter":   fieldFollowers,
	"followers_twitter":    fieldFollowers,
	"curtidas_instagram":   fieldLikes,
	"likes_instagram":      fieldLikes,
	"visualizacoes_tiktok": fieldViews,
	"views_tiktok":         fieldViews,
	"data":                 fieldDate,
	"data_post":            fieldDate,
	"date":                 fieldDate,
	"timestamp":            fieldDate,
	"rede":                 fieldNetwork,
	"rede_social":          fieldNetwork,
	"network":              fieldNetwork,
	"engajamento_total":    fieldTotal,
	"engajamento":          fieldTotal,
	"total_engagement":     fieldTotal,
	"link_post":            fieldLink,
	"link":                 fieldLink,
	"post_link":            fieldLink,
	"mensagem":             fieldMessage,
	"texto":                fieldMessage,
	"message":              fieldMessage,
}

// legacyAliases only apply when no canonical header maps to the same field.
// seguidores_x comes from upstream joins that suffix the followers column.
var legacyAliases = map[string]field{
	"seguidores_x": fieldFollowers,
}

var metricFields = []struct {
	field  field
	column dataset.Column
}{
	{fieldFollowers, dataset.ColumnFollowersTwitter},
	{fieldLikes, dataset.ColumnLikesInstagram},
	{fieldViews, dataset.ColumnViewsTiktok},
	{fieldTotal, dataset.ColumnTotalEngagement},
}

// Normalize decodes a delimited upload into a table. Row-level problems are
// recovered and reported as warnings. When the file cannot be decoded at all
// the returned error is a *dataset.LoadError and Result holds an empty table.
func Normalize(raw []byte, opts Options) (Result, error) {
	opts = opts.withDefaults()
	empty := Result{Table: dataset.Empty(opts.Kind)}

	text, err := decode(raw, opts.Charset)
	if err != nil {
		return empty, err
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return empty, &dataset.LoadError{Reason: "file is empty"}
	}
	if line, open := unterminatedQuote(text, opts.Delimiter); open {
		return empty, &dataset.LoadError{Reason: fmt.Sprintf("unterminated quoted field starting on line %d", line)}
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.Comma = opts.Delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return empty, &dataset.LoadError{Reason: "unable to read header row", Err: err}
	}
	index := mapHeader(header)

	if _, ok := index[fieldName]; !ok && opts.Kind == dataset.KindLegislators {
		return empty, &dataset.LoadError{Reason: "missing required column nome_deputado"}
	}

	var sourced []dataset.Column
	for _, m := range metricFields {
		if m.column == dataset.ColumnTotalEngagement && opts.Kind != dataset.KindPosts {
			continue
		}
		if _, ok := index[m.field]; ok {
			sourced = append(sourced, m.column)
		}
	}

	var (
		records  []dataset.Record
		warnings []dataset.ParseError
	)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return empty, &dataset.LoadError{Reason: "unable to read rows", Err: err}
			}
			warnings = append(warnings, dataset.ParseError{Line: pe.StartLine, Reason: pe.Err.Error()})
			continue
		}

		line, _ := reader.FieldPos(0)
		if len(row) != len(header) {
			warnings = append(warnings, dataset.ParseError{
				Line:   line,
				Reason: fmt.Sprintf("row has %d fields, header has %d", len(row), len(header)),
			})
		}

		rec, rowWarnings := buildRecord(row, index, opts.Kind, line)
		warnings = append(warnings, rowWarnings...)
		records = append(records, rec)
	}

	return Result{
		Table:    dataset.NewTable(opts.Kind, records, sourced),
		Warnings: warnings,
	}, nil
}

// decode converts raw bytes into UTF-8 text without a byte order mark
func decode(raw []byte, charset string) ([]byte, error) {
	var text []byte
	switch charset {
	case CharsetUTF8:
		if !utf8.Valid(raw) {
			return nil, &dataset.LoadError{Reason: "file is not valid UTF-8"}
		}
		text = raw
	case CharsetWindows1252, "cp1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &dataset.LoadError{Reason: "unable to decode windows-1252", Err: err}
		}
		text = out
	case CharsetLatin1, "latin1":
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &dataset.LoadError{Reason: "unable to decode iso-8859-1", Err: err}
		}
		text = out
	default:
		return nil, &dataset.LoadError{Reason: fmt.Sprintf("unsupported charset %q", charset)}
	}
	return bytes.TrimPrefix(text, []byte("\xef\xbb\xbf")), nil
}

// unterminatedQuote reports the line of a quoted field that is still open at
// the end of the input. The reader would otherwise fold every later row into
// that one field.
func unterminatedQuote(text []byte, delim rune) (int, bool) {
	var (
		line       = 1
		openedAt   int
		inQuotes   bool
		fieldStart = true
	)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRune(text[i:])
		i += size

		if inQuotes {
			switch r {
			case '"':
				if i < len(text) && text[i] == '"' {
					i++
					continue
				}
				inQuotes = false
			case '\n':
				line++
			}
			continue
		}

		switch {
		case r == '\n':
			line++
			fieldStart = true
		case r == delim:
			fieldStart = true
		case r == '"' && fieldStart:
			inQuotes = true
			openedAt = line
			fieldStart = false
		case fieldStart && (r == ' ' || r == '\t'):
			// leading space is trimmed before the opening quote
		default:
			fieldStart = false
		}
	}
	return openedAt, inQuotes
}

// mapHeader resolves header cells to field positions. The first occurrence of
// a field wins.
func mapHeader(header []string) map[field]int {
	index := make(map[field]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if f, ok := headerAliases[key]; ok {
			if _, seen := index[f]; !seen {
				index[f] = i
			}
		}
	}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if f, ok := legacyAliases[key]; ok {
			if _, seen := index[f]; !seen {
				index[f] = i
			}
		}
	}
	return index
}

func buildRecord(row []string, index map[field]int, kind dataset.Kind, line int) (dataset.Record, []dataset.ParseError) {
	get := func(f field) (string, bool) {
		i, ok := index[f]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}
	text := func(f field) string {
		v, _ := get(f)
		return v
	}

	var warnings []dataset.ParseError
	rec := dataset.Record{
		Name:   text(fieldName),
		Party:  text(fieldParty),
		Region: text(fieldRegion),
		Handle: strings.TrimPrefix(text(fieldHandle), "@"),
	}

	for _, m := range metricFields {
		c := m.column
		if c == dataset.ColumnTotalEngagement && kind != dataset.KindPosts {
			continue
		}
		raw, ok := get(m.field)
		if !ok {
			continue
		}
		v, clean := coerceInt(raw)
		if !clean {
			warnings = append(warnings, dataset.ParseError{
				Line:   line,
				Column: string(c),
				Value:  raw,
				Reason: "not a non-negative number, using 0",
			})
		}
		rec = rec.SetMetric(c, v)
	}

	if kind == dataset.KindPosts {
		rec.Network = text(fieldNetwork)
		rec.PostLink = text(fieldLink)
		rec.Message = text(fieldMessage)

		raw := text(fieldDate)
		ts, ok := parseDate(raw)
		if !ok {
			warnings = append(warnings, dataset.ParseError{
				Line:   line,
				Column: string(fieldDate),
				Value:  raw,
				Reason: "unrecognized date",
			})
		}
		rec.Timestamp = ts
	}

	return rec, warnings
}
