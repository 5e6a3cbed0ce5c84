// internal/service/report/export.go

package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"legisdash/internal/domain/dataset"
)

// legislatorHeader mirrors the columns shown in the legislator table
var legislatorHeader = []string{
	"nome_deputado", "partido", "uf",
	"seguidores_twitter", "curtidas_instagram", "visualizacoes_tiktok",
}

// postHeader mirrors the columns shown in the post table
var postHeader = []string{
	"data", "nome_deputado", "partido", "uf", "rede",
	"engajamento_total", "link_post", "mensagem",
}

// ExportFilename returns the download name for a table kind
func ExportFilename(kind dataset.Kind) string {
	if kind == dataset.KindPosts {
		return "dados_posts_filtrados.csv"
	}
	return "dados_deputados_filtrados.csv"
}

// Header returns the exported column names for a table kind
func Header(kind dataset.Kind) []string {
	if kind == dataset.KindPosts {
		return append([]string(nil), postHeader...)
	}
	return append([]string(nil), legislatorHeader...)
}

// WriteCSV writes the displayed columns of t as comma-delimited UTF-8 with a
// header row
func WriteCSV(w io.Writer, t dataset.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(t.Kind())); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		if err := cw.Write(row(t.Kind(), t.At(i))); err != nil {
			return fmt.Errorf("error writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing csv: %w", err)
	}
	return nil
}

func row(kind dataset.Kind, rec dataset.Record) []string {
	if kind == dataset.KindPosts {
		date := ""
		if rec.Timestamp != nil {
			date = rec.Timestamp.Format("2006-01-02 15:04:05")
		}
		return []string{
			date, rec.Name, rec.Party, rec.Region, rec.Network,
			strconv.FormatInt(rec.TotalEngagement, 10), rec.PostLink, rec.Message,
		}
	}
	return []string{
		rec.Name, rec.Party, rec.Region,
		strconv.FormatInt(rec.FollowersTwitter, 10),
		strconv.FormatInt(rec.LikesInstagram, 10),
		strconv.FormatInt(rec.ViewsTiktok, 10),
	}
}
