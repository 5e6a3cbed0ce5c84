package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legisdash/internal/domain/dataset"
)

func legislators(t *testing.T, csv string) Result {
	t.Helper()
	res, err := Normalize([]byte(csv), Options{Kind: dataset.KindLegislators})
	require.NoError(t, err)
	return res
}

func TestNormalizeFullLegislatorFile(t *testing.T) {
	res := legislators(t, "nome_deputado,partido,uf,seguidores_twitter,curtidas_instagram,visualizacoes_tiktok\n"+
		"Alice,PA,SP,100,20,3\n"+
		"Bob,PB,SP,50,0,0\n"+
		"Cara,PA,RJ,200,1,1\n")

	tbl := res.Table
	require.Equal(t, 3, tbl.Len())
	assert.Empty(t, res.Warnings)
	assert.Equal(t, dataset.KindLegislators, tbl.Kind())
	assert.Equal(t, dataset.RequiredMetrics, tbl.Sourced())

	alice := tbl.At(0)
	assert.Equal(t, "Alice", alice.Name)
	assert.Equal(t, "PA", alice.Party)
	assert.Equal(t, "SP", alice.Region)
	assert.Equal(t, int64(100), alice.FollowersTwitter)
	assert.Equal(t, int64(20), alice.LikesInstagram)
	assert.Equal(t, int64(3), alice.ViewsTiktok)
	assert.Equal(t, "Cara", tbl.At(2).Name)
}

func TestNormalizeSynthesizesMissingMetrics(t *testing.T) {
	res := legislators(t, "nome_deputado,partido,uf\nAlice,PA,SP\nBob,PB,RJ\n")

	require.Equal(t, 2, res.Table.Len())
	assert.Empty(t, res.Table.Sourced())
	for _, rec := range res.Table.Records() {
		for _, c := range dataset.RequiredMetrics {
			v, ok := rec.Metric(c)
			assert.True(t, ok)
			assert.Zero(t, v, "%s of %s", c, rec.Name)
		}
	}
}

func TestNormalizeCoercesBadValuesToZero(t *testing.T) {
	res := legislators(t, "nome_deputado,partido,uf,seguidores_twitter,curtidas_instagram\n"+
		"Alice,PA,SP,,muitas\n"+
		"Bob,PB,SP,-3,12.7\n")

	alice := res.Table.At(0)
	assert.Zero(t, alice.FollowersTwitter, "empty string normalizes to 0")
	assert.Zero(t, alice.LikesInstagram)

	bob := res.Table.At(1)
	assert.Zero(t, bob.FollowersTwitter)
	assert.Equal(t, int64(12), bob.LikesInstagram)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, 2, res.Warnings[0].Line)
	assert.Equal(t, "likes_instagram", res.Warnings[0].Column)
	assert.Equal(t, "muitas", res.Warnings[0].Value)
	assert.Equal(t, 3, res.Warnings[1].Line)
	assert.Equal(t, "followers_twitter", res.Warnings[1].Column)
}

func TestNormalizeRenamesLegacyFollowersColumn(t *testing.T) {
	res := legislators(t, "nome_deputado,partido,uf,seguidores_x\nAlice,PA,SP,321\n")

	assert.Equal(t, int64(321), res.Table.At(0).FollowersTwitter)
	assert.True(t, res.Table.HasSourced(dataset.ColumnFollowersTwitter))
	assert.False(t, res.Table.HasSourced(dataset.ColumnLikesInstagram))
}

func TestNormalizePrefersCanonicalFollowersColumn(t *testing.T) {
	res := legislators(t, "nome_deputado,seguidores_x,seguidores_twitter\nAlice,1,2\n")
	assert.Equal(t, int64(2), res.Table.At(0).FollowersTwitter)
}

func TestNormalizeHeaderIsCaseAndSpaceInsensitive(t *testing.T) {
	res := legislators(t, "\xef\xbb\xbf Nome_Deputado , UF ,Partido\nAlice,SP,PA\n")

	rec := res.Table.At(0)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, "SP", rec.Region)
	assert.Equal(t, "PA", rec.Party)
}

func TestNormalizeRecoversShortAndLongRows(t *testing.T) {
	res := legislators(t, "nome_deputado,partido,uf,seguidores_twitter\n"+
		"Alice,PA\n"+
		"Bob,PB,SP,10,extra\n")

	require.Equal(t, 2, res.Table.Len())
	assert.Equal(t, "", res.Table.At(0).Region)
	assert.Zero(t, res.Table.At(0).FollowersTwitter)
	assert.Equal(t, int64(10), res.Table.At(1).FollowersTwitter)
	assert.Len(t, res.Warnings, 2)
}

func TestNormalizeReadsHandles(t *testing.T) {
	res := legislators(t, "nome_deputado,usuario_x\nAlice,@alice\nBob,\n")
	assert.Equal(t, "alice", res.Table.At(0).Handle)
	assert.Equal(t, "", res.Table.At(1).Handle)
}

func TestNormalizeLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  []byte
		opts Options
	}{
		{"empty", []byte(""), Options{}},
		{"whitespace", []byte("  \n\n"), Options{}},
		{"invalid utf-8", []byte("nome_deputado\n\xff\xfe\xfd\n"), Options{}},
		{"unknown charset", []byte("nome_deputado\nAna\n"), Options{Charset: "ebcdic"}},
		{"missing name column", []byte("partido,uf\nPA,SP\n"), Options{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Normalize(tc.raw, tc.opts)
			require.Error(t, err)

			var loadErr *dataset.LoadError
			assert.True(t, errors.As(err, &loadErr))
			assert.Equal(t, 0, res.Table.Len())
		})
	}
}

func TestNormalizeDecodesWindows1252(t *testing.T) {
	raw := []byte("nome_deputado,uf\nJos\xe9 Ara\xfajo,SP\n")

	res, err := Normalize(raw, Options{Charset: "windows-1252"})
	require.NoError(t, err)
	assert.Equal(t, "José Araújo", res.Table.At(0).Name)
}

func TestNormalizePosts(t *testing.T) {
	raw := "data;nome_deputado;partido;uf;rede;engajamento_total;link_post;mensagem\n" +
		"2024-03-01;Ana;PA;SP;instagram;150;https://example.com/1;Bom dia\n" +
		"31/12/2024 10:00;Bia;PB;RJ;tiktok;abc;https://example.com/2;\"Feliz; ano novo\"\n" +
		"ontem;Cid;PA;SP;x;10;;\n"

	res, err := Normalize([]byte(raw), Options{Kind: dataset.KindPosts})
	require.NoError(t, err)

	tbl := res.Table
	require.Equal(t, 3, tbl.Len())
	assert.Equal(t, dataset.KindPosts, tbl.Kind())
	assert.Equal(t, []dataset.Column{dataset.ColumnTotalEngagement}, tbl.Sourced())

	ana := tbl.At(0)
	require.NotNil(t, ana.Timestamp)
	assert.Equal(t, 2024, ana.Timestamp.Year())
	assert.Equal(t, "instagram", ana.Network)
	assert.Equal(t, int64(150), ana.TotalEngagement)
	assert.Equal(t, "https://example.com/1", ana.PostLink)
	assert.Equal(t, "Bom dia", ana.Message)
	assert.Zero(t, ana.FollowersTwitter)

	bia := tbl.At(1)
	require.NotNil(t, bia.Timestamp)
	assert.Equal(t, 12, int(bia.Timestamp.Month()))
	assert.Zero(t, bia.TotalEngagement)
	assert.Equal(t, "Feliz; ano novo", bia.Message)

	assert.Nil(t, tbl.At(2).Timestamp)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, "total_engagement", res.Warnings[0].Column)
	assert.Equal(t, "timestamp", res.Warnings[1].Column)
	assert.Equal(t, 4, res.Warnings[1].Line)
}

func TestNormalizePostsWithoutNameColumn(t *testing.T) {
	res, err := Normalize([]byte("rede;engajamento_total\nx;5\n"), Options{Kind: dataset.KindPosts})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Table.At(0).TotalEngagement)
	assert.Equal(t, "", res.Table.At(0).Name)
}

func TestNormalizeIgnoresTotalEngagementOnLegislators(t *testing.T) {
	res := legislators(t, "nome_deputado,engajamento_total\nAna,99\n")
	assert.Zero(t, res.Table.At(0).TotalEngagement)
	assert.False(t, res.Table.HasSourced(dataset.ColumnTotalEngagement))
}

func TestNormalizeCustomDelimiter(t *testing.T) {
	res, err := Normalize([]byte("nome_deputado\tuf\nAna\tSP\n"), Options{Delimiter: '\t'})
	require.NoError(t, err)
	assert.Equal(t, "SP", res.Table.At(0).Region)
}

func TestNormalizeRejectsUnterminatedQuote(t *testing.T) {
	raw := "nome_deputado,partido,uf,seguidores_twitter\n" +
		"Alice,\"PA,SP,100\n" +
		"Bob,PB,SP,50\n" +
		"Cara,PA,RJ,200\n"

	res, err := Normalize([]byte(raw), Options{})
	require.Error(t, err)

	var loadErr *dataset.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, loadErr.Reason, "unterminated quoted field starting on line 2")
	assert.Equal(t, 0, res.Table.Len())
}

func TestNormalizeSkipsRowWithBareQuote(t *testing.T) {
	res := legislators(t, "nome_deputado,partido,uf,seguidores_twitter\n"+
		"Al\"ice,PA,SP,100\n"+
		"Bob,PB,SP,50\n")

	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "Bob", res.Table.At(0).Name)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, 2, res.Warnings[0].Line)
}

func TestUnterminatedQuote(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		delim rune
		line  int
		open  bool
	}{
		{"balanced", "a,\"b,c\"\nd,e\n", ',', 0, false},
		{"escaped quote", "a,\"say \"\"hi\"\"\"\n", ',', 0, false},
		{"multiline field", "a,\"b\nc\"\nd,e\n", ',', 0, false},
		{"quote inside unquoted field", "a,b\"c\nd,e\n", ',', 0, false},
		{"leading space", "a, \"b\nc\n", ',', 1, true},
		{"open on third line", "h;h\nx;y\nz;\"w\n", ';', 3, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			line, open := unterminatedQuote([]byte(tc.text), tc.delim)
			assert.Equal(t, tc.open, open)
			if tc.open {
				assert.Equal(t, tc.line, line)
			}
		})
	}
}
